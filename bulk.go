package captions

import (
	"context"
	"log/slog"
	"sync"
)

// BulkResult is the outcome of one video in a FetchBulk call. Exactly one of
// Transcript and Err is set.
type BulkResult struct {
	VideoID    string
	Transcript *FetchedTranscript
	Err        error
}

// FetchBulk runs the full pipeline for every video concurrently, bounded by
// the Client's concurrency setting and rate limiter. A failing video is
// captured in its result and never aborts its siblings. Results come back in
// input order.
//
// Unless the Client was built with a caller-owned HTTP client, every worker
// gets its own session so cookies set for one video never leak into a
// concurrent fetch for another.
func (c *Client) FetchBulk(ctx context.Context, videoIDs []string, languageCodes []string, preserveFormatting bool) []BulkResult {
	results := make([]BulkResult, len(videoIDs))
	sem := make(chan struct{}, c.concurrency)

	var wg sync.WaitGroup
	for i, videoID := range videoIDs {
		wg.Add(1)
		go func(i int, videoID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = BulkResult{VideoID: videoID}

			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					results[i].Err = err
					return
				}
			}

			worker, err := c.workerClient()
			if err != nil {
				results[i].Err = err
				return
			}

			transcript, err := worker.Fetch(ctx, videoID, languageCodes, preserveFormatting)
			if err != nil {
				slog.Debug("bulk fetch failed for video",
					slog.String("video_id", videoID), slog.Any("error", err))
				results[i].Err = err
				return
			}
			results[i].Transcript = transcript
		}(i, videoID)
	}
	wg.Wait()

	return results
}

// workerClient returns a Client backed by an isolated session, or the
// receiver itself when the caller opted into a shared HTTP client.
func (c *Client) workerClient() (*Client, error) {
	if c.customHTTP {
		return c, nil
	}
	session, err := c.newSession()
	if err != nil {
		return nil, err
	}
	worker := *c
	worker.http = session
	return &worker, nil
}
