package captions

import (
	"fmt"
	"strings"
)

// Every retrieval failure carries the video id and renders a human-oriented
// cause. The rendering is a pure function over the error's fields — nothing
// is precomputed at construction, so wrapping and annotating stays cheap.

const issueReferral = "\n\nIf you are sure the described cause does not apply and a " +
	"transcript should be retrievable, please open an issue and include the video id."

func retrievalMessage(videoID, cause string) string {
	msg := fmt.Sprintf("could not retrieve a transcript for the video %s!",
		fmt.Sprintf(watchURL, videoID))
	if cause != "" {
		msg += " This is most likely caused by:\n\n" + cause + issueReferral
	}
	return msg
}

// RequestFailedError reports a non-2xx response or a transport-level failure
// on any request to YouTube.
type RequestFailedError struct {
	VideoID string
	Reason  string
}

func (e *RequestFailedError) Error() string {
	return retrievalMessage(e.VideoID, "Request to YouTube failed: "+e.Reason)
}

// EmptyResponseError reports a successful request whose body was empty, so
// there is nothing to parse. Usually transient.
type EmptyResponseError struct {
	VideoID string
}

func (e *EmptyResponseError) Error() string {
	return retrievalMessage(e.VideoID,
		"Request to YouTube was successful, but the response's content is empty, "+
			"so the transcript parsing cannot be performed. Retry later.")
}

// DataUnparsableError reports that a YouTube response did not match the
// expected shape. Either the platform changed its format or the response was
// corrupted; neither is recoverable by retrying.
type DataUnparsableError struct {
	VideoID string
}

func (e *DataUnparsableError) Error() string {
	return retrievalMessage(e.VideoID,
		"The data required to fetch the transcript is not parsable. This should "+
			"not happen, please open an issue (make sure to include the video id)!")
}

// RequestBlockedError reports that YouTube rejected the request as automated
// traffic. IPBlocked is set when the block was detected via the CAPTCHA page
// rather than the playability status. Proxy is filled in by the fetcher once
// all block retries are exhausted, which switches the rendered guidance to
// proxy-specific remediation.
type RequestBlockedError struct {
	VideoID   string
	IPBlocked bool
	Proxy     ProxyConfig
}

const blockedBaseCause = "YouTube is blocking requests from your IP. This usually is due to one of " +
	"the following reasons:\n" +
	"- You have done too many requests and your IP has been blocked by YouTube\n" +
	"- You are doing requests from an IP belonging to a cloud provider. " +
	"Unfortunately, most IPs from cloud providers are blocked by YouTube.\n\n"

func (e *RequestBlockedError) Error() string {
	return retrievalMessage(e.VideoID, e.cause())
}

func (e *RequestBlockedError) cause() string {
	switch e.Proxy.(type) {
	case *WebshareProxyConfig:
		return "YouTube is blocking your requests, despite you using Webshare proxies. " +
			"Make sure you have purchased \"Residential\" proxies and NOT " +
			"\"Proxy Server\" or \"Static Residential\", as those won't work as " +
			"reliably! The free tier also uses \"Proxy Server\" and will NOT work!\n\n" +
			"\"Residential\" proxies rotate through a large pool of IPs, which means " +
			"a retry will always find an IP that hasn't been blocked yet."
	case *GenericProxyConfig:
		return "YouTube is blocking your requests, despite you using proxies. Keep in " +
			"mind a proxy only hides your real IP behind its own, and there is no " +
			"guarantee that IP isn't blocked as well.\n\n" +
			"The only truly reliable way to prevent IP blocks is rotating through a " +
			"large pool of residential IPs, for example via WebshareProxyConfig."
	}
	if e.IPBlocked {
		return blockedBaseCause +
			"Ways to work around this are described in the \"Working around IP bans\" " +
			"section of the README."
	}
	return blockedBaseCause +
		"There are two things you can do to work around this:\n" +
		"1. Use proxies to hide your IP address, as explained in the \"Working around " +
		"IP bans\" section of the README.\n" +
		"2. (NOT RECOMMENDED) Authenticate your requests using cookies. YouTube will " +
		"eventually permanently ban the account used for authentication, so only do " +
		"this if you don't mind losing it!"
}

// AgeRestrictedError reports that the video requires an authenticated session
// to access. Provide cookies to retrieve its transcripts.
type AgeRestrictedError struct {
	VideoID string
}

func (e *AgeRestrictedError) Error() string {
	return retrievalMessage(e.VideoID,
		"This video is age-restricted. Therefore you will have to authenticate to "+
			"retrieve its transcripts, by providing session cookies (see the \"Cookie "+
			"Authentication\" section of the README).")
}

// VideoUnavailableError reports that the video does not exist or is no
// longer available.
type VideoUnavailableError struct {
	VideoID string
}

func (e *VideoUnavailableError) Error() string {
	return retrievalMessage(e.VideoID, "The video is no longer available")
}

// InvalidVideoIDError reports that a full URL was passed where a plain video
// id was expected.
type InvalidVideoIDError struct {
	VideoID string
}

func (e *InvalidVideoIDError) Error() string {
	return retrievalMessage(e.VideoID,
		"You provided an invalid video id. Make sure you are using the video id and "+
			"NOT the url!\n\n"+
			"Do NOT run: client.Fetch(ctx, \"https://www.youtube.com/watch?v=1234\", ...)\n"+
			"Instead run: client.Fetch(ctx, \"1234\", ...)")
}

// VideoUnplayableError reports any non-OK playability status that does not
// map to a more specific failure. Reason and SubReasons mirror what the
// player would show on screen.
type VideoUnplayableError struct {
	VideoID    string
	Reason     string
	SubReasons []string
}

func (e *VideoUnplayableError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "No reason specified!"
	}
	if len(e.SubReasons) > 0 {
		var b strings.Builder
		b.WriteString(reason)
		b.WriteString("\n\nAdditional Details:\n")
		for _, sub := range e.SubReasons {
			b.WriteString(" - " + sub + "\n")
		}
		reason = strings.TrimRight(b.String(), "\n")
	}
	return retrievalMessage(e.VideoID,
		"The video is unplayable for the following reason: "+reason)
}

// TranscriptsDisabledError reports that the uploader disabled captions for
// the video.
type TranscriptsDisabledError struct {
	VideoID string
}

func (e *TranscriptsDisabledError) Error() string {
	return retrievalMessage(e.VideoID, "Subtitles are disabled for this video")
}

// NoTranscriptFoundError reports that none of the requested language codes
// matched an available track. The full track listing is included for
// diagnostics.
type NoTranscriptFoundError struct {
	VideoID            string
	RequestedLanguages []string
	TranscriptList     *TranscriptList
}

func (e *NoTranscriptFoundError) Error() string {
	return retrievalMessage(e.VideoID, fmt.Sprintf(
		"No transcripts were found for any of the requested language codes: %v\n\n%s",
		e.RequestedLanguages, e.TranscriptList))
}

// NotTranslatableError reports a translation request on a track that offers
// no translation languages.
type NotTranslatableError struct {
	VideoID string
}

func (e *NotTranslatableError) Error() string {
	return retrievalMessage(e.VideoID, "The requested language is not translatable")
}

// TranslationLanguageNotAvailableError reports a translation request to a
// language code the track does not offer.
type TranslationLanguageNotAvailableError struct {
	VideoID string
}

func (e *TranslationLanguageNotAvailableError) Error() string {
	return retrievalMessage(e.VideoID, "The requested translation language is not available")
}

// ConsentCookieError reports that the consent-cookie handshake did not get
// past the consent interstitial within its single bounded retry.
type ConsentCookieError struct {
	VideoID string
}

func (e *ConsentCookieError) Error() string {
	return retrievalMessage(e.VideoID, "Failed to automatically give consent to saving cookies")
}

// CookiePathError reports that a cookie file could not be read.
type CookiePathError struct {
	Path string
}

func (e *CookiePathError) Error() string {
	return fmt.Sprintf("can't load the provided cookie file: %s", e.Path)
}

// CookieInvalidError reports a cookie source that contained no usable
// (unexpired) cookies.
type CookieInvalidError struct {
	Path string
}

func (e *CookieInvalidError) Error() string {
	return fmt.Sprintf("the cookies provided are not valid (may have expired): %s", e.Path)
}
