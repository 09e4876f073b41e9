// transcripts-server — small HTTP API in front of the transcript client.
//
//	GET /transcript?video_id=<id>&languages=en,de&preserve_formatting=false
//	GET /transcripts/list?video_id=<id>
//	GET /healthz
//
// Configured through environment variables, see config below.
package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/gofiber/fiber/v2"

	captions "github.com/anatolykoptev/go-captions"
	"github.com/anatolykoptev/go-captions/internal/store"
)

var (
	port             = env.Str("PORT", "8800")
	webshareUsername = env.Str("WEBSHARE_USERNAME", "")
	websharePassword = env.Str("WEBSHARE_PASSWORD", "")
	httpProxy        = env.Str("HTTP_PROXY_URL", "")
	httpsProxy       = env.Str("HTTPS_PROXY_URL", "")
	cookieFile       = env.Str("COOKIE_FILE", "")
	cachePath        = env.Str("CACHE_PATH", "")
	cacheTTL         = env.Duration("CACHE_TTL", 24*time.Hour)
	readTimeout      = env.Duration("READ_TIMEOUT", 10*time.Second)
	writeTimeout     = env.Duration("WRITE_TIMEOUT", 60*time.Second)
)

type server struct {
	client *captions.Client
	cache  *store.Store
}

func main() {
	client, err := buildClient()
	if err != nil {
		slog.Error("client init failed", slog.Any("error", err))
		os.Exit(1)
	}

	s := &server{client: client}
	if cachePath != "" {
		cache, err := store.Open(cachePath)
		if err != nil {
			slog.Error("cache init failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer cache.Close()
		s.cache = cache
	}

	app := fiber.New(fiber.Config{
		AppName:      "transcripts-server",
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/transcript", s.handleTranscript)
	app.Get("/transcripts/list", s.handleList)

	slog.Info("starting transcripts-server", slog.String("port", port))
	if err := app.Listen(":" + port); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func buildClient() (*captions.Client, error) {
	var opts []captions.Option

	switch {
	case webshareUsername != "" || websharePassword != "":
		cfg, err := captions.NewWebshareProxyConfig(webshareUsername, websharePassword)
		if err != nil {
			return nil, err
		}
		opts = append(opts, captions.WithProxyConfig(cfg))
	case httpProxy != "" || httpsProxy != "":
		cfg, err := captions.NewGenericProxyConfig(httpProxy, httpsProxy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, captions.WithProxyConfig(cfg))
	}
	if cookieFile != "" {
		opts = append(opts, captions.WithCookieFile(cookieFile))
	}

	return captions.NewClient(opts...)
}

func (s *server) handleTranscript(c *fiber.Ctx) error {
	videoID := c.Query("video_id")
	if videoID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "video_id is required")
	}
	languages := splitList(c.Query("languages", "en"))
	preserve := c.QueryBool("preserve_formatting", false)

	if s.cache != nil {
		key := cacheKey(videoID, languages, preserve)
		if payload, ok, err := s.cache.Get(key, cacheTTL); err == nil && ok {
			var cached captions.FetchedTranscript
			if json.Unmarshal(payload, &cached) == nil {
				return c.JSON(&cached)
			}
		}
	}

	transcript, err := s.client.Fetch(c.Context(), videoID, languages, preserve)
	if err != nil {
		return errorResponse(c, videoID, err)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(transcript); err == nil {
			key := cacheKey(videoID, languages, preserve)
			if err := s.cache.Put(key, videoID, transcript.LanguageCode, payload); err != nil {
				slog.Warn("cache write failed", slog.Any("error", err))
			}
		}
	}
	return c.JSON(transcript)
}

func (s *server) handleList(c *fiber.Ctx) error {
	videoID := c.Query("video_id")
	if videoID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "video_id is required")
	}

	list, err := s.client.List(c.Context(), videoID)
	if err != nil {
		return errorResponse(c, videoID, err)
	}

	type track struct {
		Language     string `json:"language"`
		LanguageCode string `json:"language_code"`
		IsGenerated  bool   `json:"is_generated"`
		Translatable bool   `json:"is_translatable"`
	}
	tracks := make([]track, 0)
	for _, t := range list.All() {
		tracks = append(tracks, track{
			Language:     t.Language,
			LanguageCode: t.LanguageCode,
			IsGenerated:  t.IsGenerated,
			Translatable: t.IsTranslatable(),
		})
	}
	return c.JSON(fiber.Map{"video_id": videoID, "transcripts": tracks})
}

// errorResponse maps the retrieval error taxonomy onto HTTP statuses.
func errorResponse(c *fiber.Ctx, videoID string, err error) error {
	status := fiber.StatusInternalServerError

	var (
		invalidID   *captions.InvalidVideoIDError
		unavailable *captions.VideoUnavailableError
		notFound    *captions.NoTranscriptFoundError
		disabled    *captions.TranscriptsDisabledError
		age         *captions.AgeRestrictedError
		unplayable  *captions.VideoUnplayableError
		blocked     *captions.RequestBlockedError
		failed      *captions.RequestFailedError
	)
	switch {
	case errors.As(err, &invalidID):
		status = fiber.StatusBadRequest
	case errors.As(err, &unavailable), errors.As(err, &notFound):
		status = fiber.StatusNotFound
	case errors.As(err, &disabled), errors.As(err, &age), errors.As(err, &unplayable):
		status = fiber.StatusForbidden
	case errors.As(err, &blocked):
		status = fiber.StatusTooManyRequests
	case errors.As(err, &failed):
		status = fiber.StatusBadGateway
	}

	slog.Warn("transcript request failed",
		slog.String("video_id", videoID),
		slog.Int("status", status),
		slog.Any("error", err))
	return c.Status(status).JSON(fiber.Map{
		"video_id": videoID,
		"error":    err.Error(),
	})
}

func cacheKey(videoID string, languages []string, preserve bool) string {
	pf := "pf=0"
	if preserve {
		pf = "pf=1"
	}
	return store.Key(videoID, strings.Join(languages, ","), pf)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
