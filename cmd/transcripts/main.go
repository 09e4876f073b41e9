// transcripts — fetch YouTube transcripts from the command line.
//
// Usage: transcripts [flags] <video_id> [<video_id>...]
//
// Flag defaults can be kept in a yaml config file (see -config); flags given
// on the command line always win over the file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	captions "github.com/anatolykoptev/go-captions"
	"github.com/anatolykoptev/go-captions/formatters"
	"github.com/anatolykoptev/go-captions/internal/store"
)

// fileConfig mirrors the flag set, minus per-invocation flags like
// -list-transcripts.
type fileConfig struct {
	Languages        []string `yaml:"languages"`
	Format           string   `yaml:"format"`
	HTTPProxy        string   `yaml:"http_proxy"`
	HTTPSProxy       string   `yaml:"https_proxy"`
	WebshareUsername string   `yaml:"webshare_username"`
	WebsharePassword string   `yaml:"webshare_password"`
	WebshareRetries  int      `yaml:"webshare_retries"`
	CookieFile       string   `yaml:"cookie_file"`
	CookieBrowser    string   `yaml:"cookie_browser"`
	CachePath        string   `yaml:"cache_path"`
	CacheTTL         string   `yaml:"cache_ttl"`
}

type options struct {
	configPath string

	languages          string
	format             string
	translate          string
	listTranscripts    bool
	excludeGenerated   bool
	excludeManual      bool
	preserveFormatting bool

	httpProxy        string
	httpsProxy       string
	webshareUsername string
	websharePassword string
	webshareRetries  int

	cookieFile    string
	cookieBrowser string

	cachePath string
	cacheTTL  time.Duration

	playerAPI   bool
	fingerprint bool
	verbose     bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "transcripts:", err)
		os.Exit(1)
	}
}

func run() error {
	var o options
	flag.StringVar(&o.configPath, "config", defaultConfigPath(), "yaml config file with flag defaults")
	flag.StringVar(&o.languages, "languages", "en", "comma-separated language codes in priority order")
	flag.StringVar(&o.format, "format", "pretty",
		fmt.Sprintf("output format (%s)", strings.Join(formatters.Names(), ", ")))
	flag.StringVar(&o.translate, "translate", "", "translate the transcript to this language code")
	flag.BoolVar(&o.listTranscripts, "list-transcripts", false, "list available transcripts instead of fetching")
	flag.BoolVar(&o.excludeGenerated, "exclude-generated", false, "only consider manually created transcripts")
	flag.BoolVar(&o.excludeManual, "exclude-manually-created", false, "only consider generated transcripts")
	flag.BoolVar(&o.preserveFormatting, "preserve-formatting", false, "keep basic HTML formatting in snippet text")
	flag.StringVar(&o.httpProxy, "http-proxy", "", "proxy URL for http requests")
	flag.StringVar(&o.httpsProxy, "https-proxy", "", "proxy URL for https requests")
	flag.StringVar(&o.webshareUsername, "webshare-username", "", "Webshare rotating proxy username")
	flag.StringVar(&o.websharePassword, "webshare-password", "", "Webshare rotating proxy password")
	flag.IntVar(&o.webshareRetries, "webshare-retries", 0, "override Webshare retries when blocked")
	flag.StringVar(&o.cookieFile, "cookie-file", "", "Netscape-format cookie file for authenticated requests")
	flag.StringVar(&o.cookieBrowser, "cookie-browser", "", "browser to pull YouTube cookies from (firefox, chrome, chromium, brave, edge)")
	flag.StringVar(&o.cachePath, "cache", "", "sqlite cache database path (empty disables caching)")
	flag.DurationVar(&o.cacheTTL, "cache-ttl", 24*time.Hour, "cache entry lifetime, 0 means forever")
	flag.BoolVar(&o.playerAPI, "player-api", false, "fetch caption metadata via the player API instead of the watch page")
	flag.BoolVar(&o.fingerprint, "browser-fingerprint", false, "send requests with a browser TLS fingerprint")
	flag.BoolVar(&o.verbose, "v", false, "verbose logging")
	flag.Parse()

	if o.verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	videoIDs := flag.Args()
	if len(videoIDs) == 0 {
		flag.Usage()
		return errors.New("at least one video id is required")
	}

	if err := applyConfigFile(&o); err != nil {
		return err
	}

	client, err := buildClient(&o)
	if err != nil {
		return err
	}

	format, err := formatters.ByName(o.format)
	if err != nil {
		return err
	}

	var cache *store.Store
	if o.cachePath != "" {
		cache, err = store.Open(o.cachePath)
		if err != nil {
			return err
		}
		defer cache.Close()
	}

	ctx := context.Background()
	languages := splitList(o.languages)

	var failures int
	for _, videoID := range videoIDs {
		if err := processVideo(ctx, client, cache, format, &o, videoID, languages); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "transcripts: %s: %v\n", videoID, err)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d videos failed", failures, len(videoIDs))
	}
	return nil
}

func processVideo(ctx context.Context, client *captions.Client, cache *store.Store,
	format formatters.Formatter, o *options, videoID string, languages []string) error {

	if o.listTranscripts {
		list, err := client.List(ctx, videoID)
		if err != nil {
			return err
		}
		fmt.Println(list)
		return nil
	}

	transcript, err := fetchCached(ctx, client, cache, o, videoID, languages)
	if err != nil {
		return err
	}

	out, err := format(transcript)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// fetchCached consults the sqlite cache before going to YouTube. The cache
// stores the parsed transcript, not the formatted output, so one entry serves
// every -format.
func fetchCached(ctx context.Context, client *captions.Client, cache *store.Store,
	o *options, videoID string, languages []string) (*captions.FetchedTranscript, error) {

	var key string
	if cache != nil {
		key = store.Key(videoID, strings.Join(languages, ","), o.translate,
			fmt.Sprintf("pf=%t", o.preserveFormatting),
			fmt.Sprintf("xg=%t_xm=%t", o.excludeGenerated, o.excludeManual))
		payload, ok, err := cache.Get(key, o.cacheTTL)
		if err != nil {
			slog.Warn("cache read failed", slog.Any("error", err))
		} else if ok {
			var cached captions.FetchedTranscript
			if err := json.Unmarshal(payload, &cached); err == nil {
				slog.Debug("cache hit", slog.String("video_id", videoID))
				return &cached, nil
			}
		}
	}

	transcript, err := fetchTranscript(ctx, client, o, videoID, languages)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		payload, err := json.Marshal(transcript)
		if err == nil {
			if err := cache.Put(key, videoID, transcript.LanguageCode, payload); err != nil {
				slog.Warn("cache write failed", slog.Any("error", err))
			}
		}
	}
	return transcript, nil
}

func fetchTranscript(ctx context.Context, client *captions.Client, o *options,
	videoID string, languages []string) (*captions.FetchedTranscript, error) {

	list, err := client.List(ctx, videoID)
	if err != nil {
		return nil, err
	}

	var transcript *captions.Transcript
	switch {
	case o.excludeGenerated:
		transcript, err = list.FindManuallyCreatedTranscript(languages)
	case o.excludeManual:
		transcript, err = list.FindGeneratedTranscript(languages)
	default:
		transcript, err = list.FindTranscript(languages)
	}
	if err != nil {
		return nil, err
	}

	if o.translate != "" {
		transcript, err = transcript.Translate(o.translate)
		if err != nil {
			return nil, err
		}
	}

	return transcript.Fetch(ctx, o.preserveFormatting)
}

func buildClient(o *options) (*captions.Client, error) {
	var opts []captions.Option

	switch {
	case o.webshareUsername != "" || o.websharePassword != "":
		cfg, err := captions.NewWebshareProxyConfig(o.webshareUsername, o.websharePassword)
		if err != nil {
			return nil, err
		}
		if o.webshareRetries > 0 {
			cfg.WithRetriesWhenBlocked(o.webshareRetries)
		}
		opts = append(opts, captions.WithProxyConfig(cfg))
	case o.httpProxy != "" || o.httpsProxy != "":
		cfg, err := captions.NewGenericProxyConfig(o.httpProxy, o.httpsProxy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, captions.WithProxyConfig(cfg))
	}

	if o.cookieFile != "" {
		opts = append(opts, captions.WithCookieFile(o.cookieFile))
	}
	if o.cookieBrowser != "" {
		opts = append(opts, captions.WithBrowserCookies(o.cookieBrowser, ""))
	}
	if o.playerAPI {
		opts = append(opts, captions.WithPlayerAPI())
	}
	if o.fingerprint {
		opts = append(opts, captions.WithBrowserFingerprint())
	}

	return captions.NewClient(opts...)
}

// applyConfigFile fills in flags the user left at their defaults from the
// yaml config file, if one exists.
func applyConfigFile(o *options) error {
	if o.configPath == "" {
		return nil
	}
	data, err := os.ReadFile(o.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", o.configPath, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", o.configPath, err)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["languages"] && len(cfg.Languages) > 0 {
		o.languages = strings.Join(cfg.Languages, ",")
	}
	if !set["format"] && cfg.Format != "" {
		o.format = cfg.Format
	}
	if !set["http-proxy"] && cfg.HTTPProxy != "" {
		o.httpProxy = cfg.HTTPProxy
	}
	if !set["https-proxy"] && cfg.HTTPSProxy != "" {
		o.httpsProxy = cfg.HTTPSProxy
	}
	if !set["webshare-username"] && cfg.WebshareUsername != "" {
		o.webshareUsername = cfg.WebshareUsername
	}
	if !set["webshare-password"] && cfg.WebsharePassword != "" {
		o.websharePassword = cfg.WebsharePassword
	}
	if !set["webshare-retries"] && cfg.WebshareRetries > 0 {
		o.webshareRetries = cfg.WebshareRetries
	}
	if !set["cookie-file"] && cfg.CookieFile != "" {
		o.cookieFile = cfg.CookieFile
	}
	if !set["cookie-browser"] && cfg.CookieBrowser != "" {
		o.cookieBrowser = cfg.CookieBrowser
	}
	if !set["cache"] && cfg.CachePath != "" {
		o.cachePath = cfg.CachePath
	}
	if !set["cache-ttl"] && cfg.CacheTTL != "" {
		ttl, err := time.ParseDuration(cfg.CacheTTL)
		if err != nil {
			return fmt.Errorf("parse config %s: cache_ttl: %w", o.configPath, err)
		}
		o.cacheTTL = ttl
	}
	return nil
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "transcripts", "config.yaml")
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
