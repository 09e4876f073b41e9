// Package formatters renders fetched transcripts into the supported output
// formats. The set is closed on purpose: formats are selected by name out of
// a fixed table, there is no registry to extend at runtime.
package formatters

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	captions "github.com/anatolykoptev/go-captions"
)

// Formatter renders one fetched transcript.
type Formatter func(*captions.FetchedTranscript) (string, error)

var byName = map[string]Formatter{
	"json":     JSON,
	"pretty":   Pretty,
	"text":     Text,
	"srt":      SRT,
	"webvtt":   WebVTT,
	"markdown": Markdown,
}

// Names lists the supported format names, sorted.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName resolves a format name to its formatter.
func ByName(name string) (Formatter, error) {
	f, ok := byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return f, nil
}

// JSON renders the snippet records as a compact JSON array.
func JSON(t *captions.FetchedTranscript) (string, error) {
	out, err := json.Marshal(t.Records())
	if err != nil {
		return "", fmt.Errorf("format json: %w", err)
	}
	return string(out), nil
}

// Pretty renders one aligned "[HH:MM:SS.mmm] text" line per snippet.
func Pretty(t *captions.FetchedTranscript) (string, error) {
	var b strings.Builder
	for _, s := range t.Snippets {
		fmt.Fprintf(&b, "[%s] %s\n", timecode(s.Start, '.'), s.Text)
	}
	return b.String(), nil
}

// Text renders the plain snippet texts, one per line.
func Text(t *captions.FetchedTranscript) (string, error) {
	return t.Text() + "\n", nil
}

// SRT renders the SubRip subtitle format: frame counter, comma-separated
// millisecond timecodes, blank-line separated blocks.
func SRT(t *captions.FetchedTranscript) (string, error) {
	var b strings.Builder
	for i, s := range t.Snippets {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n",
			i+1, timecode(s.Start, ','), timecode(s.Start+s.Duration, ','), s.Text)
		if i < len(t.Snippets)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// WebVTT renders the Web Video Text Tracks format: a WEBVTT header and
// dot-separated millisecond timecodes.
func WebVTT(t *captions.FetchedTranscript) (string, error) {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for i, s := range t.Snippets {
		fmt.Fprintf(&b, "%s --> %s\n%s\n",
			timecode(s.Start, '.'), timecode(s.Start+s.Duration, '.'), s.Text)
		if i < len(t.Snippets)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// Markdown converts snippet texts to markdown, turning preserved formatting
// tags (<b>, <i>, ...) into markdown emphasis. Snippets are joined as
// paragraphs.
func Markdown(t *captions.FetchedTranscript) (string, error) {
	paragraphs := make([]string, 0, len(t.Snippets))
	for _, s := range t.Snippets {
		md, err := htmltomarkdown.ConvertString(s.Text)
		if err != nil {
			return "", fmt.Errorf("format markdown: %w", err)
		}
		paragraphs = append(paragraphs, strings.TrimSpace(md))
	}
	return strings.Join(paragraphs, "\n\n") + "\n", nil
}

// timecode renders seconds as HH:MM:SS<sep>mmm.
func timecode(seconds float64, msSep byte) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	ms := int(math.Round((seconds - float64(whole)) * 1000))
	if ms == 1000 {
		whole++
		ms = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d%c%03d",
		whole/3600, (whole%3600)/60, whole%60, msSep, ms)
}
