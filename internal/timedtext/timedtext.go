// Package timedtext parses YouTube's timed-text caption XML into ordered
// snippets. Pure functions, no I/O.
package timedtext

import (
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// Snippet is one timed unit of caption text. Duration is on-screen display
// time, not speech duration, so neighboring snippets may overlap.
type Snippet struct {
	Text     string
	Start    float64
	Duration float64
}

// formattingTags are the inline tags kept in preserve-formatting mode.
var formattingTags = map[string]bool{
	"strong": true,
	"em":     true,
	"b":      true,
	"i":      true,
	"mark":   true,
	"small":  true,
	"del":    true,
	"ins":    true,
	"sub":    true,
	"sup":    true,
}

var (
	tagRe     = regexp.MustCompile(`(?i)<[^>]*>`)
	tagNameRe = regexp.MustCompile(`(?i)^</?\s*([a-z0-9]+)`)
)

type document struct {
	Entries []entry `xml:",any"`
}

type entry struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

// Parse turns a raw timed-text XML document into snippets, preserving
// document order and skipping elements without text content. Snippet text has
// HTML entities decoded before tags are filtered: the payload double-encodes
// tags (`&amp;lt;b&amp;gt;`), so the XML layer yields `&lt;b&gt;` and the
// entity pass is what turns them back into strippable `<b>`.
func Parse(raw string, preserveFormatting bool) ([]Snippet, error) {
	var doc document
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("timedtext: malformed caption data: %w", err)
	}

	snippets := make([]Snippet, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		if e.Text == "" {
			continue
		}

		start, err := strconv.ParseFloat(e.Start, 64)
		if err != nil {
			return nil, fmt.Errorf("timedtext: bad start attribute %q: %w", e.Start, err)
		}

		duration := 0.0
		if e.Dur != "" {
			duration, err = strconv.ParseFloat(e.Dur, 64)
			if err != nil {
				return nil, fmt.Errorf("timedtext: bad dur attribute %q: %w", e.Dur, err)
			}
		}

		snippets = append(snippets, Snippet{
			Text:     stripTags(html.UnescapeString(e.Text), preserveFormatting),
			Start:    start,
			Duration: duration,
		})
	}
	return snippets, nil
}

// stripTags removes HTML tags from text. In preserve-formatting mode only
// tags outside the formatting allow-list are removed, opening and closing
// alike.
func stripTags(text string, preserveFormatting bool) string {
	if !preserveFormatting {
		return tagRe.ReplaceAllString(text, "")
	}
	return tagRe.ReplaceAllStringFunc(text, func(tag string) string {
		m := tagNameRe.FindStringSubmatch(tag)
		if m != nil && formattingTags[strings.ToLower(m[1])] {
			return tag
		}
		return ""
	})
}
