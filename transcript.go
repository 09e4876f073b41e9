package captions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go-captions/internal/timedtext"
)

// TranslationLanguage is one language a translatable caption track can be
// translated to.
type TranslationLanguage struct {
	Language     string `json:"language"`
	LanguageCode string `json:"language_code"`
}

// Transcript represents one fetchable caption track of a video. Instances
// are built by TranscriptList during decoding; Fetch performs the actual
// download and parse.
type Transcript struct {
	VideoID      string
	Language     string
	LanguageCode string
	IsGenerated  bool

	// TranslationLanguages is empty for non-translatable tracks. It is
	// exported (and settable) so callers can exercise the not-translatable
	// path in tests.
	TranslationLanguages []TranslationLanguage

	url  string
	http *http.Client
}

// IsTranslatable reports whether the track offers translation targets.
func (t *Transcript) IsTranslatable() bool { return len(t.TranslationLanguages) > 0 }

// String renders the track the way the list description shows it.
func (t *Transcript) String() string {
	suffix := ""
	if t.IsTranslatable() {
		suffix = "[TRANSLATABLE]"
	}
	return fmt.Sprintf("%s (%q)%s", t.LanguageCode, t.Language, suffix)
}

// Translate derives a new Transcript that fetches a server-side translation
// of this track. The receiver is left untouched; the derived track is marked
// generated and is not itself translatable again.
func (t *Transcript) Translate(languageCode string) (*Transcript, error) {
	if !t.IsTranslatable() {
		return nil, &NotTranslatableError{VideoID: t.VideoID}
	}

	var target *TranslationLanguage
	for i := range t.TranslationLanguages {
		if t.TranslationLanguages[i].LanguageCode == languageCode {
			target = &t.TranslationLanguages[i]
			break
		}
	}
	if target == nil {
		return nil, &TranslationLanguageNotAvailableError{VideoID: t.VideoID}
	}

	return &Transcript{
		VideoID:      t.VideoID,
		Language:     target.Language,
		LanguageCode: target.LanguageCode,
		IsGenerated:  true,
		url:          t.url + "&" + translateParam + "=" + languageCode,
		http:         t.http,
	}, nil
}

// Fetch downloads and parses the caption track.
func (t *Transcript) Fetch(ctx context.Context, preserveFormatting bool) (*FetchedTranscript, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return nil, &RequestFailedError{VideoID: t.VideoID, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Language", "en-US")

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, &RequestFailedError{VideoID: t.VideoID, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestFailedError{VideoID: t.VideoID, Reason: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestFailedError{VideoID: t.VideoID, Reason: err.Error()}
	}
	if len(body) == 0 {
		return nil, &EmptyResponseError{VideoID: t.VideoID}
	}

	parsed, err := timedtext.Parse(string(body), preserveFormatting)
	if err != nil {
		return nil, &DataUnparsableError{VideoID: t.VideoID}
	}

	snippets := make([]FetchedTranscriptSnippet, len(parsed))
	for i, s := range parsed {
		snippets[i] = FetchedTranscriptSnippet{Text: s.Text, Start: s.Start, Duration: s.Duration}
	}

	return &FetchedTranscript{
		Snippets:     snippets,
		VideoID:      t.VideoID,
		Language:     t.Language,
		LanguageCode: t.LanguageCode,
		IsGenerated:  t.IsGenerated,
	}, nil
}

// TranscriptList holds all caption tracks available for a video, split into
// manually created and generated tracks. Built once per List call, never
// mutated afterwards.
type TranscriptList struct {
	VideoID string

	manuallyCreated map[string]*Transcript
	generated       map[string]*Transcript
	manualOrder     []string
	generatedOrder  []string

	// shared by every translatable track in the list
	translationLanguages []TranslationLanguage
}

// buildTranscriptList routes each raw caption track into the manual or
// generated mapping based on its "asr" kind marker. If the platform ever
// repeats a language code within a category, the last entry wins.
func buildTranscriptList(httpClient *http.Client, videoID string, captions *captionsJSON) *TranscriptList {
	translationLanguages := make([]TranslationLanguage, 0, len(captions.TranslationLanguages))
	for _, tl := range captions.TranslationLanguages {
		translationLanguages = append(translationLanguages, TranslationLanguage{
			Language:     tl.LanguageName.value(),
			LanguageCode: tl.LanguageCode,
		})
	}

	list := &TranscriptList{
		VideoID:              videoID,
		manuallyCreated:      make(map[string]*Transcript),
		generated:            make(map[string]*Transcript),
		translationLanguages: translationLanguages,
	}

	for _, track := range captions.CaptionTracks {
		generated := track.Kind == "asr"

		var trackTranslations []TranslationLanguage
		if track.IsTranslatable {
			trackTranslations = translationLanguages
		}

		transcript := &Transcript{
			VideoID:              videoID,
			Language:             track.Name.value(),
			LanguageCode:         track.LanguageCode,
			IsGenerated:          generated,
			TranslationLanguages: trackTranslations,
			url:                  track.BaseURL,
			http:                 httpClient,
		}

		if generated {
			if _, seen := list.generated[track.LanguageCode]; !seen {
				list.generatedOrder = append(list.generatedOrder, track.LanguageCode)
			}
			list.generated[track.LanguageCode] = transcript
		} else {
			if _, seen := list.manuallyCreated[track.LanguageCode]; !seen {
				list.manualOrder = append(list.manualOrder, track.LanguageCode)
			}
			list.manuallyCreated[track.LanguageCode] = transcript
		}
	}

	return list
}

// All returns every track in the list, manually created first, in the order
// they appeared in the raw data.
func (l *TranscriptList) All() []*Transcript {
	out := make([]*Transcript, 0, len(l.manualOrder)+len(l.generatedOrder))
	for _, code := range l.manualOrder {
		out = append(out, l.manuallyCreated[code])
	}
	for _, code := range l.generatedOrder {
		out = append(out, l.generated[code])
	}
	return out
}

// TranslationLanguages returns the translation targets shared by the list's
// translatable tracks.
func (l *TranscriptList) TranslationLanguages() []TranslationLanguage {
	return l.translationLanguages
}

// FindTranscript returns the first track matching the requested language
// codes, tried in the given priority order. For the same language code a
// manually created track always outranks a generated one; language priority
// only applies across different codes.
func (l *TranscriptList) FindTranscript(languageCodes []string) (*Transcript, error) {
	return l.find(languageCodes, []map[string]*Transcript{l.manuallyCreated, l.generated})
}

// FindManuallyCreatedTranscript is FindTranscript restricted to manually
// created tracks.
func (l *TranscriptList) FindManuallyCreatedTranscript(languageCodes []string) (*Transcript, error) {
	return l.find(languageCodes, []map[string]*Transcript{l.manuallyCreated})
}

// FindGeneratedTranscript is FindTranscript restricted to generated tracks.
func (l *TranscriptList) FindGeneratedTranscript(languageCodes []string) (*Transcript, error) {
	return l.find(languageCodes, []map[string]*Transcript{l.generated})
}

func (l *TranscriptList) find(languageCodes []string, categories []map[string]*Transcript) (*Transcript, error) {
	for _, code := range languageCodes {
		for _, category := range categories {
			if transcript, ok := category[code]; ok {
				return transcript, nil
			}
		}
	}
	return nil, &NoTranscriptFoundError{
		VideoID:            l.VideoID,
		RequestedLanguages: languageCodes,
		TranscriptList:     l,
	}
}

// String renders the full track listing used for diagnostics.
func (l *TranscriptList) String() string {
	var manual, generated, translations []string
	for _, code := range l.manualOrder {
		manual = append(manual, l.manuallyCreated[code].String())
	}
	for _, code := range l.generatedOrder {
		generated = append(generated, l.generated[code].String())
	}
	for _, tl := range l.translationLanguages {
		translations = append(translations, fmt.Sprintf("%s (%q)", tl.LanguageCode, tl.Language))
	}

	return fmt.Sprintf(
		"For this video (%s) transcripts are available in the following languages:\n\n"+
			"(MANUALLY CREATED)\n%s\n\n(GENERATED)\n%s\n\n(TRANSLATION LANGUAGES)\n%s",
		l.VideoID,
		languageDescription(manual),
		languageDescription(generated),
		languageDescription(translations),
	)
}

func languageDescription(entries []string) string {
	if len(entries) == 0 {
		return "None"
	}
	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(" - " + entry)
	}
	return b.String()
}
