package captions

// FetchedTranscriptSnippet is one timed unit of caption text.
//
// Duration is how long the snippet stays on screen, not the duration of the
// transcribed speech — snippet time ranges may overlap with their neighbors,
// which is expected platform behavior.
type FetchedTranscriptSnippet struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// FetchedTranscript is the parsed result of fetching a caption track.
// Immutable once returned; iterate Snippets directly.
type FetchedTranscript struct {
	Snippets     []FetchedTranscriptSnippet `json:"snippets"`
	VideoID      string                     `json:"video_id"`
	Language     string                     `json:"language"`
	LanguageCode string                     `json:"language_code"`
	IsGenerated  bool                       `json:"is_generated"`
}

// Len returns the number of snippets.
func (t *FetchedTranscript) Len() int { return len(t.Snippets) }

// Records returns the snippets as a flat copy, the shape consumed by the
// output formatters.
func (t *FetchedTranscript) Records() []FetchedTranscriptSnippet {
	records := make([]FetchedTranscriptSnippet, len(t.Snippets))
	copy(records, t.Snippets)
	return records
}

// Text joins all snippet texts with newlines, dropping the timing
// information.
func (t *FetchedTranscript) Text() string {
	var out []byte
	for i, s := range t.Snippets {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, s.Text...)
	}
	return string(out)
}
