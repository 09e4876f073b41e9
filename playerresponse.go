package captions

// Raw shapes of the embedded player response. YouTube guarantees no stable
// schema here, so every field is optional and access stays defensive: a
// missing fragment decodes to its zero value and is turned into a typed
// failure by the fetcher, never into a nil dereference.

type playerResponse struct {
	PlayabilityStatus playabilityStatusJSON `json:"playabilityStatus"`
	Captions          struct {
		Renderer *captionsJSON `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type playabilityStatusJSON struct {
	Status      string `json:"status"`
	Reason      string `json:"reason"`
	ErrorScreen struct {
		PlayerErrorMessageRenderer struct {
			Subreason struct {
				Runs []textRun `json:"runs"`
			} `json:"subreason"`
		} `json:"playerErrorMessageRenderer"`
	} `json:"errorScreen"`
}

// subReasons collects the text of every subreason run; empty when the error
// screen structure is absent.
func (p *playabilityStatusJSON) subReasons() []string {
	runs := p.ErrorScreen.PlayerErrorMessageRenderer.Subreason.Runs
	if len(runs) == 0 {
		return nil
	}
	out := make([]string, len(runs))
	for i, run := range runs {
		out[i] = run.Text
	}
	return out
}

type captionsJSON struct {
	CaptionTracks        []captionTrackJSON        `json:"captionTracks"`
	TranslationLanguages []translationLanguageJSON `json:"translationLanguages"`
}

type captionTrackJSON struct {
	BaseURL        string    `json:"baseUrl"`
	Name           textValue `json:"name"`
	LanguageCode   string    `json:"languageCode"`
	Kind           string    `json:"kind"`
	IsTranslatable bool      `json:"isTranslatable"`
}

type translationLanguageJSON struct {
	LanguageName textValue `json:"languageName"`
	LanguageCode string    `json:"languageCode"`
}

type textRun struct {
	Text string `json:"text"`
}

// textValue covers both generations of the platform's text encoding:
// {"simpleText": "English"} and {"runs": [{"text": "English"}]}.
type textValue struct {
	SimpleText string    `json:"simpleText"`
	Runs       []textRun `json:"runs"`
}

func (v textValue) value() string {
	if v.SimpleText != "" {
		return v.SimpleText
	}
	if len(v.Runs) > 0 {
		return v.Runs[0].Text
	}
	return ""
}
