package captions

// Platform-specific URLs and literal text fragments the pipeline keys on.
// None of these are stable API — YouTube changes them silently, so they are
// collected here and updated empirically when scraping breaks.

const (
	watchURL = "https://www.youtube.com/watch?v=%s"

	// playerVarName is the JS variable the watch page assigns the embedded
	// player response to.
	playerVarName = "ytInitialPlayerResponse"

	// consentFormMarker shows up on the EU consent interstitial instead of
	// the actual watch page.
	consentFormMarker = `action="https://consent.youtube.com/s"`

	// captchaMarker appears on the "unusual traffic" page served to
	// blocked IPs.
	captchaMarker = `class="g-recaptcha"`

	consentCookieName   = "CONSENT"
	consentCookieDomain = ".youtube.com"

	// translateParam is the query parameter appended to a caption track URL
	// to request a server-side translation.
	translateParam = "tlang"
)

// Playability reason strings, matched verbatim against
// playabilityStatus.reason.
const (
	// reasonBotDetected uses U+2019 (right single quotation mark), not an
	// ASCII apostrophe. reasonBotDetectedASCII covers responses that carry
	// the plain variant.
	reasonBotDetected      = "Sign in to confirm you’re not a bot"
	reasonBotDetectedASCII = "Sign in to confirm you're not a bot"
	reasonAgeRestricted    = "Sign in to confirm your age"
	reasonUnavailable      = "Video unavailable"
)

// InnerTube player API, used as an opt-in alternative to scraping the
// embedded config out of the watch page.
const (
	innertubeAPIURL        = "https://www.youtube.com/youtubei/v1/player?key=%s"
	innertubeClientName    = "ANDROID"
	innertubeClientVersion = "20.10.38"

	innertubeKeyPattern = `"INNERTUBE_API_KEY":\s*"([a-zA-Z0-9_-]+)"`
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
