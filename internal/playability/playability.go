// Package playability classifies the player's reported playability status
// into the failure taxonomy. Pure decision logic, no I/O.
package playability

import "strings"

// Status is the decoded playabilityStatus fragment of a player response.
// A zero Status (absent fragment) classifies as OK.
type Status struct {
	Status     string
	Reason     string
	SubReasons []string
}

// Verdict is the outcome of classifying a Status.
type Verdict int

const (
	// OK passes the pipeline on to caption extraction.
	OK Verdict = iota
	// RequestBlocked is the bot-detection login wall. Retryable via proxy
	// rotation.
	RequestBlocked
	// AgeRestricted requires an authenticated session.
	AgeRestricted
	// InvalidVideoID means the caller passed a URL instead of a video id.
	InvalidVideoID
	// VideoUnavailable means the video does not exist anymore.
	VideoUnavailable
	// Unplayable covers every other non-OK state; Reason and SubReasons of
	// the Status describe it.
	Unplayable
)

const (
	statusOK            = "OK"
	statusError         = "ERROR"
	statusLoginRequired = "LOGIN_REQUIRED"

	reasonAgeRestricted = "Sign in to confirm your age"
	reasonUnavailable   = "Video unavailable"

	// The live platform uses a U+2019 apostrophe in the bot-detection
	// reason; responses in the wild also show the ASCII variant.
	reasonBotDetected      = "Sign in to confirm you’re not a bot"
	reasonBotDetectedASCII = "Sign in to confirm you're not a bot"
)

// Classify maps a playability status to a verdict, following the platform's
// status/reason combinations. videoID is only inspected to tell an invalid
// id (a pasted URL) apart from a genuinely unavailable video.
func Classify(s Status, videoID string) Verdict {
	if s.Status == "" || s.Status == statusOK {
		return OK
	}

	if s.Status == statusLoginRequired {
		switch s.Reason {
		case reasonBotDetected, reasonBotDetectedASCII:
			return RequestBlocked
		case reasonAgeRestricted:
			return AgeRestricted
		}
	}

	if s.Status == statusError && s.Reason == reasonUnavailable {
		if strings.HasPrefix(videoID, "http://") || strings.HasPrefix(videoID, "https://") {
			return InvalidVideoID
		}
		return VideoUnavailable
	}

	return Unplayable
}
