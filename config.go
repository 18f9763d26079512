package prompta

import "strings"

// Defaults for Config fields. Exit and inactivity responses default to
// empty: those outcomes resolve silently unless a caller opts in.
const (
	DefaultExitToken         = "exit"
	DefaultRejectionResponse = "That is not a valid input. Try again."
)

// Config carries the run-scoped conversation texts. The zero value is
// usable but mute; DefaultConfig is what a Runner starts with.
type Config struct {
	// ExitToken is the inbound content that ends the run voluntarily.
	// Matching trims surrounding whitespace and ignores case. An empty
	// token disables voluntary exit.
	ExitToken string

	// ExitResponse is sent after a voluntary exit. Empty sends nothing.
	ExitResponse string

	// InactivityResponse is sent when the collection duration elapses.
	// Empty sends nothing.
	InactivityResponse string

	// RejectionResponse is the feedback sent when a Rejection carries no
	// reason of its own. Empty sends nothing, leaving the user without
	// feedback, so keep it set unless every transform supplies reasons.
	RejectionResponse string
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		ExitToken:         DefaultExitToken,
		RejectionResponse: DefaultRejectionResponse,
	}
}

func (c Config) matchesExit(content string) bool {
	if c.ExitToken == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(content), c.ExitToken)
}
