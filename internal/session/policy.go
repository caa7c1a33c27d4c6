package session

import "time"

// Policy is the auto-advance policy: one explicit state driving one timer
// loop. Auto and skip are mutually exclusive by construction - there are
// no independent timers to race each other.
type Policy int

const (
	// PolicyOff disables timer-driven progress.
	PolicyOff Policy = iota

	// PolicyAuto performs one progress step per AutoDelay interval.
	PolicyAuto

	// PolicySkip performs one progress step per SkipDelay interval.
	PolicySkip
)

func (p Policy) String() string {
	switch p {
	case PolicyOff:
		return "off"
	case PolicyAuto:
		return "auto"
	case PolicySkip:
		return "skip"
	default:
		return "unknown"
	}
}

// delay returns the step interval for the policy; 0 means no stepping.
func (p Policy) delay(cfg Config) time.Duration {
	switch p {
	case PolicyAuto:
		return cfg.AutoDelay
	case PolicySkip:
		return cfg.SkipDelay
	default:
		return 0
	}
}
