package workflow

import (
	"errors"
	"fmt"
)

// InputTooShortError rejects input before any stage runs. It is the only
// error that aborts a run.
type InputTooShortError struct {
	Length int
	Min    int
}

func (e *InputTooShortError) Error() string {
	return fmt.Sprintf("input too short: %d chars, need at least %d", e.Length, e.Min)
}

// ValidationError reports a platform shape violation in generated output
type ValidationError struct {
	Platform Platform
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s draft invalid: %s", e.Platform, e.Reason)
}

// ErrGenerationTimeout wraps a generation call that exceeded its deadline
var ErrGenerationTimeout = errors.New("generation timed out")

// ErrGenerationProvider wraps a non-timeout generation backend failure
var ErrGenerationProvider = errors.New("generation provider failed")

// ErrRemediationExhausted marks a post that stayed blocked after the single
// remediation attempt. It is recorded in the error list and downgraded to a
// flag, never propagated.
var ErrRemediationExhausted = errors.New("remediation exhausted")
