package models

import "fmt"

// DataFormatError reports malformed client input: a defect map or listing
// record missing its expected structure. Never retried; scoring is
// deterministic and a retry reproduces the failure.
type DataFormatError struct {
	Reason string
	Err    error
}

func (e *DataFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed input: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed input: %s", e.Reason)
}

func (e *DataFormatError) Unwrap() error { return e.Err }

// MissingFallbackError means no record in a training batch carries usable
// ram and storage strings, leaving nothing to substitute into incomplete
// records. The batch is unusable as a whole.
type MissingFallbackError struct{}

func (e *MissingFallbackError) Error() string {
	return "no training record has usable ram and storage values"
}

// InsufficientDataError means too few comparable listings survived cleaning
// to fit a model. Broadening the search is the caller's remedy.
type InsufficientDataError struct {
	Rows int
	Min  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient market data: %d usable listings, need at least %d", e.Rows, e.Min)
}
