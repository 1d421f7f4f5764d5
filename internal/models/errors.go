package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateKey    = errors.New("duplicate key violation")
	ErrOddsUnavailable = errors.New("no market quote for combination")
)

// InvalidParameterError reports a malformed input that fails a race
// before any sampling or optimization runs. It is fatal for the race it
// names but must never abort the rest of a batch.
type InvalidParameterError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Param, e.Value, e.Reason)
}

// IsInvalidParameter reports whether err is an InvalidParameterError
func IsInvalidParameter(err error) bool {
	var ipe *InvalidParameterError
	return errors.As(err, &ipe)
}
