package length

import (
	"math"
	"strconv"
	"strings"
)

// ValidationError is the reason raw input was rejected as a quantity.
type ValidationError uint8

const (
	ErrEmptyInput ValidationError = iota + 1
	ErrNotANumber
	ErrNegativeValue
)

// Error returns the message shown to the user. ErrNotANumber and
// ErrNegativeValue share a message.
func (e ValidationError) Error() string {
	switch e {
	case ErrEmptyInput:
		return "Input cannot be empty"
	case ErrNotANumber, ErrNegativeValue:
		return "Please enter a valid positive number"
	}
	return "invalid input"
}

// Kind returns a stable identifier for e, suitable for machine consumers.
func (e ValidationError) Kind() string {
	switch e {
	case ErrEmptyInput:
		return "empty_input"
	case ErrNotANumber:
		return "not_a_number"
	case ErrNegativeValue:
		return "negative_value"
	}
	return "unknown"
}

// ValidateQuantity parses raw as a non-negative decimal number. raw is not
// trimmed. Zero is accepted.
func ValidateQuantity(raw string) (float64, error) {
	if raw == "" {
		return 0, ErrEmptyInput
	}
	// ParseFloat also takes hex floats and digit separators behind a base prefix
	if strings.ContainsAny(raw, "xX_") {
		return 0, ErrNotANumber
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotANumber
	}
	if v < 0 {
		return 0, ErrNegativeValue
	}
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	return v, nil
}
