package pmxt

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across venues.
var (
	// ErrAuthRequired is returned by every trading or account operation on
	// a facade constructed without usable credentials.
	ErrAuthRequired = errors.New("authentication required: construct the exchange with credentials")

	// ErrNotSupported is returned by the Unsupported stub set for
	// operations a venue does not implement.
	ErrNotSupported = errors.New("operation not supported by this venue")
)

// ConfigError reports missing or malformed credential fields. It is raised
// synchronously, before any network call.
type ConfigError struct {
	Venue Venue
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: invalid configuration (%s): %s", e.Venue, e.Field, e.Msg)
}

// ValidationError reports a malformed identity or parameter supplied to a
// history, trade, or order operation. Raised before any network call.
type ValidationError struct {
	Venue Venue
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Venue, e.Msg)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfig reports whether err is a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
