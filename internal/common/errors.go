// Package common defines shared constants and sentinel errors used across
// mediagate layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Configuration errors.
	ErrorInvalidConfig = errors.New("invalid config")

	// Input errors (CLI arguments, event files).
	ErrorInvalidInput = errors.New("invalid input")
)
