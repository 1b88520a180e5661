package control

import "errors"

// ErrModeConflict is returned when a manual relay command arrives while
// the controller is in automatic mode.
var ErrModeConflict = errors.New("manual relay command requires manual mode")

// ErrInvalidThresholds is returned when a threshold update would invert a
// hysteresis band. Inverted bands break the non-chattering guarantee, so
// they are rejected rather than accepted with degraded behavior.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// ErrUnknownChannel is returned for a relay channel other than lamp or motor.
var ErrUnknownChannel = errors.New("unknown relay channel")
