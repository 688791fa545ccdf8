package model

import "errors"

// Sentinel errors shared across the triage pipeline.
var (
	// ErrEmptyDescription is returned when an issue description is
	// empty or whitespace-only at a point that requires real text.
	ErrEmptyDescription = errors.New("model: empty description")

	// ErrInvalidCategory is returned by ParseCategory for unknown input.
	ErrInvalidCategory = errors.New("model: invalid category")

	// ErrInvalidStatus is returned by ParseStatus for unknown input.
	ErrInvalidStatus = errors.New("model: invalid status")

	// ErrInvalidLevel is returned when a severity level is outside 1..5.
	ErrInvalidLevel = errors.New("model: severity level must be between 1 and 5")
)

// ValidLevel reports whether lvl is a legal severity level.
func ValidLevel(lvl int) bool { return lvl >= 1 && lvl <= 5 }
