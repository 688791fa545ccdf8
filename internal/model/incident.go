// Package model defines the core domain types for Monban.
//
// Types are shared across the classifier, duplicate detector,
// escalation analyzer, and the incident store. Strong typing (enums,
// time.Time) is preferred over loose maps wherever possible.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Category is the product area an incident is filed against.
type Category string

const (
	CategorySoftware Category = "Software"
	CategoryPlatform Category = "Platform"
	CategoryAccount  Category = "Account"
	CategoryOther    Category = "Other"
)

// ParseCategory maps free-form user input onto a known category.
// Matching is case-insensitive; unknown values are an error.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "software":
		return CategorySoftware, nil
	case "platform":
		return CategoryPlatform, nil
	case "account":
		return CategoryAccount, nil
	case "other":
		return CategoryOther, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
}

// Status is the lifecycle state of an incident.
type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
)

// ParseStatus maps free-form input onto a known status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return StatusOpen, nil
	case "in progress", "in_progress":
		return StatusInProgress, nil
	case "resolved":
		return StatusResolved, nil
	case "closed":
		return StatusClosed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Active reports whether the status counts as unresolved work.
func (s Status) Active() bool {
	return s == StatusOpen || s == StatusInProgress
}

// Incident is a persisted support incident.
// The ID is sequential per user in the form "BUG-00042".
type Incident struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Category       Category  `json:"category"`
	Description    string    `json:"description"`
	DateObserved   string    `json:"date_observed"`
	Level          int       `json:"level"`
	Status         Status    `json:"status"`
	NormalizedHash string    `json:"normalized_hash"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Contact is a user's notification address, kept separately from
// incidents so it can be updated without touching report history.
type Contact struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
