// Package datetext resolves the date expressions users type into
// issue reports ("yesterday", "3 days ago", "last monday") to
// calendar dates.
//
// Vague expressions that cannot be pinned to a single day return
// ErrVague so the front end can ask the user to clarify.
package datetext

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrVague is returned for expressions like "recently" that need
// clarification before a date can be recorded.
var ErrVague = errors.New("datetext: expression too vague, ask for a specific date")

// ISO is the storage format for resolved dates.
const ISO = "2006-01-02"

var vagueExpressions = []string{
	"recently", "a while ago", "some time ago", "earlier",
	"the other day", "a few days ago", "not sure", "dont remember",
	"don't remember",
}

var daysAgoPattern = regexp.MustCompile(`^(\d+)\s+days?\s+ago$`)
var lastWeekdayPattern = regexp.MustCompile(`^last\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)$`)

var absoluteFormats = []string{
	ISO,
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Resolve turns a user-supplied date expression into an ISO date
// relative to now. Empty input resolves to today.
func Resolve(input string, now time.Time) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	today := now.Truncate(24 * time.Hour)

	switch s {
	case "", "today", "now":
		return today.Format(ISO), nil
	case "yesterday":
		return today.AddDate(0, 0, -1).Format(ISO), nil
	case "last week":
		return today.AddDate(0, 0, -7).Format(ISO), nil
	}

	for _, vague := range vagueExpressions {
		if s == vague {
			return "", fmt.Errorf("%w: %q", ErrVague, input)
		}
	}

	if m := daysAgoPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 0 {
			return "", fmt.Errorf("datetext: bad day count in %q", input)
		}
		return today.AddDate(0, 0, -n).Format(ISO), nil
	}

	if m := lastWeekdayPattern.FindStringSubmatch(s); m != nil {
		target := weekdays[m[1]]
		// Most recent strictly-past occurrence; "last monday" on a
		// Monday means a week ago.
		delta := int(today.Weekday() - target)
		if delta <= 0 {
			delta += 7
		}
		return today.AddDate(0, 0, -delta).Format(ISO), nil
	}

	for _, layout := range absoluteFormats {
		if t, err := time.Parse(layout, strings.TrimSpace(input)); err == nil {
			return t.Format(ISO), nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrVague, input)
}
