// Package period derives storage keys and calendar periods for a user's
// ledger. Everything here is pure: no clock, no store.
//
// Keys are colon separated with the user as the second segment. Day keys
// embed their month key, so every daily archive of a month shares the
// prefix "daily-archive:<user>:<YYYY-MM>-".
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ledgerbook/internal/core"
)

const (
	// DefaultUser is used when no username is supplied.
	DefaultUser = "default"

	// MonthLayout is the format of a month key.
	MonthLayout = "2006-01"

	maxUserLength = 64
)

const (
	prefixLedger         = "transactions"
	prefixDailyArchive   = "daily-archive"
	prefixMonthlyArchive = "monthly-archive"
	prefixReport         = "monthly-report"
	prefixDeleteLog      = "delete-log"
	prefixLimit          = "spending-limit"
	prefixMarkers        = "close-markers"
)

var (
	ErrInvalidUser  = errors.New("invalid user")
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidMonth = errors.New("invalid month")
)

// NormalizeUser trims name and checks it can be embedded in a key.
func NormalizeUser(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultUser, nil
	}
	if len(name) > maxUserLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidUser, maxUserLength)
	}
	for _, r := range name {
		if !validUserRune(r) {
			return "", fmt.Errorf("%w: unsupported character %q", ErrInvalidUser, r)
		}
	}
	return name, nil
}

func validUserRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '@', r == '-':
		return true
	}
	return false
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// ParseMonth validates a YYYY-MM month key and returns it canonicalized.
func ParseMonth(s string) (string, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return t.Format(MonthLayout), nil
}

// MonthKey returns the YYYY-MM key of the month d falls in.
func MonthKey(d core.Date) string {
	return d.Format(MonthLayout)
}

// Yesterday is the calendar day before d. The decrement is done on the
// calendar date, never by subtracting a fixed duration, so it is correct
// across DST and month ends.
func Yesterday(d core.Date) core.Date {
	return d.AddDays(-1)
}

// FirstDay returns the first calendar day of month.
func FirstDay(month string) (core.Date, error) {
	t, err := time.Parse(MonthLayout, month)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	return core.NewDate(t.Year(), int(t.Month()), 1), nil
}

// PreviousMonth returns the month key before month.
func PreviousMonth(month string) (string, error) {
	first, err := FirstDay(month)
	if err != nil {
		return "", err
	}
	return MonthKey(first.AddDays(-1)), nil
}

// MonthName renders a month key as e.g. "January 2025".
func MonthName(month string) string {
	t, err := time.Parse(MonthLayout, month)
	if err != nil {
		return month
	}
	return t.Format("January 2006")
}

// DaysIn returns the number of days in month.
func DaysIn(month string) (int, error) {
	first, err := FirstDay(month)
	if err != nil {
		return 0, err
	}
	return first.Time.AddDate(0, 1, -1).Day(), nil
}

// InMonth reports whether d falls in month.
func InMonth(d core.Date, month string) bool {
	return MonthKey(d) == month
}
