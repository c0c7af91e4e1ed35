package reminder

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateStampLayout of LastNotified, one value per device-local calendar date
const DateStampLayout = "Mon Jan 02 2006"

// ClockLayout of a reminder time
const ClockLayout = "15:04"

// ErrInvalidTime occurs when a time of day is not in 24-hour HH:MM form
var ErrInvalidTime = errors.New("time must be HH:MM in 24-hour form")

var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// NormalizeTime validates a 24-hour time of day and zero pads the hour
func NormalizeTime(value string) (string, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return "", fmt.Errorf("%q: %w", value, ErrInvalidTime)
	}

	hour := m[1]
	if len(hour) == 1 {
		hour = "0" + hour
	}

	return hour + ":" + m[2], nil
}

// ClockOf t in HH:MM form
func ClockOf(t time.Time) string {
	return t.Format(ClockLayout)
}

// DateStampOf the calendar date of t
func DateStampOf(t time.Time) string {
	return t.Format(DateStampLayout)
}

// NewID for a reminder. Random version 4 UUIDs carry 122 random bits, the
// chance of any collision among a million reminders is below 1e-25.
func NewID() string {
	return uuid.NewString()
}
