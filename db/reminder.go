package db

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RemindersKey the full reminder collection is stored under
const RemindersKey = "med_reminders"

// Reminder for a recurring dose of a medicine
type Reminder struct {
	ID           string   `json:"id"`
	MedicineName string   `json:"medicineName"`
	Time         string   `json:"time"`
	Dosage       string   `json:"dosage"`
	Days         Weekdays `json:"days"`
	LastNotified string   `json:"lastNotified,omitempty"`
}

// Weekdays a reminder is intended to recur on
type Weekdays []time.Weekday

// EveryDay of the week, starting on Monday
func EveryDay() Weekdays {
	return Weekdays{
		time.Monday,
		time.Tuesday,
		time.Wednesday,
		time.Thursday,
		time.Friday,
		time.Saturday,
		time.Sunday,
	}
}

// Contains the given weekday
func (w Weekdays) Contains(day time.Weekday) bool {
	for _, d := range w {
		if d == day {
			return true
		}
	}

	return false
}

// MarshalJSON as a list of weekday names
func (w Weekdays) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(w))
	for _, d := range w {
		names = append(names, d.String())
	}

	return json.Marshal(names)
}

// UnmarshalJSON from a list of weekday names
func (w *Weekdays) UnmarshalJSON(data []byte) error {
	var names []string
	err := json.Unmarshal(data, &names)
	if err != nil {
		return fmt.Errorf("failed to unmarshal weekdays: %w", err)
	}

	days := make(Weekdays, 0, len(names))
	for _, name := range names {
		day, err := ParseWeekday(name)
		if err != nil {
			return err
		}

		days = append(days, day)
	}

	*w = days

	return nil
}

// ParseWeekday from its english name, case insensitive
func ParseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(name)) {
			return d, nil
		}
	}

	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}
