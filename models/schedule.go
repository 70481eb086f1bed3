package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	// MinFrequency is the fewest doses a treatment can schedule per day
	MinFrequency = 1
	// MaxFrequency is the most doses a treatment can schedule per day
	MaxFrequency = 24
	// DefaultStartTime is used when a treatment is created without a start time
	DefaultStartTime = "08:00"

	minutesPerDay = 24 * 60
)

var timeOfDayPattern = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidTimeOfDay reports whether s is a zero-padded 24-hour "HH:MM" string
func ValidTimeOfDay(s string) bool {
	return timeOfDayPattern.MatchString(s)
}

// ParseTimeOfDay splits a "HH:MM" string into its hour and minute
func ParseTimeOfDay(s string) (int, int, error) {
	if !ValidTimeOfDay(s) {
		return 0, 0, NewValidationError(fmt.Sprintf("invalid time %q (must be HH:MM)", s))
	}
	hour, _ := strconv.Atoi(s[:2])
	minute, _ := strconv.Atoi(s[3:])
	return hour, minute, nil
}

// FormatTimeOfDay renders the wall-clock hour and minute of t as "HH:MM"
func FormatTimeOfDay(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// ValidFrequency reports whether frequency is within the allowed doses per day
func ValidFrequency(frequency int) bool {
	return frequency >= MinFrequency && frequency <= MaxFrequency
}

// IntervalHours is the spacing between doses for the given daily frequency.
// It may be fractional, e.g. 4.8 for five doses a day.
func IntervalHours(frequency int) float64 {
	return 24 / float64(frequency)
}

// GenerateSlots builds the ordered list of dose times for one day, starting at
// startTime. Slot i sits at i*1440/frequency minutes after the start, floored
// to the minute on its own, so rounding never accumulates across the day. Slots
// wrap past midnight but keep generation order.
func GenerateSlots(startTime string, frequency int) ([]string, error) {
	if !ValidFrequency(frequency) {
		return nil, NewValidationError(fmt.Sprintf("frequency must be between %d and %d", MinFrequency, MaxFrequency))
	}
	hour, minute, err := ParseTimeOfDay(startTime)
	if err != nil {
		return nil, err
	}

	start := hour*60 + minute

	slots := make([]string, 0, frequency)
	for i := 0; i < frequency; i++ {
		total := (start + i*minutesPerDay/frequency) % minutesPerDay
		slots = append(slots, fmt.Sprintf("%02d:%02d", total/60, total%60))
	}
	return slots, nil
}
