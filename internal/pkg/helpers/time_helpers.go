package helpers

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for activity and opportunity dates.
const DateLayout = "2006-01-02"

var clockLayouts = []string{"15:04", "3:04 PM", "3:04PM", "3 PM", "3PM"}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be formatted as YYYY-MM-DD")
	}
	return t, nil
}

// NormalizeClock accepts 24h or 12h times and returns them as HH:MM.
func NormalizeClock(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("time must look like 14:30 or 2:30 PM")
}
