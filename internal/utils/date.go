package utils // small parsing helpers shared by handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// ErrBadDate is returned when a travel date cannot be parsed from any
// accepted layout.
var ErrBadDate = errors.New("invalid travel date")

// travelDateLayouts lists the request formats accepted for travel
// dates.  Clients commonly send either a bare calendar date or a full
// RFC3339 timestamp; either way only the calendar day is kept.
var travelDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02 15:04:05",
}

// ParseTravelDate parses s using the accepted layouts and normalizes
// the result to midnight UTC.  It returns ErrBadDate when no layout
// matches or the string is empty.
func ParseTravelDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrBadDate
	}
	for _, layout := range travelDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.NormalizeTravelDate(t), nil
		}
	}
	return time.Time{}, ErrBadDate
}

// CleanSeats trims whitespace from each seat code and drops empties
// while preserving order.  It does not deduplicate; duplicate seat
// codes in a request are a validation error the caller must surface,
// not silently repair.
func CleanSeats(seats []string) []string {
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// DuplicateSeats returns the seat codes that appear more than once in
// seats, each reported once, in first-occurrence order.
func DuplicateSeats(seats []string) []string {
	seen := make(map[string]int, len(seats))
	var dups []string
	for _, s := range seats {
		seen[s]++
		if seen[s] == 2 {
			dups = append(dups, s)
		}
	}
	return dups
}
