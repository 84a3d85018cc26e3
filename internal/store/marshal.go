package store

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// timeLayout is fixed-width RFC3339 with nanoseconds, always UTC. Constant
// width means lexicographic comparison in SQL equals chronological order,
// which the report window predicates rely on.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// formatTime serializes a timestamp for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime deserializes a stored timestamp.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

// parseNullTime deserializes an optional stored timestamp.
func parseNullTime(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseMoney deserializes a stored decimal amount.
func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse stored amount %q: %w", s, err)
	}
	return d, nil
}

// parseNullMoney deserializes an optional stored decimal amount.
func parseNullMoney(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := parseMoney(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
