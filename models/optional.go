package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// OptionalTime distinguishes a JSON date that was omitted from one that was
// explicitly cleared with null or "".
type OptionalTime struct {
	Set  bool
	Time *time.Time
}

// UnmarshalJSON accepts RFC3339 timestamps and plain YYYY-MM-DD dates
func (o *OptionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Time = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		o.Time = nil
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	o.Time = &t
	return nil
}

// ParseDate parses an RFC3339 timestamp or a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}
