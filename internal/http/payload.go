package http

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// localLayouts are wall-clock forms read in the booking policy's location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var errInvalidTimestamp = errors.New("must be an RFC 3339 or YYYY-MM-DDTHH:MM timestamp")

// parseTimestamp accepts RFC 3339 or a zone-less local time in loc.
// An empty value yields the zero time.
func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errInvalidTimestamp
}

func formatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// equipmentField accepts either a JSON string or a list of strings. Lists are
// joined with ", ".
type equipmentField string

func (e *equipmentField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = ""
		return nil
	}
	if data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("equipment: %w", err)
		}
		kept := items[:0]
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				kept = append(kept, item)
			}
		}
		*e = equipmentField(strings.Join(kept, ", "))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("equipment: %w", err)
	}
	*e = equipmentField(strings.TrimSpace(s))
	return nil
}

// countField accepts a JSON number or a numeric string.
type countField int

func (c *countField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*c = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("attendees_count: %q is not a number", s)
		}
		*c = countField(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("attendees_count: %w", err)
	}
	*c = countField(n)
	return nil
}
