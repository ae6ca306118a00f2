package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timestamp is a nullable point in time read from an upstream table.
// Values that cannot be parsed are kept as invalid timestamps with the
// original text in Raw, so callers can decide how to treat them.
type Timestamp struct {
	Time  time.Time
	Valid bool
	Raw   string
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: !t.IsZero()}
}

func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, Valid: true}
		}
	}
	return Timestamp{Raw: s}
}

// Scan never fails: unreadable values become invalid timestamps.
func (t *Timestamp) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = Timestamp{}
	case time.Time:
		*t = NewTimestamp(v)
	case string:
		*t = ParseTimestamp(v)
	case []byte:
		*t = ParseTimestamp(string(v))
	default:
		*t = Timestamp{Raw: fmt.Sprint(v)}
	}
	return nil
}

func (t Timestamp) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.Time, nil
}

func (Timestamp) GormDataType() string {
	return "time"
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	switch {
	case t.Valid:
		return json.Marshal(t.Time.Format(time.RFC3339Nano))
	case t.Raw != "":
		return json.Marshal(t.Raw)
	default:
		return []byte("null"), nil
	}
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string or null: %w", err)
	}
	*t = ParseTimestamp(s)
	return nil
}

// String formats valid timestamps as "2006-01-02 15:04:05" and returns the
// raw text otherwise.
func (t Timestamp) String() string {
	if !t.Valid {
		return t.Raw
	}
	return t.Time.Format("2006-01-02 15:04:05")
}
