package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var jsonNull = []byte("null")

// ID is an opaque row identifier. The hosted backend may send it as a JSON
// number or a string; it is always kept as text.
type ID string

func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, jsonNull) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// RiskReward is the raw risk/reward text of a trade. Use ParseRR to read it
// as a number.
type RiskReward string

// ParseRR applies the parse-or-zero rule: an empty, non-numeric or
// non-finite value counts as 0.
func ParseRR(rr RiskReward) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(rr)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Valid reports whether rr is empty or a finite number.
func (rr RiskReward) Valid() bool {
	s := strings.TrimSpace(string(rr))
	if s == "" {
		return true
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// UnmarshalJSON accepts numbers, strings and null.
func (rr *RiskReward) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, jsonNull):
		*rr = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*rr = RiskReward(strings.TrimSpace(s))
	default:
		*rr = RiskReward(b)
	}
	return nil
}

// MarshalJSON writes a number when the value parses, null when empty and the
// raw text otherwise.
func (rr RiskReward) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(rr))
	if s == "" {
		return jsonNull, nil
	}
	if rr.Valid() {
		return []byte(strconv.FormatFloat(ParseRR(rr), 'f', -1, 64)), nil
	}
	return json.Marshal(s)
}

// Timestamp is a nullable point in time. Invalid input decodes to an invalid
// Timestamp instead of failing the whole record.
type Timestamp struct {
	Time  time.Time
	Valid bool

	// unparsed holds the input text when decoding failed.
	unparsed string
}

// NewTimestamp wraps t as a valid Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true}
}

var (
	zonedLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05-07",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05-07",
	}
	// Layouts without an offset are read in time.Local, as a browser would.
	naiveLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// ParseTimestamp parses the date formats the hosted backend and the journal
// form produce. An empty string yields an invalid Timestamp and no error.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimestamp(t), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return NewTimestamp(t), nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// UnmarshalJSON decodes a string timestamp. Unparseable values leave the
// Timestamp invalid.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, jsonNull) {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*ts = Timestamp{unparsed: string(b)}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		*ts = Timestamp{unparsed: s}
		return nil
	}
	*ts = parsed
	return nil
}

// Unparsed returns the decoded text that was not a recognisable timestamp.
// ok is false for valid and absent timestamps.
func (ts Timestamp) Unparsed() (text string, ok bool) {
	return ts.unparsed, ts.unparsed != ""
}

// MarshalJSON writes RFC3339 or null.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if !ts.Valid {
		return jsonNull, nil
	}
	return json.Marshal(ts.Time.Format(time.RFC3339Nano))
}

// Scan implements sql.Scanner.
func (ts *Timestamp) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*ts = Timestamp{}
	case time.Time:
		*ts = NewTimestamp(v)
	case string:
		parsed, err := ParseTimestamp(v)
		if err != nil {
			return err
		}
		*ts = parsed
	case []byte:
		parsed, err := ParseTimestamp(string(v))
		if err != nil {
			return err
		}
		*ts = parsed
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", value)
	}
	return nil
}

// Value implements driver.Valuer.
func (ts Timestamp) Value() (driver.Value, error) {
	if !ts.Valid {
		return nil, nil
	}
	return ts.Time, nil
}

// GormDataType tells gorm which column type to migrate.
func (Timestamp) GormDataType() string {
	return "datetime"
}
