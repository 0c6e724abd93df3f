package core

import (
	"encoding/json"
	"strings"
	"time"
)

// Table names as exposed by the backend.
const (
	TableTransactions = "transactions"
	TableStudyTasks   = "study_tasks"
)

// TimestampLayout is fixed-width so that lexical order equals time order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Record is a backend row passed through without reshaping.
type Record map[string]any

// Now returns the current UTC time formatted with TimestampLayout.
func Now() string {
	return FormatTimestamp(time.Now())
}

// FormatTimestamp formats t in UTC with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// String returns the value stored under key as a string, or "" when absent.
func (r Record) String(key string) string {
	return StringValue(r[key])
}

// Has reports whether key holds a truthy value.
func (r Record) Has(key string) bool {
	return Truthy(r[key])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Truthy mirrors JavaScript truthiness for decoded JSON values: nil, "",
// false and numeric zero are all falsy.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return strings.TrimSpace(val.String()) != ""
		}
		return f != 0
	case float64:
		return val != 0
	case float32:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	default:
		return true
	}
}

// StringValue converts scalar JSON values to their string form.
func StringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case []byte:
		return string(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}
