package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is one fetched resource (a board or an organization member) as
// returned by the API. Records are read-only once fetched.
type Record map[string]any

// Value returns the raw value stored under key.
func (r Record) Value(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// String renders the value under key as text. Missing and null values
// render as the empty string.
func (r Record) String(key string) string {
	return formatValue(r[key])
}

// StringOr is like String but returns def when the key is absent or null.
func (r Record) StringOr(key, def string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return def
	}
	return formatValue(v)
}

// Bool reports whether the value under key is the boolean true.
func (r Record) Bool(key string) bool {
	b, ok := r[key].(bool)
	return ok && b
}

// Nested returns the nested record under key, or nil when the key is
// absent or not an object.
func (r Record) Nested(key string) Record {
	switch v := r[key].(type) {
	case map[string]any:
		return Record(v)
	case Record:
		return v
	default:
		return nil
	}
}

// Strings returns the value under key as a list of strings.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, formatValue(item))
		}
		return out
	default:
		return nil
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// Page is one response of a paginated collection. NextToken is empty on
// the last page.
type Page struct {
	Records   []Record
	NextToken string
}

// HasNext reports whether another page follows.
func (p *Page) HasNext() bool {
	return p.NextToken != ""
}

// AggregateResult pairs a derived count with the threshold it is compared to.
type AggregateResult struct {
	Count     int `json:"count"`
	Threshold int `json:"threshold"`
}

// AlertMessage is the outcome of a license decision. It is either
// WithinLimit or Overage.
type AlertMessage interface {
	alertMessage()
	// Counts returns the used and total license counts.
	Counts() (used, total int)
}

// WithinLimit is produced when used licenses do not exceed the total.
type WithinLimit struct {
	Used      int `json:"used"`
	Total     int `json:"total"`
	Available int `json:"available"`
}

func (WithinLimit) alertMessage() {}

func (m WithinLimit) Counts() (used, total int) { return m.Used, m.Total }

// Overage is produced when used licenses exceed the total.
type Overage struct {
	Used   int `json:"used"`
	Total  int `json:"total"`
	Excess int `json:"excess"`
}

func (Overage) alertMessage() {}

func (m Overage) Counts() (used, total int) { return m.Used, m.Total }

// LicenseReport is the result of checking one organization.
type LicenseReport struct {
	OrgID     string          `json:"org_id"`
	Members   int             `json:"members"`
	Aggregate AggregateResult `json:"aggregate"`
	Message   AlertMessage    `json:"message"`
}
