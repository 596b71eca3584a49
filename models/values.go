package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Canonical stored forms of the yes/no working fields
const (
	Truthy = "1"
	Falsy  = "0"
)

// Well-known column names the write path treats specially
const (
	ColumnPP           = "PP"
	ColumnUC           = "UC"
	ColumnLocalityName = "LocalityName"
	ColumnLocality     = "Locality"
	ColumnComments     = "Comments"
)

var booleanField = regexp.MustCompile(`(?i)^(Called|Visited|ConfirmedVoter)$`)

var truthyWords = map[string]bool{"1": true, "true": true, "yes": true, "y": true, "on": true}

// Values maps column names to nullable text
type Values map[string]*string

// Names returns the column names sorted
func (v Values) Names() []string {
	names := make([]string, 0, len(v))
	for k := range v {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Input is a loosely typed field mapping as decoded from a request body
type Input map[string]any

// IsBooleanField reports whether column holds a normalized yes/no value
func IsBooleanField(column string) bool {
	return booleanField.MatchString(column)
}

// NormalizeBoolean maps truthy forms to "1" and everything else to "0"
func NormalizeBoolean(value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return Truthy
		}
		return Falsy
	case float64:
		if v == 1 {
			return Truthy
		}
		return Falsy
	case int:
		if v == 1 {
			return Truthy
		}
		return Falsy
	case int64:
		if v == 1 {
			return Truthy
		}
		return Falsy
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 1 {
			return Truthy
		}
		return Falsy
	case string:
		if truthyWords[strings.ToLower(strings.TrimSpace(v))] {
			return Truthy
		}
		return Falsy
	case *string:
		if v == nil {
			return Falsy
		}
		return NormalizeBoolean(*v)
	}
	return Falsy
}

// ToText converts a decoded JSON value to nullable column text
func ToText(value any) *string {
	var s string
	switch v := value.(type) {
	case nil:
		return nil
	case *string:
		return v
	case string:
		s = v
	case bool:
		s = strconv.FormatBool(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case json.Number:
		s = v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprint(v)
		} else {
			s = string(b)
		}
	}
	return &s
}

// NormalizeInput drops the identifier, coerces yes/no fields and converts
// everything else to nullable text
func NormalizeInput(in Input) Values {
	out := make(Values, len(in))
	for k, v := range in {
		if k == IDField || k == "" {
			continue
		}
		if IsBooleanField(k) {
			s := NormalizeBoolean(v)
			out[k] = &s
			continue
		}
		out[k] = ToText(v)
	}
	return out
}

// NormalizeCode trims a jurisdiction code and drops any fractional suffix,
// undoing spreadsheet number formatting ("123.0" -> "123")
func NormalizeCode(code string) string {
	s := strings.TrimSpace(code)
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}
	return s
}

// Str returns a pointer to s
func Str(s string) *string {
	return &s
}

// Int returns a pointer to n
func Int(n int) *int {
	return &n
}
