package models

import "strings"

// Locality maps a locality name to its two jurisdiction codes
type Locality struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Alias string `json:"alias"`
	PP    string `json:"pp"`
	UC    string `json:"uc"`
}

// LocalityForm represents data for creating/updating a locality
type LocalityForm struct {
	Name  string `json:"name"`
	Alias string `json:"alias"`
	PP    any    `json:"pp"`
	UC    any    `json:"uc"`
}

// Validate validates the locality form data
func (f *LocalityForm) Validate() []string {
	var errors []string

	if strings.TrimSpace(f.Name) == "" {
		errors = append(errors, "name required")
	}

	return errors
}

// ToLocality trims the name and normalizes both codes
func (f *LocalityForm) ToLocality() Locality {
	return Locality{
		Name:  strings.TrimSpace(f.Name),
		Alias: f.Alias,
		PP:    codeText(f.PP),
		UC:    codeText(f.UC),
	}
}

func codeText(v any) string {
	s := ToText(v)
	if s == nil {
		return ""
	}
	return NormalizeCode(*s)
}
