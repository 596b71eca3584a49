package models

// Search scopes
const (
	ScopeAll      = "all"
	ScopeUC       = "uc"
	ScopePP       = "pp"
	ScopeLocality = "locality"
)

// Paging bounds for record search
const (
	DefaultSearchLimit = 100
	MaxSearchLimit     = 1000
	DefaultReportLimit = 200
)

// SearchQuery describes one page of a record search.
// A nil Limit selects DefaultSearchLimit.
type SearchQuery struct {
	Query  string
	Scope  string
	Limit  *int
	Offset int
}

// ClampLimit bounds an explicit limit to 1..MaxSearchLimit and returns def when limit is nil
func ClampLimit(limit *int, def int) int {
	if limit == nil {
		return def
	}
	return max(1, min(*limit, MaxSearchLimit))
}

// Normalize clamps limit and offset into their allowed ranges
func (q *SearchQuery) Normalize() {
	limit := ClampLimit(q.Limit, DefaultSearchLimit)
	q.Limit = &limit
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Scope == "" {
		q.Scope = ScopeAll
	}
}

// SearchResult is a page of records plus the total match count
type SearchResult struct {
	Total int64     `json:"total"`
	Items []*Record `json:"items"`
}

// ReportFilter selects records for the activity report.
// Empty fields are ignored.
type ReportFilter struct {
	CalledFrom   string
	CalledTo     string
	VisitedFrom  string
	VisitedTo    string
	UC           string
	PP           string
	Locality     string
	ByUser       string
	ModifiedFrom string
	ModifiedTo   string
	// Limit caps the result; nil selects DefaultReportLimit
	Limit *int
}

// ImportResult summarizes a bulk import
type ImportResult struct {
	Sheet     string   `json:"sheet"`
	Count     int      `json:"count"`
	Columns   []string `json:"columns"`
	Preserved int      `json:"preserved,omitempty"`
}

// CrosscheckReport compares spreadsheet rows with stored records by lawyer name
type CrosscheckReport struct {
	Spreadsheet     int      `json:"xlsx"`
	Database        int      `json:"db"`
	Missing         int      `json:"missing"`
	Extra           int      `json:"extra"`
	SpreadsheetDups int      `json:"xdup"`
	DatabaseDups    int      `json:"ddup"`
	MissingKeys     []string `json:"missingKeys"`
}
