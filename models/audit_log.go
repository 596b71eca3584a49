package models

import "time"

// Audit actions
const (
	ActionUpdate  = "update"
	ActionComment = "comment"
)

// TimestampLayout is the ISO-8601 UTC form used for audit timestamps.
// Fixed width, so lexical order equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// AuditEntry represents one recorded change to a record
type AuditEntry struct {
	ID        int64   `json:"id"`
	Timestamp string  `json:"ts"`
	User      string  `json:"user"`
	Action    string  `json:"action"`
	RowNumber int64   `json:"rowNumber"`
	Details   string  `json:"details"`
	Before    *string `json:"before,omitempty"`
	After     *string `json:"after,omitempty"`
}

// FormatTimestamp renders t in the audit timestamp layout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// AuditFilter narrows audit queries. Empty fields are ignored.
type AuditFilter struct {
	Action string
	User   string
	From   string
	To     string
	Limit  int
}
