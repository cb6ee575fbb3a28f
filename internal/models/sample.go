package models

// SampleDateLayout is the ISO-8601 layout of sample keys (UTC, millisecond precision).
const SampleDateLayout = "2006-01-02T15:04:05.000Z"

// Sample is one entry of the budget history.
type Sample struct {
	// Date is the ISO-8601 creation time. It is unique within a history and acts as its key.
	Date string `json:"date"`

	// Data is the JSON-encoded snapshot of the account and users.
	Data string `json:"data"`

	// Note is an optional comment.
	Note string `json:"note,omitempty"`
}

// SampleUpdate is a partial sample update. Nil fields are left untouched.
type SampleUpdate struct {
	Note *string `json:"note,omitempty"`
}
