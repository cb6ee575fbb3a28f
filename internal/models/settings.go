package models

// SortType is the household-wide ordering preference for transactions, expenses and payments.
type SortType string

const (
	// SortAbc orders by name, A to Z.
	SortAbc SortType = "abc"
	// SortZyx orders by name, Z to A.
	SortZyx SortType = "zyx"
	// SortAsc orders by amount, smallest first.
	SortAsc SortType = "asc"
	// SortDesc orders by amount, largest first.
	SortDesc SortType = "desc"
)

// Valid reports whether s is a known sort type.
func (s SortType) Valid() bool {
	switch s {
	case SortAbc, SortZyx, SortAsc, SortDesc:
		return true
	}
	return false
}

// Settings holds the global preferences of the household.
type Settings struct {
	// Currency is an ISO 4217 code (e.g. "EUR", "CHF").
	Currency string `json:"currency"`

	// Sort is the ordering used by every sorted view.
	Sort SortType `json:"sort"`

	// TwoDecimals asks clients to always display two decimals.
	TwoDecimals bool `json:"twoDecimals"`
}

// DefaultSettings returns the settings of a fresh household.
func DefaultSettings() Settings {
	return Settings{
		Currency:    "EUR",
		Sort:        SortDesc,
		TwoDecimals: false,
	}
}

// SettingsUpdate is a partial settings change. Nil fields are left untouched.
type SettingsUpdate struct {
	Currency    *string   `json:"currency,omitempty"`
	Sort        *SortType `json:"sort,omitempty"`
	TwoDecimals *bool     `json:"twoDecimals,omitempty"`
}
