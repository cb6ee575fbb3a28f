package models

// AccountType distinguishes the household account from a member's own account.
type AccountType string

const (
	// Common is the single shared account of the household.
	Common AccountType = "common"
	// Personal is the account owned by one user.
	Personal AccountType = "personal"
)

// AccountSettings holds display preferences of an account.
type AccountSettings struct {
	// Show tells, per ledger, whether clients should display it.
	Show map[Kind]bool `json:"show"`
}

// DefaultAccountSettings shows every ledger.
func DefaultAccountSettings() AccountSettings {
	return AccountSettings{Show: map[Kind]bool{
		Incomes:          true,
		Expenses:         true,
		PersonalExpenses: true,
	}}
}
