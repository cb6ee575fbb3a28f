package models

// Frequency is the billing period a transaction value is expressed in.
type Frequency string

const (
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Biannual  Frequency = "biannual"
	Yearly    Frequency = "yearly"
)

// Frequencies lists every supported frequency from the shortest period to the longest.
var Frequencies = []Frequency{Weekly, Monthly, Quarterly, Biannual, Yearly}

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	for _, known := range Frequencies {
		if f == known {
			return true
		}
	}
	return false
}

// Kind selects one of the three ledgers of an account.
type Kind string

const (
	Incomes          Kind = "incomes"
	Expenses         Kind = "expenses"
	PersonalExpenses Kind = "personalExpenses"
)

// Kinds lists the ledgers of an account in display order.
var Kinds = []Kind{Incomes, Expenses, PersonalExpenses}

// Valid reports whether k names an existing ledger.
func (k Kind) Valid() bool {
	return k == Incomes || k == Expenses || k == PersonalExpenses
}

// Transaction is a single recurring income or expense.
type Transaction struct {
	// ID is the unique identifier (UUID format). It never changes once assigned.
	ID string `json:"id"`

	// Name is the trimmed, non-empty label.
	Name string `json:"name"`

	// Value is the amount as typed by the user. It may be a formula such as "100+50".
	Value string `json:"value"`

	// Frequency is the period Value is expressed in.
	Frequency Frequency `json:"frequency"`

	// Note is an optional free-form comment.
	Note string `json:"note,omitempty"`
}

// TransactionDraft holds the user input for a new transaction.
type TransactionDraft struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	Frequency Frequency `json:"frequency"`
	Note      string    `json:"note,omitempty"`
}

// TransactionUpdate is a partial update. Nil fields are left untouched.
type TransactionUpdate struct {
	Name      *string    `json:"name,omitempty"`
	Value     *string    `json:"value,omitempty"`
	Frequency *Frequency `json:"frequency,omitempty"`
	Note      *string    `json:"note,omitempty"`
}

// Ledger is a keyed collection of transactions with a cached monthly sum.
type Ledger struct {
	// Values maps transaction IDs to transactions.
	Values map[string]*Transaction `json:"values"`

	// Sum is the total of all values normalized to a monthly frequency,
	// rounded to two decimals.
	Sum float64 `json:"sum"`
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{Values: make(map[string]*Transaction)}
}

// TransactionList is an ordered view of a ledger.
type TransactionList struct {
	Values []Transaction `json:"values"`
	Sum    float64       `json:"sum"`
}
