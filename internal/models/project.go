package models

import "time"

// Expense is one line of a project: a quantity of something at a unit price.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string `json:"id"`

	// Name is the trimmed, non-empty description (e.g. "Paint", "Plumber").
	Name string `json:"name"`

	// Quantity is the number of units, never negative.
	Quantity float64 `json:"quantity"`

	// Price is the unit price, never negative.
	Price float64 `json:"price"`

	// Note is an optional comment.
	Note string `json:"note,omitempty"`
}

// ExpenseDraft holds the user input for a new expense.
type ExpenseDraft struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Note     string  `json:"note,omitempty"`
}

// ExpenseUpdate is a partial expense update. Nil fields are left untouched.
type ExpenseUpdate struct {
	Name     *string  `json:"name,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Note     *string  `json:"note,omitempty"`
}

// ExpenseList is an ordered view of a project's expenses.
type ExpenseList struct {
	Values []Expense `json:"values"`
	Sum    float64   `json:"sum"`
}

// Payment records money a resident put into a project.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string `json:"id"`

	// Resident is the name of the person who paid.
	Resident string `json:"resident"`

	// Value is the amount paid, never negative.
	Value float64 `json:"value"`

	// Date is when the payment was recorded. Set at creation.
	Date time.Time `json:"date"`

	// Comment is an optional description.
	Comment string `json:"comment"`
}

// PaymentDraft holds the user input for a new payment.
type PaymentDraft struct {
	Resident string  `json:"resident"`
	Value    float64 `json:"value"`
	Comment  string  `json:"comment"`
}

// PaymentUpdate is a partial payment update. Nil fields are left untouched.
type PaymentUpdate struct {
	Resident *string    `json:"resident,omitempty"`
	Value    *float64   `json:"value,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
	Comment  *string    `json:"comment,omitempty"`
}

// PaymentGroup gathers the payments of one resident.
type PaymentGroup struct {
	Resident string    `json:"resident"`
	List     []Payment `json:"list"`
	Sum      float64   `json:"sum"`
}

// Resident is a household member as seen by a project once frozen.
type Resident struct {
	Name  string  `json:"name"`
	Ratio float64 `json:"ratio"`
}
