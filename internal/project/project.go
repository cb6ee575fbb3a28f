package project

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/foyer/internal/calculator"
	"github.com/mmynk/foyer/internal/models"
)

// DefaultName is given to projects created without a name.
const DefaultName = "My project"

// Project tracks the expenses of a one-off undertaking and the payments made by the residents.
type Project struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Note      string                     `json:"note,omitempty"`
	CreatedAt time.Time                  `json:"createdAt"`
	UpdatedAt time.Time                  `json:"updatedAt"`
	Expenses  map[string]*models.Expense `json:"expenses"`
	Payments  map[string]*models.Payment `json:"payments"`
	Residents []models.Resident          `json:"residents"`

	clock func() time.Time
}

// New returns an empty project. A blank name falls back to DefaultName.
func New(name string, clock func() time.Time) *Project {
	if clock == nil {
		clock = time.Now
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}

	now := clock().UTC()
	return &Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Expenses:  make(map[string]*models.Expense),
		Payments:  make(map[string]*models.Payment),
		Residents: []models.Resident{},
		clock:     clock,
	}
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	c := *p
	c.Expenses = make(map[string]*models.Expense, len(p.Expenses))
	for id, e := range p.Expenses {
		copied := *e
		c.Expenses[id] = &copied
	}
	c.Payments = make(map[string]*models.Payment, len(p.Payments))
	for id, payment := range p.Payments {
		copied := *payment
		c.Payments[id] = &copied
	}
	c.Residents = slices.Clone(p.Residents)
	if c.Residents == nil {
		c.Residents = []models.Resident{}
	}
	return &c
}

func (p *Project) now() time.Time {
	if p.clock == nil {
		return time.Now().UTC()
	}
	return p.clock().UTC()
}

// Touch marks the project as modified now.
func (p *Project) Touch() {
	p.UpdatedAt = p.now()
}

// CreateExpense validates the draft (name, then price, then quantity) and adds it.
func (p *Project) CreateExpense(draft models.ExpenseDraft) (models.Expense, error) {
	name, err := validateName("name", draft.Name, ErrEmptyName)
	if err != nil {
		return models.Expense{}, err
	}
	if err := validateAmount("price", draft.Price, ErrInvalidPrice); err != nil {
		return models.Expense{}, err
	}
	if err := validateAmount("quantity", draft.Quantity, ErrInvalidQuantity); err != nil {
		return models.Expense{}, err
	}

	e := &models.Expense{
		ID:       uuid.NewString(),
		Name:     name,
		Quantity: draft.Quantity,
		Price:    draft.Price,
		Note:     strings.TrimSpace(draft.Note),
	}
	p.Expenses[e.ID] = e
	if _, err := p.expensesTotal(); err != nil {
		delete(p.Expenses, e.ID)
		return models.Expense{}, totalError("expense", err)
	}
	p.Touch()
	return *e, nil
}

// UpdateExpense applies the fields present in update, validated in the same order as CreateExpense.
func (p *Project) UpdateExpense(id string, update models.ExpenseUpdate) error {
	e, ok := p.Expenses[id]
	if !ok {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}

	draft := *e
	var err error
	if update.Name != nil {
		if draft.Name, err = validateName("name", *update.Name, ErrEmptyName); err != nil {
			return err
		}
	}
	if update.Price != nil {
		if err := validateAmount("price", *update.Price, ErrInvalidPrice); err != nil {
			return err
		}
		draft.Price = *update.Price
	}
	if update.Quantity != nil {
		if err := validateAmount("quantity", *update.Quantity, ErrInvalidQuantity); err != nil {
			return err
		}
		draft.Quantity = *update.Quantity
	}
	if update.Note != nil {
		draft.Note = strings.TrimSpace(*update.Note)
	}

	previous := *e
	*e = draft
	if _, err := p.expensesTotal(); err != nil {
		*e = previous
		return totalError("expense", err)
	}
	p.Touch()
	return nil
}

// DeleteExpense removes the expense id.
func (p *Project) DeleteExpense(id string) error {
	if _, ok := p.Expenses[id]; !ok {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	delete(p.Expenses, id)
	p.Touch()
	return nil
}

// CreatePayment validates the draft (resident, then value) and records it, dated now.
func (p *Project) CreatePayment(draft models.PaymentDraft) (models.Payment, error) {
	resident, err := validateName("resident", draft.Resident, ErrEmptyResident)
	if err != nil {
		return models.Payment{}, err
	}
	if err := validateAmount("value", draft.Value, ErrInvalidValue); err != nil {
		return models.Payment{}, err
	}

	payment := &models.Payment{
		ID:       uuid.NewString(),
		Resident: resident,
		Value:    draft.Value,
		Date:     p.now(),
		Comment:  strings.TrimSpace(draft.Comment),
	}
	p.Payments[payment.ID] = payment
	if _, err := p.paymentsTotal(); err != nil {
		delete(p.Payments, payment.ID)
		return models.Payment{}, totalError("payment", err)
	}
	p.Touch()
	return *payment, nil
}

// UpdatePayment applies the fields present in update. The date only changes when given.
func (p *Project) UpdatePayment(id string, update models.PaymentUpdate) error {
	payment, ok := p.Payments[id]
	if !ok {
		return fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}

	draft := *payment
	var err error
	if update.Resident != nil {
		if draft.Resident, err = validateName("resident", *update.Resident, ErrEmptyResident); err != nil {
			return err
		}
	}
	if update.Value != nil {
		if err := validateAmount("value", *update.Value, ErrInvalidValue); err != nil {
			return err
		}
		draft.Value = *update.Value
	}
	if update.Date != nil {
		draft.Date = update.Date.UTC()
	}
	if update.Comment != nil {
		draft.Comment = strings.TrimSpace(*update.Comment)
	}

	previous := *payment
	*payment = draft
	if _, err := p.paymentsTotal(); err != nil {
		*payment = previous
		return totalError("payment", err)
	}
	p.Touch()
	return nil
}

// DeletePayment removes the payment id.
func (p *Project) DeletePayment(id string) error {
	if _, ok := p.Payments[id]; !ok {
		return fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	delete(p.Payments, id)
	p.Touch()
	return nil
}

// ExpensesSorted returns the expenses in the requested order with the sum of their line totals.
func (p *Project) ExpensesSorted(sortType models.SortType) models.ExpenseList {
	sum, err := p.expensesTotal()
	if err != nil {
		slog.Error("Project expenses total is not finite", "project_id", p.ID, "error", err)
	}
	return models.ExpenseList{Values: calculator.SortExpenses(p.Expenses, sortType), Sum: sum}
}

// expensesTotal is the sum of the line totals. Every expense mutation keeps it finite.
func (p *Project) expensesTotal() (float64, error) {
	totals := make([]float64, 0, len(p.Expenses))
	for _, e := range p.Expenses {
		totals = append(totals, calculator.LineTotal(e.Price, e.Quantity))
	}
	return calculator.Sum(totals...)
}

// paymentsTotal is the sum of every payment. Payments are never negative, so a finite
// total also bounds the sum of each resident.
func (p *Project) paymentsTotal() (float64, error) {
	values := make([]float64, 0, len(p.Payments))
	for _, payment := range p.Payments {
		values = append(values, payment.Value)
	}
	return calculator.Sum(values...)
}

// PaymentsByResident groups payments per resident. Groups are ordered by resident name,
// payments inside a group follow sortType.
func (p *Project) PaymentsByResident(sortType models.SortType) []models.PaymentGroup {
	byResident := make(map[string][]models.Payment)
	for _, payment := range p.Payments {
		byResident[payment.Resident] = append(byResident[payment.Resident], *payment)
	}

	groups := make([]models.PaymentGroup, 0, len(byResident))
	for resident, list := range byResident {
		calculator.SortPayments(list, sortType)
		values := make([]float64, len(list))
		for i, payment := range list {
			values[i] = payment.Value
		}
		sum, err := calculator.Sum(values...)
		if err != nil {
			slog.Error("Payments total is not finite", "project_id", p.ID, "resident", resident, "error", err)
		}
		groups = append(groups, models.PaymentGroup{
			Resident: resident,
			List:     list,
			Sum:      sum,
		})
	}

	slices.SortFunc(groups, func(a, b models.PaymentGroup) int {
		return calculator.CompareNames(a.Resident, b.Resident)
	})
	return groups
}

// Freeze records the residents and their ratios as the settlement baseline,
// replacing any previous baseline.
func (p *Project) Freeze(residents []models.Resident) {
	p.Residents = slices.Clone(residents)
	if p.Residents == nil {
		p.Residents = []models.Resident{}
	}
	p.Touch()
}

// Frozen reports whether a settlement baseline exists.
func (p *Project) Frozen() bool {
	return len(p.Residents) > 0
}

// Settlement splits the expenses total among the frozen residents and nets it against the payments.
func (p *Project) Settlement() (calculator.Settlement, error) {
	if !p.Frozen() {
		return calculator.Settlement{}, ErrNotFrozen
	}

	payments := make([]models.Payment, 0, len(p.Payments))
	for _, payment := range p.Payments {
		payments = append(payments, *payment)
	}
	calculator.SortPayments(payments, models.SortAbc)

	total, err := p.expensesTotal()
	if err != nil {
		return calculator.Settlement{}, err
	}
	return calculator.CalculateSettlement(total, p.Residents, payments)
}

// hydrate repairs a project decoded from storage and drops entries that no longer validate.
func (p *Project) hydrate(clock func() time.Time) {
	p.clock = clock
	if p.Expenses == nil {
		p.Expenses = make(map[string]*models.Expense)
	}
	if p.Payments == nil {
		p.Payments = make(map[string]*models.Payment)
	}
	if p.Residents == nil {
		p.Residents = []models.Resident{}
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = DefaultName
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	for id, e := range p.Expenses {
		if e == nil || e.ID != id || strings.TrimSpace(e.Name) == "" ||
			validateAmount("price", e.Price, ErrInvalidPrice) != nil ||
			validateAmount("quantity", e.Quantity, ErrInvalidQuantity) != nil {
			slog.Warn("Dropping invalid expense", "project_id", p.ID, "expense_id", id)
			delete(p.Expenses, id)
		}
	}
	for id, payment := range p.Payments {
		if payment == nil || payment.ID != id || strings.TrimSpace(payment.Resident) == "" ||
			validateAmount("value", payment.Value, ErrInvalidValue) != nil {
			slog.Warn("Dropping invalid payment", "project_id", p.ID, "payment_id", id)
			delete(p.Payments, id)
		}
	}

	dropLargest(p.Expenses, p.expensesTotal, func(e *models.Expense) float64 {
		return calculator.LineTotal(e.Price, e.Quantity)
	})
	dropLargest(p.Payments, p.paymentsTotal, func(payment *models.Payment) float64 {
		return payment.Value
	})
}

// dropLargest removes the largest entries of m until total succeeds.
func dropLargest[T any](m map[string]*T, total func() (float64, error), amount func(*T) float64) {
	if _, err := total(); err == nil {
		return
	}
	ids := slices.Collect(maps.Keys(m))
	slices.SortFunc(ids, func(a, b string) int {
		return cmp.Or(cmp.Compare(amount(m[b]), amount(m[a])), strings.Compare(a, b))
	})
	for _, id := range ids {
		slog.Warn("Dropping entry that overflows the project total", "id", id)
		delete(m, id)
		if _, err := total(); err == nil {
			return
		}
	}
}
