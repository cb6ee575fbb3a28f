package budget

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/foyer/internal/calculator"
	"github.com/mmynk/foyer/internal/models"
)

// Account groups the three ledgers of the household or of one member.
// Every mutation leaves the ledger sums consistent with their transactions.
type Account struct {
	Incomes          *models.Ledger         `json:"incomes"`
	Expenses         *models.Ledger         `json:"expenses"`
	PersonalExpenses *models.Ledger         `json:"personalExpenses"`
	Note             string                 `json:"note,omitempty"`
	Type             models.AccountType     `json:"type"`
	Settings         models.AccountSettings `json:"settings"`
}

// NewAccount returns an empty account of the given type.
func NewAccount(t models.AccountType) *Account {
	return &Account{
		Incomes:          models.NewLedger(),
		Expenses:         models.NewLedger(),
		PersonalExpenses: models.NewLedger(),
		Type:             t,
		Settings:         models.DefaultAccountSettings(),
	}
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Incomes = cloneLedger(a.Incomes)
	c.Expenses = cloneLedger(a.Expenses)
	c.PersonalExpenses = cloneLedger(a.PersonalExpenses)
	c.Settings.Show = maps.Clone(a.Settings.Show)
	return &c
}

func cloneLedger(l *models.Ledger) *models.Ledger {
	if l == nil {
		return nil
	}
	c := &models.Ledger{Values: make(map[string]*models.Transaction, len(l.Values)), Sum: l.Sum}
	for id, tx := range l.Values {
		if tx != nil {
			copied := *tx
			c.Values[id] = &copied
		}
	}
	return c
}

// Ledger returns the ledger of the given kind.
func (a *Account) Ledger(kind models.Kind) (*models.Ledger, error) {
	var ledger **models.Ledger
	switch kind {
	case models.Incomes:
		ledger = &a.Incomes
	case models.Expenses:
		ledger = &a.Expenses
	case models.PersonalExpenses:
		ledger = &a.PersonalExpenses
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if *ledger == nil {
		*ledger = models.NewLedger()
	}
	if (*ledger).Values == nil {
		(*ledger).Values = make(map[string]*models.Transaction)
	}
	return *ledger, nil
}

// Create validates the draft and adds it as a new transaction.
// The name is checked before the value; the account is untouched on failure.
func (a *Account) Create(kind models.Kind, draft models.TransactionDraft) (models.Transaction, error) {
	ledger, err := a.Ledger(kind)
	if err != nil {
		return models.Transaction{}, err
	}

	name, err := validateName(draft.Name)
	if err != nil {
		return models.Transaction{}, err
	}
	frequency, err := validateFrequency(draft.Frequency)
	if err != nil {
		return models.Transaction{}, err
	}
	value, err := validateValue(draft.Value, frequency)
	if err != nil {
		return models.Transaction{}, err
	}

	tx := &models.Transaction{
		ID:        uuid.NewString(),
		Name:      name,
		Value:     value,
		Frequency: frequency,
		Note:      strings.TrimSpace(draft.Note),
	}
	ledger.Values[tx.ID] = tx
	if err := a.UpdateSum(kind); err != nil {
		delete(ledger.Values, tx.ID)
		return models.Transaction{}, totalError(fmt.Sprintf("Adding %q", draft.Value), err)
	}

	return *tx, nil
}

// Update applies the fields present in update to the transaction id.
// It reports whether the ledger sum was recomputed, which only happens when
// the value or the frequency changed.
func (a *Account) Update(kind models.Kind, id string, update models.TransactionUpdate) (bool, error) {
	ledger, err := a.Ledger(kind)
	if err != nil {
		return false, err
	}
	tx, ok := ledger.Values[id]
	if !ok {
		return false, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	draft := *tx
	if update.Name != nil {
		if draft.Name, err = validateName(*update.Name); err != nil {
			return false, err
		}
	}
	if update.Frequency != nil {
		if draft.Frequency, err = validateFrequency(*update.Frequency); err != nil {
			return false, err
		}
	}
	if update.Value != nil {
		if draft.Value, err = validateValue(*update.Value, draft.Frequency); err != nil {
			return false, err
		}
	} else if update.Frequency != nil {
		// the stored amount must still be finite once converted
		if _, err = validateValue(draft.Value, draft.Frequency); err != nil {
			return false, err
		}
	}
	if update.Note != nil {
		draft.Note = strings.TrimSpace(*update.Note)
	}

	previous := *tx
	*tx = draft

	recompute := draft.Value != previous.Value || draft.Frequency != previous.Frequency
	if recompute {
		if err := a.UpdateSum(kind); err != nil {
			*tx = previous
			return false, totalError(fmt.Sprintf("Changing %q to %q", previous.Value, draft.Value), err)
		}
	}
	return recompute, nil
}

// Delete removes the transaction id.
func (a *Account) Delete(kind models.Kind, id string) error {
	ledger, err := a.Ledger(kind)
	if err != nil {
		return err
	}
	tx, ok := ledger.Values[id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	delete(ledger.Values, id)
	if err := a.UpdateSum(kind); err != nil {
		ledger.Values[id] = tx
		return totalError(fmt.Sprintf("Removing %q", tx.Value), err)
	}
	return nil
}

// Get returns a copy of the transaction id.
func (a *Account) Get(kind models.Kind, id string) (models.Transaction, bool) {
	ledger, err := a.Ledger(kind)
	if err != nil {
		return models.Transaction{}, false
	}
	tx, ok := ledger.Values[id]
	if !ok {
		return models.Transaction{}, false
	}
	return *tx, true
}

// Sorted returns the transactions of a ledger in the requested order along with its sum.
func (a *Account) Sorted(kind models.Kind, sortType models.SortType) (models.TransactionList, error) {
	ledger, err := a.Ledger(kind)
	if err != nil {
		return models.TransactionList{}, err
	}
	return models.TransactionList{
		Values: calculator.SortTransactions(ledger.Values, sortType),
		Sum:    ledger.Sum,
	}, nil
}

// UpdateSum recomputes the monthly sum of a ledger from scratch. When the new sum, or the
// surplus it feeds, is not a finite amount the ledger keeps its previous sum and an error
// wrapping calculator.ErrNotFinite is returned.
func (a *Account) UpdateSum(kind models.Kind) error {
	ledger, err := a.Ledger(kind)
	if err != nil {
		return err
	}

	amounts := make([]float64, 0, len(ledger.Values))
	for _, tx := range ledger.Values {
		monthly, err := calculator.Monthly(*tx)
		if err != nil {
			slog.Warn("Skipping invalid transaction in sum", "id", tx.ID, "kind", kind, "error", err)
			continue
		}
		amounts = append(amounts, monthly)
	}
	sum, err := calculator.Sum(amounts...)
	if err != nil {
		return fmt.Errorf("%s sum: %w", kind, err)
	}

	if kind != models.PersonalExpenses {
		incomes, _ := a.Ledger(models.Incomes)
		expenses, _ := a.Ledger(models.Expenses)
		in, out := incomes.Sum, expenses.Sum
		if kind == models.Incomes {
			in = sum
		} else {
			out = sum
		}
		if _, err := calculator.Sum(in, -out); err != nil {
			return fmt.Errorf("surplus: %w", err)
		}
	}

	ledger.Sum = sum
	return nil
}

// Surplus is the monthly income minus the monthly constrained expenses.
// UpdateSum keeps it finite.
func (a *Account) Surplus() float64 {
	surplus, err := calculator.Sum(a.Incomes.Sum, -a.Expenses.Sum)
	if err != nil {
		slog.Error("Account surplus is not finite", "error", err)
		return 0
	}
	return surplus
}

// Empty resets every ledger, the note and the settings. The account keeps its type
// and the ledgers keep their identity.
func (a *Account) Empty() {
	for _, kind := range models.Kinds {
		ledger, _ := a.Ledger(kind)
		*ledger = *models.NewLedger()
	}
	a.Note = ""
	a.Settings = models.DefaultAccountSettings()
}

// SetNote replaces the note of the account.
func (a *Account) SetNote(note string) {
	a.Note = strings.TrimSpace(note)
}

// SetVisibility shows or hides a ledger.
func (a *Account) SetVisibility(kind models.Kind, show bool) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if a.Settings.Show == nil {
		a.Settings = models.DefaultAccountSettings()
	}
	a.Settings.Show[kind] = show
	return nil
}

// Hydrate repairs an account decoded from storage: missing ledgers and settings get their
// defaults, transactions that no longer validate are dropped and every sum is recomputed.
// It returns the number of dropped transactions.
func (a *Account) Hydrate(t models.AccountType) int {
	a.Type = t

	defaults := models.DefaultAccountSettings()
	if a.Settings.Show == nil {
		a.Settings = defaults
	}
	for kind, show := range defaults.Show {
		if _, ok := a.Settings.Show[kind]; !ok {
			a.Settings.Show[kind] = show
		}
	}

	dropped := 0
	for _, kind := range models.Kinds {
		ledger, _ := a.Ledger(kind)
		ledger.Sum = 0
		for id, tx := range ledger.Values {
			if !validStored(id, tx) {
				slog.Warn("Dropping invalid transaction", "id", id, "kind", kind)
				delete(ledger.Values, id)
				dropped++
			}
		}
	}
	for _, kind := range models.Kinds {
		dropped += a.trimToFiniteSum(kind)
	}
	return dropped
}

// trimToFiniteSum recomputes the sum of kind, dropping the largest transactions until the
// sum and the surplus are finite again. It returns the number of dropped transactions.
func (a *Account) trimToFiniteSum(kind models.Kind) int {
	ledger, _ := a.Ledger(kind)
	if a.UpdateSum(kind) == nil {
		return 0
	}

	ids := slices.Collect(maps.Keys(ledger.Values))
	magnitude := func(id string) float64 {
		v, _ := calculator.Monthly(*ledger.Values[id])
		return math.Abs(v)
	}
	slices.SortFunc(ids, func(x, y string) int {
		return cmp.Or(cmp.Compare(magnitude(y), magnitude(x)), strings.Compare(x, y))
	})

	dropped := 0
	for _, id := range ids {
		slog.Warn("Dropping transaction that overflows the ledger sum", "id", id, "kind", kind)
		delete(ledger.Values, id)
		dropped++
		if a.UpdateSum(kind) == nil {
			break
		}
	}
	return dropped
}

// totalError rejects a mutation whose ledger total would not be a finite amount.
func totalError(action string, err error) error {
	return &ValidationError{
		Field:   "value",
		Message: action + " would bring the total beyond a valid amount.",
		Err:     fmt.Errorf("%w: %w", ErrInvalidValue, err),
	}
}

func validStored(id string, tx *models.Transaction) bool {
	if tx == nil {
		return false
	}
	if tx.ID == "" {
		tx.ID = id
	}
	if tx.ID != id {
		return false
	}
	if tx.Frequency == "" {
		tx.Frequency = models.Monthly
	}
	if _, err := validateName(tx.Name); err != nil {
		return false
	}
	if _, err := validateFrequency(tx.Frequency); err != nil {
		return false
	}
	_, err := validateValue(tx.Value, tx.Frequency)
	return err == nil
}
