package calculator

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mmynk/foyer/internal/models"
)

// newCollator returns a case and diacritic insensitive collator.
// Collators are not safe for concurrent use, so each sort builds its own.
func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.IgnoreCase, collate.IgnoreDiacritics)
}

// CompareNames orders two names the way every sorted view does: locale aware,
// ignoring case and accents, falling back to a byte comparison so the order is total.
func CompareNames(a, b string) int {
	return compareNames(newCollator(), a, b)
}

func compareNames(c *collate.Collator, a, b string) int {
	if n := c.CompareString(a, b); n != 0 {
		return n
	}
	return strings.Compare(a, b)
}

type sortKey struct {
	name   string
	id     string
	amount float64
}

func compareKeys(c *collate.Collator, sortType models.SortType, a, b sortKey) int {
	var n int
	switch sortType {
	case models.SortAbc:
		n = compareNames(c, a.name, b.name)
	case models.SortZyx:
		n = compareNames(c, b.name, a.name)
	case models.SortAsc:
		n = cmp.Compare(a.amount, b.amount)
	default:
		n = cmp.Compare(b.amount, a.amount)
	}
	if n != 0 {
		return n
	}
	if n = compareNames(c, a.name, b.name); n != 0 {
		return n
	}
	return strings.Compare(a.id, b.id)
}

// SortTransactions returns the transactions of a ledger ordered by sortType.
// Amounts are compared after monthly normalization; ties are broken by name, then by ID.
func SortTransactions(values map[string]*models.Transaction, sortType models.SortType) []models.Transaction {
	type entry struct {
		tx  models.Transaction
		key sortKey
	}

	entries := make([]entry, 0, len(values))
	for _, tx := range values {
		if tx == nil {
			continue
		}
		// stored values were validated on write, a failure here only means a corrupted import
		monthly, _ := Monthly(*tx)
		entries = append(entries, entry{tx: *tx, key: sortKey{name: tx.Name, id: tx.ID, amount: monthly}})
	}

	c := newCollator()
	slices.SortFunc(entries, func(a, b entry) int {
		return compareKeys(c, sortType, a.key, b.key)
	})

	sorted := make([]models.Transaction, len(entries))
	for i, e := range entries {
		sorted[i] = e.tx
	}
	return sorted
}

// SortExpenses returns project expenses ordered by sortType, amounts being line totals (price × quantity).
func SortExpenses(values map[string]*models.Expense, sortType models.SortType) []models.Expense {
	sorted := make([]models.Expense, 0, len(values))
	for _, e := range values {
		if e != nil {
			sorted = append(sorted, *e)
		}
	}

	c := newCollator()
	slices.SortFunc(sorted, func(a, b models.Expense) int {
		return compareKeys(c, sortType,
			sortKey{name: a.Name, id: a.ID, amount: LineTotal(a.Price, a.Quantity)},
			sortKey{name: b.Name, id: b.ID, amount: LineTotal(b.Price, b.Quantity)},
		)
	})
	return sorted
}

// SortPayments orders payments in place. Payments have no name, so the alphabetical
// sort types fall back to the payment date: abc is oldest first, zyx newest first.
func SortPayments(payments []models.Payment, sortType models.SortType) {
	slices.SortFunc(payments, func(a, b models.Payment) int {
		var n int
		switch sortType {
		case models.SortAbc:
			n = a.Date.Compare(b.Date)
		case models.SortZyx:
			n = b.Date.Compare(a.Date)
		case models.SortAsc:
			n = cmp.Compare(a.Value, b.Value)
		default:
			n = cmp.Compare(b.Value, a.Value)
		}
		if n != 0 {
			return n
		}
		if n = a.Date.Compare(b.Date); n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	})
}
