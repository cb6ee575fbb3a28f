package calculator

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/mmynk/foyer/internal/models"
)

// ErrNoResidents is returned when a settlement is requested without anybody to share the cost.
var ErrNoResidents = errors.New("settlement needs at least one resident")

// MemberBalance is the settlement position of one resident.
type MemberBalance struct {
	Resident   string  `json:"resident"`
	Ratio      float64 `json:"ratio"`
	Share      float64 `json:"share"`      // Part of the total this resident must bear
	Paid       float64 `json:"paid"`       // Sum of the resident's payments
	NetBalance float64 `json:"netBalance"` // Positive = is owed money, negative = owes money
}

// DebtEdge is a transfer that settles part of the balances.
type DebtEdge struct {
	From   string  `json:"from"` // Resident who owes
	To     string  `json:"to"`   // Resident who is owed
	Amount float64 `json:"amount"`
}

// Settlement is the outcome of splitting a project total among its residents.
type Settlement struct {
	Total    float64         `json:"total"`
	Paid     float64         `json:"paid"`
	Balances []MemberBalance `json:"balances"`
	Debts    []DebtEdge      `json:"debts"`
}

// CalculateSettlement splits total among residents according to their frozen ratios and
// nets it against the payments made.
//
// Algorithm:
// - share = ratio × total, paid = Σ payments of the resident
// - net balance = paid − share
// - payments from somebody who is not a resident count as paid with a zero share
// - debts: greedy matching of the largest debtor with the largest creditor
func CalculateSettlement(total float64, residents []models.Resident, payments []models.Payment) (Settlement, error) {
	if len(residents) == 0 {
		return Settlement{}, ErrNoResidents
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return Settlement{}, fmt.Errorf("total: %w", ErrNotFinite)
	}

	balances := make(map[string]*MemberBalance, len(residents))
	var order []string
	member := func(name string) *MemberBalance {
		b, ok := balances[name]
		if !ok {
			b = &MemberBalance{Resident: name}
			balances[name] = b
			order = append(order, name)
		}
		return b
	}

	for _, r := range residents {
		b := member(r.Name)
		b.Ratio += r.Ratio
		b.Share = Round(b.Ratio * total)
	}

	paid := make(map[string][]float64)
	var allPaid []float64
	for _, p := range payments {
		member(p.Resident)
		paid[p.Resident] = append(paid[p.Resident], p.Value)
		allPaid = append(allPaid, p.Value)
	}

	totalPaid, err := Sum(allPaid...)
	if err != nil {
		return Settlement{}, fmt.Errorf("payments: %w", err)
	}
	result := Settlement{
		Total:    Round(total),
		Paid:     totalPaid,
		Balances: make([]MemberBalance, 0, len(order)),
	}

	var creditors, debtors []*MemberBalance
	for _, name := range order {
		b := balances[name]
		if b.Paid, err = Sum(paid[name]...); err != nil {
			return Settlement{}, fmt.Errorf("payments of %s: %w", name, err)
		}
		if b.NetBalance, err = Sum(b.Paid, -b.Share); err != nil {
			return Settlement{}, fmt.Errorf("balance of %s: %w", name, err)
		}
		result.Balances = append(result.Balances, *b)

		if b.NetBalance > 0 {
			creditors = append(creditors, b)
		} else if b.NetBalance < 0 {
			debtors = append(debtors, b)
		}
	}

	result.Debts = matchDebts(debtors, creditors)
	return result, nil
}

// matchDebts pairs debtors with creditors, largest amounts first, to keep the number of transfers low.
func matchDebts(debtors, creditors []*MemberBalance) []DebtEdge {
	byMagnitude := func(a, b *MemberBalance) int {
		if n := cmp.Compare(abs(b.NetBalance), abs(a.NetBalance)); n != 0 {
			return n
		}
		return CompareNames(a.Resident, b.Resident)
	}
	slices.SortFunc(debtors, byMagnitude)
	slices.SortFunc(creditors, byMagnitude)

	owes := make([]float64, len(debtors))
	for i, d := range debtors {
		owes[i] = -d.NetBalance
	}
	owed := make([]float64, len(creditors))
	for j, c := range creditors {
		owed[j] = c.NetBalance
	}

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := min(owes[i], owed[j])

		if amount > 0.01 { // Avoid floating point noise
			edges = append(edges, DebtEdge{
				From:   debtors[i].Resident,
				To:     creditors[j].Resident,
				Amount: Round(amount),
			})
		}

		owes[i] -= amount
		owed[j] -= amount

		if owes[i] < 0.01 {
			i++
		}
		if owed[j] < 0.01 {
			j++
		}
	}
	return edges
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
