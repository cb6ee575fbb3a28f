package calculator

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/mmynk/foyer/internal/models"
)

// periodsPerYear drives every frequency conversion: converting from F to G multiplies by
// periodsPerYear[F] / periodsPerYear[G] (monthly to yearly is ×12, quarterly to monthly is ×1/3).
var periodsPerYear = map[models.Frequency]float64{
	models.Weekly:    52,
	models.Monthly:   12,
	models.Quarterly: 4,
	models.Biannual:  2,
	models.Yearly:    1,
}

// Multiplier returns the factor converting an amount expressed per `from` into an amount per `to`.
// Identical or unknown frequencies yield 1.
func Multiplier(from, to models.Frequency) float64 {
	f, okFrom := periodsPerYear[from]
	t, okTo := periodsPerYear[to]
	if from == to || !okFrom || !okTo {
		return 1
	}
	return f / t
}

// ValueAs evaluates the transaction value and converts it to the target frequency.
func ValueAs(tx models.Transaction, to models.Frequency) (float64, error) {
	v, err := Evaluate(NormalizeFormula(tx.Value))
	if err != nil {
		return 0, err
	}

	f, okFrom := periodsPerYear[tx.Frequency]
	t, okTo := periodsPerYear[to]
	if tx.Frequency == to || !okFrom || !okTo {
		return v, nil
	}

	// multiply before dividing so exact conversions stay exact (300 quarterly is 1200/12 monthly)
	converted := v * f / t
	if math.IsNaN(converted) || math.IsInf(converted, 0) {
		return 0, ErrNotFinite
	}
	return converted, nil
}

// Monthly is ValueAs with the reference frequency of every ledger sum.
func Monthly(tx models.Transaction) (float64, error) {
	return ValueAs(tx, models.Monthly)
}

// Round rounds to two decimal places, half away from zero. Non-finite values are returned as is.
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Sum adds the values in decimal arithmetic and rounds the result, so that
// sums of many small amounts do not drift. It fails with ErrNotFinite when a value
// is not finite or when the total does not fit in a float64.
func Sum(values ...float64) (float64, error) {
	total := decimal.Zero
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, ErrNotFinite
		}
		total = total.Add(decimal.NewFromFloat(v))
	}
	sum := total.Round(2).InexactFloat64()
	if math.IsInf(sum, 0) {
		return 0, ErrNotFinite
	}
	return sum, nil
}

// LineTotal returns price × quantity computed in decimal arithmetic. A product too large
// for a float64 comes back as ±Inf, which Sum rejects.
func LineTotal(price, quantity float64) float64 {
	if math.IsNaN(price) || math.IsNaN(quantity) || math.IsInf(price, 0) || math.IsInf(quantity, 0) {
		return 0
	}
	return decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(quantity)).InexactFloat64()
}
