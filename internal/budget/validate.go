package budget

import (
	"fmt"
	"strings"

	"github.com/mmynk/foyer/internal/calculator"
	"github.com/mmynk/foyer/internal/models"
)

// validateName trims name and rejects it when nothing is left.
func validateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("%q is not a valid name", name),
			Err:     ErrEmptyName,
		}
	}
	return trimmed, nil
}

// validateValue normalizes the typed amount and checks that it evaluates to a finite
// monthly amount under the given frequency. It returns the normalized formula.
func validateValue(value string, frequency models.Frequency) (string, error) {
	normalized := calculator.NormalizeFormula(value)
	tx := models.Transaction{Value: normalized, Frequency: frequency}
	if _, err := calculator.Monthly(tx); err != nil {
		return "", &ValidationError{
			Field:   "value",
			Message: fmt.Sprintf("%q is not a valid amount", value),
			Err:     fmt.Errorf("%w: %w", ErrInvalidValue, err),
		}
	}
	return normalized, nil
}

func validateFrequency(frequency models.Frequency) (models.Frequency, error) {
	if frequency == "" {
		return models.Monthly, nil
	}
	if !frequency.Valid() {
		return "", &ValidationError{
			Field:   "frequency",
			Message: fmt.Sprintf("%q is not a valid frequency", frequency),
			Err:     ErrInvalidFrequency,
		}
	}
	return frequency, nil
}
