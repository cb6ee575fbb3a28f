package project

import (
	"fmt"
	"math"
	"strings"
)

func validateName(field, name string, sentinel error) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%q is not a valid %s", name, field),
			Err:     sentinel,
		}
	}
	return trimmed, nil
}

func validateAmount(field string, v float64, sentinel error) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%v is not a valid %s", v, field),
			Err:     sentinel,
		}
	}
	return nil
}

// totalError rejects an expense or payment that would make a project total overflow.
func totalError(field string, err error) error {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("This %s would bring the project total beyond a valid amount.", field),
		Err:     fmt.Errorf("%w: %w", ErrTotalTooLarge, err),
	}
}
