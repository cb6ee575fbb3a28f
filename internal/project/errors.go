package project

import "errors"

var (
	ErrEmptyName       = errors.New("name is required")
	ErrEmptyResident   = errors.New("resident is required")
	ErrInvalidPrice    = errors.New("price must be a finite number, zero or more")
	ErrInvalidQuantity = errors.New("quantity must be a finite number, zero or more")
	ErrInvalidValue    = errors.New("value must be a finite number, zero or more")
	ErrNotFound        = errors.New("not found")
	ErrNotFrozen       = errors.New("project residents are not frozen yet")
	ErrTotalTooLarge   = errors.New("project total is not a finite amount")
)

// ValidationError is a rejected user input. Message is meant to be shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a rejected user input.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
