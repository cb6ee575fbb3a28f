package budget

import "errors"

var (
	ErrEmptyName        = errors.New("name is required")
	ErrInvalidValue     = errors.New("value is not a valid amount")
	ErrInvalidFrequency = errors.New("unknown frequency")
	ErrNotFound         = errors.New("not found")
	ErrUnknownKind      = errors.New("unknown ledger kind")
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
