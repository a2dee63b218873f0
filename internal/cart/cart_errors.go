package cart

import (
	"errors"
	"strings"
)

const (
	CodeMissingFields   = "MISSING_FIELDS"
	CodeInvalidQuantity = "INVALID_QUANTITY"
)

var ErrNotificationsUnsupported = errors.New("cart: le stockage ne notifie pas les changements")

// ValidationError est renvoyée par ValidateProduct. L'appelant doit afficher
// Message à l'utilisateur et abandonner l'ajout.
type ValidationError struct {
	Code    string
	Message string
	Missing []string
}

func (e *ValidationError) Error() string { return e.Message }

func newMissingFieldsError(fields []string) *ValidationError {
	return &ValidationError{
		Code:    CodeMissingFields,
		Message: "champs requis manquants : " + strings.Join(fields, ", "),
		Missing: fields,
	}
}

var errInvalidQuantity = &ValidationError{
	Code:    CodeInvalidQuantity,
	Message: "la quantité doit être un nombre positif",
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
