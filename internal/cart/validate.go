package cart

import (
	"errors"
	"reflect"
	"strings"

	"noirbleed_cart/internal/models"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Un id absent ("" ou 0) doit échouer sur "required".
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		id, ok := field.Interface().(models.ProductID)
		if !ok || id.IsZero() {
			return ""
		}
		return id.String()
	}, models.ProductID{})
	return v
}

var defaultValidator = newValidator()

// ValidateProduct vérifie les champs requis puis la quantité.
// Renvoie un *ValidationError, jamais d'autre type d'erreur.
func ValidateProduct(p models.Product) error {
	return validateProduct(defaultValidator, p)
}

func validateProduct(v *validator.Validate, p models.Product) error {
	err := v.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Code: CodeMissingFields, Message: err.Error()}
	}

	var missing []string
	badQuantity := false
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			missing = append(missing, fe.Field())
		case "gte":
			badQuantity = true
		}
	}

	if len(missing) > 0 {
		return newMissingFieldsError(missing)
	}
	if badQuantity {
		return errInvalidQuantity
	}
	return nil
}
