package companion

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/go-playground/validator/v10"
)

// newValidator creates a validator reporting fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs struct tag validation and converts failures into a
// domain ValidationError
func validateStruct(v *validator.Validate, input any) *companion.ValidationError {
	err := v.Struct(input)
	if err == nil {
		return nil
	}

	verr := &companion.ValidationError{}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), validationMessage(fe))
		}
		return verr
	}
	verr.Add("input", err.Error())
	return verr
}

// validationMessage returns a human-readable validation message
func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must have at least " + e.Param() + " items"
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must have at most " + e.Param() + " items"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "numeric":
		return "Must be numeric"
	default:
		return fmt.Sprintf("Invalid value (%s)", e.Tag())
	}
}
