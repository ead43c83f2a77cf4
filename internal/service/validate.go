package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs the validator over in and folds the first failure into a ValidationError.
func validateStruct(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ValidationError(err.Error())
	}
	return ValidationError(describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "alphanum":
		return fmt.Sprintf("%s must contain only letters and digits", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// checkDueDate rejects due dates strictly before now. Equal to now is accepted.
func checkDueDate(due *time.Time, now time.Time) error {
	if due == nil {
		return nil
	}
	if due.UTC().Before(now.UTC()) {
		return PastDueDateError()
	}
	return nil
}
