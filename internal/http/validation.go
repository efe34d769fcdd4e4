package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

var validate = newValidator()

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

type employeeRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Role  string `json:"role" validate:"max=100"`
	Email string `json:"email" validate:"omitempty,email,max=254"`
}

type automationRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=500"`
	Recipients  []string `json:"recipients,omitempty" validate:"omitempty,max=50,dive,required,max=100"`
	Amount      *string  `json:"amount,omitempty" validate:"omitempty,numeric"`
	Status      *string  `json:"status,omitempty" validate:"omitempty,oneof=active paused disabled"`
}

// validateStruct runs the struct tags of v and returns every failure as a
// *multierror.Error of FieldError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return err
	}

	var errs *multierror.Error
	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		for _, fe := range valErrs {
			errs = multierror.Append(errs, FieldError{
				Field:   fe.Field(),
				Tag:     fe.Tag(),
				Message: fieldMessage(fe),
			})
		}
	}
	return errs.ErrorOrNil()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid e-mail address"
	case "numeric":
		return "must be a number"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return fmt.Sprintf("must be at most %s long", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s long", fe.Param())
	default:
		return strings.TrimSpace(fe.Tag() + " " + fe.Param())
	}
}

// fieldErrors extracts the FieldError list from a validateStruct result.
func fieldErrors(err error) ([]FieldError, bool) {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return nil, false
	}
	out := make([]FieldError, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		var fe FieldError
		if errors.As(e, &fe) {
			out = append(out, fe)
		}
	}
	return out, len(out) > 0
}
