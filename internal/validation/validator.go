package validation

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo's Validator interface.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, message(errs[0]))
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

// message builds a human-readable error for the first failed field.
func message(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		return fmt.Sprintf("%s length must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s length must be less than or equal to %s characters long", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s length must be %s characters long", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "alphanum":
		return fmt.Sprintf("%s must only contain alpha-numeric characters", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
