// Package validator adapts go-playground/validator to Echo's Validator
// interface so handlers can call c.Validate on bound request bodies.
package validator

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator validates request structs via their validate tags.
type RequestValidator struct {
	validate *validator.Validate
}

// New returns a RequestValidator ready to be assigned to echo.Echo.Validator.
func New() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Validate implements echo.Validator.  Violations surface as 400 with the
// validator's message.
func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
