package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/vidfriends/vidvault/internal/apperrors"
)

// RequestValidator adapts validator/v10 to echo's Validator interface.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator returns a validator that reports failures by json field name.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Validate checks the struct tags of i and returns a BadRequest on failure.
func (v *RequestValidator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Internal("validate request", err)
	}

	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return apperrors.BadRequest("missing required fields")
		}
	}
	fe := fieldErrs[0]
	return apperrors.BadRequest(fmt.Sprintf("invalid %s", fe.Field()))
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	return c.Validate(req)
}
