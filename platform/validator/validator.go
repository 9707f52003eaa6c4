// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"github.com/go-playground/validator/v10"

	"fm_servicios_backend/platform/phone"
	"fm_servicios_backend/platform/rut"
)

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the Chilean identity tags registered:
//
//	rut     - a RUT with a valid mod-11 check digit, punctuation allowed
//	clphone - a number that normalizes to +56 followed by nine digits
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("rut", func(fl validator.FieldLevel) bool {
		return rut.Valid(fl.Field().String())
	})
	_ = v.RegisterValidation("clphone", func(fl validator.FieldLevel) bool {
		_, err := phone.NormalizeCL(fl.Field().String())
		return err == nil
	})
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s any) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field any, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

// FirstField returns the struct field name of the first failed rule, if err
// came from Struct.
func FirstField(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		return errs[0].Field()
	}
	return ""
}
