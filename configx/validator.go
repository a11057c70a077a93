package configx

import (
	"fmt"
	"net/url"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// ValidatorOption configures the validator.
type ValidatorOption func(*validator.Validate)

// NewValidator creates a new validator instance with the https_url rule registered.
func NewValidator(opts ...ValidatorOption) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "https_url", validateHTTPSURL)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// WithValidation registers a custom tag. It panics if the tag is rejected.
func WithValidation(tag string, fn validator.Func) ValidatorOption {
	return func(v *validator.Validate) {
		mustRegister(v, tag, fn)
	}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("configx: register validation %q: %v", tag, err))
	}
}

// ValidateStruct validates a struct using validator tags.
func ValidateStruct(v *validator.Validate, target any) error {
	if v == nil {
		v = NewValidator()
	}

	if err := v.Struct(target); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// IsHTTPSURL reports whether raw is an absolute https URL with a host.
func IsHTTPSURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && u.Host != "" && u.User == nil
}

func validateHTTPSURL(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return IsHTTPSURL(field.String())
}
