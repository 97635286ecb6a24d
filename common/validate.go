package common

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"edumedia/apierr"
)

// NewValidator reports fields by their json names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]; name != "" && name != "-" {
			return name
		}
		return fld.Name
	})
	return v
}

// ValidationError turns the first failed rule into a Validation error.
func ValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apierr.Validation("Invalid input")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apierr.Validation(fmt.Sprintf("%s is required", fe.Field()))
	case "email":
		return apierr.Validation("Invalid email")
	case "e164":
		return apierr.Validation("Phone must be in E.164 format")
	case "min":
		return apierr.Validation(fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
	case "oneof":
		return apierr.Validation(fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
	case "url", "http_url":
		return apierr.Validation(fmt.Sprintf("%s must be a valid URL", fe.Field()))
	}
	return apierr.Validation(fmt.Sprintf("%s is invalid", fe.Field()))
}
