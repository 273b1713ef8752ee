package handlers

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Correlation keys are minted as UUIDs but legacy checkout code produced
// shorter opaque tokens, so the format check stays permissive.
var correlationKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]{8,64}$`)

// RegisterValidations installs custom binding validations on gin's
// validator engine. Call once before routing requests.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("correlation_key", func(fl validator.FieldLevel) bool {
			return correlationKeyPattern.MatchString(fl.Field().String())
		})
	}
}
