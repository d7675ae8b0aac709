// Package validation validates application-layer request DTOs.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates a request DTO against its validate tags and converts
// failures into a domain validation error naming each offending field.
// Services call this before touching any aggregate; domain constructors
// still re-check business invariants.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
		return shared.NewValidationError("invalid request: %s", strings.Join(parts, "; "))
	}

	return shared.NewValidationError("invalid request: %v", err)
}
