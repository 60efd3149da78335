package domain

import (
	"errors"
	"maps"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// missingFields lists the struct fields that failed validation, in declaration order.
// Returns nil when err is not a validator error.
func missingFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return fields
}

// cloneAnyMap creates a shallow copy of a map to prevent aliasing.
// Returns nil for nil input to maintain consistency.
func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	maps.Copy(result, m)
	return result
}
