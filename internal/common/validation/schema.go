package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"marketplace-workers/internal/common/errors"
	"marketplace-workers/pkg/registry"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary joins the field errors into one line.
func (r *ValidationResult) Summary() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(parts, "; ")
}

// Validator checks worker inputs against the input schemas of the activity
// registry. Schemas are compiled once.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewValidator compiles the input schema of every registered activity.
func NewValidator(reg *registry.ActivityRegistry) (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(reg.Activities))}
	for _, act := range reg.Activities {
		if len(act.InputSchema) == 0 {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(act.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("invalid input schema for %s: %w", act.TaskType, err)
		}
		v.schemas[act.TaskType] = schema
	}
	return v, nil
}

// NewDefaultValidator builds a Validator from the embedded registry.
func NewDefaultValidator() (*Validator, error) {
	reg, err := registry.Default()
	if err != nil {
		return nil, err
	}
	return NewValidator(reg)
}

// ValidateInput validates input against the schema registered for taskType.
// Task types without a schema always pass.
func (v *Validator) ValidateInput(taskType string, input interface{}) (*ValidationResult, error) {
	schema, ok := v.schemas[taskType]
	if !ok {
		return &ValidationResult{Valid: true}, nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "(root)" {
			if p, ok := desc.Details()["property"].(string); ok {
				field = p
			}
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	sort.Slice(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out, nil
}

// Check validates input and returns a BID_VALIDATION_FAILED error when it
// does not match its schema.
func (v *Validator) Check(taskType string, input interface{}) error {
	res, err := v.ValidateInput(taskType, input)
	if err != nil {
		return errors.NewBidValidationFailedError(err.Error())
	}
	if !res.Valid {
		return errors.NewBidValidationFailedError(res.Summary()).WithMetadata("fields", res.Errors)
	}
	return nil
}
