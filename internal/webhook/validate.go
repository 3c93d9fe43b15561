// Package webhook validates outbound webhook registrations and prepares what
// an external dispatcher needs to deliver them.
package webhook

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sipico/archive-api/internal/models"
	"github.com/sipico/archive-api/internal/schema"
)

// Registration is the client-supplied part of a webhook.
type Registration struct {
	Name     string `json:"name" validate:"required,max=255"`
	Signal   string `json:"signal" validate:"required,oneof=CREATE UPDATE DELETE"`
	Ref      string `json:"ref" validate:"required,schemaref"`
	Endpoint string `json:"endpoint" validate:"required,http_url,max=2048"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// FieldError is a single rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a registration.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "invalid webhook: " + strings.Join(msgs, "; ")
}

// Validator checks registrations against the tag rules and the schema registry.
type Validator struct {
	validate *validator.Validate
	registry *schema.Registry
}

// NewValidator creates a Validator that resolves refs against registry.
func NewValidator(registry *schema.Registry) (*Validator, error) {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		registry: registry,
	}
	v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := v.validate.RegisterValidation("schemaref", func(fl validator.FieldLevel) bool {
		return v.registry.Has(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("failed to register schemaref validation: %w", err)
	}
	return v, nil
}

// Normalize trims whitespace and upper-cases the signal in place.
func Normalize(r *Registration) {
	r.Name = strings.TrimSpace(r.Name)
	r.Signal = strings.ToUpper(strings.TrimSpace(r.Signal))
	r.Ref = strings.TrimSpace(r.Ref)
	r.Endpoint = strings.TrimSpace(r.Endpoint)
}

// Validate normalizes r and checks it. Rule violations are reported as a
// *ValidationError.
func (v *Validator) Validate(r *Registration) error {
	Normalize(r)

	err := v.validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate webhook: %w", err)
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

// Build validates r and returns the record to persist for owner.
func (v *Validator) Build(r Registration, owner int64) (*models.OutboundWebhook, error) {
	if err := v.Validate(&r); err != nil {
		return nil, err
	}

	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return &models.OutboundWebhook{
		CreatedByID: owner,
		Name:        r.Name,
		Signal:      models.Signal(r.Signal),
		Ref:         r.Ref,
		Endpoint:    r.Endpoint,
		Enabled:     enabled,
	}, nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "http_url":
		return "must be an absolute http or https URL"
	case "schemaref":
		return fmt.Sprintf("%q is not a known record type", fe.Value())
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
