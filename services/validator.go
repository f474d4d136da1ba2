package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"festival-scraper/models"
)

// Violation is one failed constraint of a candidate record.
type Violation struct {
	Field string
	Rule  string
	Param string
}

func (v Violation) String() string {
	if v.Param != "" {
		return fmt.Sprintf("%s: %s=%s", v.Field, v.Rule, v.Param)
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Rule)
}

// ValidationError lists every constraint a candidate violated.
type ValidationError struct {
	URL        string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("invalid festival %s: %s", e.URL, strings.Join(parts, "; "))
}

// Fields returns the names of the violated fields.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.Field
	}
	return out
}

// Validator enforces the output schema of festival records.
type Validator struct {
	validate *validator.Validate
	sources  map[string]struct{}
}

// NewValidator builds a Validator accepting only the given source ids.
func NewValidator(sourceIDs []string) *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		sources:  make(map[string]struct{}, len(sourceIDs)),
	}
	for _, id := range sourceIDs {
		v.sources[id] = struct{}{}
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// registration only fails for empty tags or nil funcs
	_ = v.validate.RegisterValidation("festivalsource", func(fl validator.FieldLevel) bool {
		_, ok := v.sources[fl.Field().String()]
		return ok
	})
	return v
}

// Validate checks every constraint in one pass and returns either the
// validated record or a *ValidationError carrying all violations.
func (v *Validator) Validate(f *models.Festival) (*models.ValidatedFestival, error) {
	if f == nil {
		return nil, &ValidationError{Violations: []Violation{{Field: "record", Rule: "required"}}}
	}

	err := v.validate.Struct(f)
	if err == nil {
		return &models.ValidatedFestival{Festival: *f}, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("validate %s: %w", f.URL, err)
	}

	verr := &ValidationError{URL: f.URL}
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		verr.Violations = append(verr.Violations, Violation{Field: field, Rule: fe.Tag(), Param: fe.Param()})
	}
	return nil, verr
}
