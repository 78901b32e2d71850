package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
)

// ErrInvalid is matched by every error this package returns
var ErrInvalid = errors.New("validation failed")

// FieldError describes one rejected field
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Error carries the rejected fields of a request
type Error struct {
	Fields []FieldError
	Reason string
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s failed %s", f.Field, f.Rule))
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

// Is lets errors.Is(err, ErrInvalid) classify validation failures
func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

// Validator checks request structs against their `validate` tags
type Validator struct {
	validate *validator.Validate
}

// New creates a validator reporting fields by their json names
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate checks i against its validate tags
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &Error{Reason: err.Error()}
	}

	out := &Error{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

// ValidateMergePatch checks that doc is a JSON merge patch object touching
// only the allowed top-level fields. Null values are rejected since every
// editable field is required.
func ValidateMergePatch(doc []byte, allowed ...string) error {
	if !gjson.ValidBytes(doc) {
		return &Error{Reason: "merge patch must be a JSON object"}
	}
	parsed := gjson.ParseBytes(doc)
	if !parsed.IsObject() {
		return &Error{Reason: "merge patch must be a JSON object"}
	}

	permitted := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		permitted[name] = true
	}

	fields := make(map[string]gjson.Result)
	parsed.ForEach(func(key, value gjson.Result) bool {
		fields[key.String()] = value
		return true
	})

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var rejected []FieldError
	for _, name := range names {
		switch {
		case !permitted[name]:
			rejected = append(rejected, FieldError{Field: name, Rule: "readonly"})
		case fields[name].Type == gjson.Null:
			rejected = append(rejected, FieldError{Field: name, Rule: "required"})
		}
	}

	if len(rejected) > 0 {
		return &Error{Fields: rejected}
	}
	return nil
}
