package strategy

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/indicator"
)

// FieldError is one problem found in a strategy definition.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks def for structural and referential integrity against
// the indicators known to registry. It returns every problem found, in
// declaration order; an empty result means the definition is valid.
func Validate(def domain.StrategyDef, registry *indicator.Registry) []FieldError {
	if registry == nil {
		registry = indicator.NewRegistry()
	}

	var errs []FieldError
	errs = append(errs, structErrors(def)...)

	known := make(map[string]struct{}, len(domain.BaseColumns)+len(def.Indicators))
	for _, col := range domain.BaseColumns {
		known[col] = struct{}{}
	}

	seen := make(map[string]int, len(def.Indicators))
	for i, spec := range def.Indicators {
		field := fmt.Sprintf("indicators[%d]", i)
		if spec.Name == "" {
			continue
		}
		if domain.IsBaseColumn(spec.Name) {
			errs = append(errs, FieldError{field + ".name", fmt.Sprintf("name %q shadows a bar column", spec.Name)})
		}
		if first, dup := seen[spec.Name]; dup {
			errs = append(errs, FieldError{field + ".name",
				fmt.Sprintf("duplicate indicator name %q (first declared at indicators[%d])", spec.Name, first)})
			continue
		}
		seen[spec.Name] = i

		if spec.Type == "" {
			continue
		}
		if !registry.Has(spec.Type) {
			errs = append(errs, FieldError{field + ".type", fmt.Sprintf("unknown indicator type %q", spec.Type)})
			continue
		}
		if err := registry.CheckParams(spec.Type, spec.Parameters); err != nil {
			errs = append(errs, FieldError{field + ".parameters", trimSentinel(err)})
		}

		keys := indicator.OutputKeys(spec.Type)
		if len(keys) == 0 {
			known[spec.Name] = struct{}{}
			continue
		}
		for _, key := range keys {
			col := domain.ColumnName(spec.Name, key)
			if _, clash := known[col]; clash {
				errs = append(errs, FieldError{field + ".name", fmt.Sprintf("column %q declared more than once", col)})
			}
			known[col] = struct{}{}
		}
	}

	for i, cond := range def.Conditions {
		field := fmt.Sprintf("conditions[%d]", i)
		if cond.Indicator != "" {
			if _, ok := known[cond.Indicator]; !ok {
				errs = append(errs, FieldError{field + ".indicator",
					fmt.Sprintf("references unknown indicator %q", cond.Indicator)})
			}
		}
		if cond.Operator != "" {
			if _, err := operatorFunc(cond.Operator); err != nil {
				errs = append(errs, FieldError{field + ".operator", fmt.Sprintf("unknown operator %q", cond.Operator)})
			}
		}
		switch {
		case cond.Value.IsZero():
			errs = append(errs, FieldError{field + ".value", "is required"})
		case cond.Value.IsRef():
			if _, ok := known[cond.Value.Ref]; !ok {
				errs = append(errs, FieldError{field + ".value",
					fmt.Sprintf("references unknown indicator %q", cond.Value.Ref)})
			}
		}
	}
	return errs
}

// ValidationError joins field errors into one error wrapping ErrValidation.
func ValidationError(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
}

func structErrors(def domain.StrategyDef) []FieldError {
	err := structValidator.Struct(def)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "strategy", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if idx := strings.IndexByte(field, '.'); idx >= 0 {
			field = field[idx+1:]
		}
		out = append(out, FieldError{Field: field, Message: tagMessage(fe)})
	}
	return out
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// trimSentinel drops the taxonomy prefix from a wrapped error message.
func trimSentinel(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{domain.ErrConfiguration, domain.ErrValidation} {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return msg
}
