package experiment

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrConfig is matched by every ConfigError.
var ErrConfig = errors.New("configuration error")

// ConfigError describes a structurally invalid experiment. It is always fatal.
type ConfigError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("invalid experiment")
	if e.Field != "" {
		b.WriteString(" (")
		b.WriteString(e.Field)
		b.WriteString(")")
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConfig) true for any ConfigError.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use YAML tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct tags, then the cross-field rules tags cannot express.
func (e *Experiment) Validate() error {
	if err := validate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigError{Field: trimNamespace(fe.Namespace()), Msg: describe(fe)}
		}
		return &ConfigError{Msg: "validate", Err: err}
	}
	if e.Species[0].Background <= 0 {
		return &ConfigError{Field: "species[0].background", Msg: "limiting reagent needs a positive background concentration"}
	}
	switch e.Mode {
	case ModeSchedule:
		if len(e.Schedule) == 0 {
			return &ConfigError{Field: "schedule", Msg: "schedule mode needs at least one step"}
		}
	case ModeContinuous:
		if len(e.Program) == 0 {
			return &ConfigError{Field: "program", Msg: "continuous mode needs at least one program segment"}
		}
		for i, s := range e.Program {
			if s.To <= s.From {
				return &ConfigError{Field: fmt.Sprintf("program[%d]", i), Msg: fmt.Sprintf("segment end %g must be after start %g", s.To, s.From)}
			}
		}
	}
	switch e.Rate.Model {
	case ModelFlow:
		if e.Rate.FlowRate <= 0 || e.Rate.Volume <= 0 {
			return &ConfigError{Field: "rate", Msg: "flow model needs flow_rate > 0 and volume > 0"}
		}
	case ModelSurface:
		if e.Rate.FlowRate <= 0 || e.Rate.Mass <= 0 || e.Rate.SurfaceArea <= 0 {
			return &ConfigError{Field: "rate", Msg: "surface model needs flow_rate, mass and surface_area > 0"}
		}
	}
	if _, err := e.TableOptions(); err != nil {
		return err
	}
	return nil
}

func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("needs at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be > %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
