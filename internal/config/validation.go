package config

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report YAML key names instead of Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// ValidateConfig runs struct-tag validation followed by the cross-unit checks.
// Every failure is a fatal ConfigError.
func ValidateConfig(cfg *Config) error {
	if err := structValidator().Struct(cfg); err != nil {
		return errors.WrapError(flattenValidation(err), errors.CategoryConfig, "configuration validation failed").Fatal().Build()
	}
	return newConfigurationValidator(cfg).validate()
}

func flattenValidation(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch {
		case fe.Param() != "":
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return stderrors.New(strings.Join(msgs, "; "))
}

// configurationValidator checks invariants that span fields and units.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateUnitNames(); err != nil {
		return err
	}
	if err := cv.validateOutputRoots(); err != nil {
		return err
	}
	return cv.validateDisjointOutputs()
}

func (cv *configurationValidator) validateUnitNames() error {
	seen := make(map[string]bool, len(cv.config.Units))
	for _, u := range cv.config.Units {
		if seen[u.Name] {
			return errors.ConfigError("duplicate unit name").WithContext("unit", u.Name).Build()
		}
		seen[u.Name] = true
	}
	return nil
}

// validateOutputRoots rejects an output root equal to or above any source root.
// Cleaning such an output root would destroy sources.
func (cv *configurationValidator) validateOutputRoots() error {
	for _, u := range cv.config.Units {
		for _, other := range cv.config.Units {
			for _, root := range other.SourceRoots {
				if IsWithin(root, u.Out) {
					return errors.ConfigError("output root overlaps a source root").
						WithContext("unit", u.Name).
						WithContext("out", u.Out).
						WithContext("source_root", root).
						Build()
				}
			}
		}
	}
	return nil
}

// validateDisjointOutputs requires distinct units to write to non-nested roots.
func (cv *configurationValidator) validateDisjointOutputs() error {
	units := cv.config.Units
	for i := range units {
		for j := i + 1; j < len(units); j++ {
			a, b := units[i], units[j]
			if IsWithin(a.Out, b.Out) || IsWithin(b.Out, a.Out) {
				return errors.ConfigError("units share an output root").
					WithContext("unit", a.Name).
					WithContext("other_unit", b.Name).
					WithContext("out", a.Out).
					Build()
			}
		}
	}
	return nil
}

// IsWithin reports whether path equals dir or lies below it.
func IsWithin(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
