// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/plugload/plugload/pkg/loader"
	"github.com/plugload/plugload/pkg/manifest"
	"github.com/plugload/plugload/pkg/pluginname"
	"github.com/plugload/plugload/pkg/pluginns"
)

const (
	// ColorAuto styles output when the terminal supports it.
	ColorAuto ColorMode = "auto"
	// ColorAlways forces styled output.
	ColorAlways ColorMode = "always"
	// ColorNever disables styling.
	ColorNever ColorMode = "never"
)

var (
	// ErrInvalidColorMode is returned when a ColorMode value is not recognized.
	ErrInvalidColorMode = errors.New("invalid color mode")
	// ErrInvalidConfig is returned when a decoded Config fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

type (
	// ColorMode selects when CLI output is styled.
	ColorMode string

	// InvalidColorModeError is returned when a ColorMode value is not recognized.
	// It wraps ErrInvalidColorMode for errors.Is() compatibility.
	InvalidColorModeError struct {
		Value ColorMode
	}

	// InvalidConfigError collects every field that failed validation.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// UIConfig configures CLI output.
	UIConfig struct {
		Verbose bool      `json:"verbose" mapstructure:"verbose"`
		Color   ColorMode `json:"color" mapstructure:"color"`
	}

	// Config is the plugload CLI configuration. Its plugin fields mirror
	// pluginns.Options.
	Config struct {
		Patterns []string `json:"patterns" mapstructure:"patterns"`
		// ReplaceString is nil when the prefix should be derived from the
		// first pattern. A pointer to "" strips nothing.
		ReplaceString *string           `json:"replace_string,omitempty" mapstructure:"replace_string"`
		Camelize      bool              `json:"camelize" mapstructure:"camelize"`
		Lazy          bool              `json:"lazy" mapstructure:"lazy"`
		Rename        map[string]string `json:"rename,omitempty" mapstructure:"rename"`
		RenameExpr    string            `json:"rename_expr,omitempty" mapstructure:"rename_expr"`
		Scopes        []string          `json:"scopes" mapstructure:"scopes"`
		ModulesDir    string            `json:"modules_dir" mapstructure:"modules_dir"`
		UI            UIConfig          `json:"ui" mapstructure:"ui"`
	}
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	scopes := make([]string, 0, len(manifest.DefaultCategories()))
	for _, c := range manifest.DefaultCategories() {
		scopes = append(scopes, string(c))
	}
	return &Config{
		Patterns:   pluginname.DefaultPatterns(),
		Camelize:   true,
		Lazy:       true,
		Scopes:     scopes,
		ModulesDir: loader.DefaultModulesDir,
		UI: UIConfig{
			Color: ColorAuto,
		},
	}
}

func (e *InvalidColorModeError) Error() string {
	return fmt.Sprintf("invalid color mode %q (valid: auto, always, never)", e.Value)
}

// Unwrap returns ErrInvalidColorMode for errors.Is() compatibility.
func (e *InvalidColorModeError) Unwrap() error { return ErrInvalidColorMode }

// Validate returns nil for auto, always and never. The empty value means auto.
func (m ColorMode) Validate() error {
	switch m {
	case "", ColorAuto, ColorAlways, ColorNever:
		return nil
	default:
		return &InvalidColorModeError{Value: m}
	}
}

func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so
// errors.Is matches both.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Validate checks the constraints the CUE schema cannot express: patterns
// must compile and rename_expr must compile to a string expression.
func (c *Config) Validate() error {
	var errs []error
	if _, err := pluginname.NewMatcher(c.Patterns...); err != nil {
		errs = append(errs, fmt.Errorf("patterns: %w", err))
	}
	if c.RenameExpr != "" {
		if _, err := pluginname.CompileRenameExpr(c.RenameExpr); err != nil {
			errs = append(errs, fmt.Errorf("rename_expr: %w", err))
		}
	}
	for _, s := range c.Scopes {
		if err := manifest.Category(s).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("scopes: %w", err))
		}
	}
	if err := c.UI.Color.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ui.color: %w", err))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Categories returns Scopes as manifest categories.
func (c *Config) Categories() []manifest.Category {
	out := make([]manifest.Category, len(c.Scopes))
	for i, s := range c.Scopes {
		out[i] = manifest.Category(s)
	}
	return out
}

// PluginOptions converts the configuration into namespace options. The
// returned options come before any option the caller appends, so flags can
// still override them.
func (c *Config) PluginOptions() ([]pluginns.Option, error) {
	opts := []pluginns.Option{
		pluginns.WithPattern(c.Patterns...),
		pluginns.WithCamelize(c.Camelize),
		pluginns.WithLazy(c.Lazy),
		pluginns.WithScopes(c.Categories()...),
	}
	if c.ReplaceString != nil {
		opts = append(opts, pluginns.WithReplaceString(*c.ReplaceString))
	}
	if len(c.Rename) > 0 {
		opts = append(opts, pluginns.WithRename(c.Rename))
	}
	if c.RenameExpr != "" {
		expr, err := pluginname.CompileRenameExpr(c.RenameExpr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pluginns.WithRenameExpr(expr))
	}
	return opts, nil
}
