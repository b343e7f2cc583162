// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for joat commands.
//
// Commands return errors; Run decides how to display them and which exit
// code they map to.

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/joat/internal/config"
	"github.com/jeranaias/joat/internal/ollama"
	"github.com/jeranaias/joat/internal/profile"
	"github.com/jeranaias/joat/internal/router"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file, profile or settings error
	ExitConfigError = 3
	// ExitBackendError indicates the inference backend could not be reached
	ExitBackendError = 4
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports bad arguments.
type UsageError struct {
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s\nExample: %s", e.Reason, e.Example)
	}
	return e.Reason
}

// ConfigError wraps a failure to load or apply configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, example string) error {
	return &UsageError{Reason: fmt.Sprintf("missing required argument: %s", argName), Example: example}
}

// ErrInvalidValue creates an error for a flag with an unusable value.
func ErrInvalidValue(flag, value string, err error) error {
	return &UsageError{Reason: fmt.Sprintf("invalid value %q for --%s: %v", value, flag, err)}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode determines the exit code for err.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}

	var cfgErr *ConfigError
	var profErr *profile.ConfigError
	var valErrs config.ValidateErrors
	var valErr config.ValidationError
	if errors.As(err, &cfgErr) || errors.As(err, &profErr) ||
		errors.As(err, &valErrs) || errors.As(err, &valErr) ||
		errors.Is(err, router.ErrConfig) {
		return ExitConfigError
	}

	if errors.Is(err, router.ErrBackendUnavailable) ||
		errors.Is(err, ollama.ErrNotRunning) ||
		errors.Is(err, ollama.ErrExecutableNotFound) {
		return ExitBackendError
	}
	var u interface{ Unavailable() bool }
	if errors.As(err, &u) && u.Unavailable() {
		return ExitBackendError
	}

	return ExitGeneralError
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON when jsonMode is set.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		out := map[string]any{
			"success":   false,
			"error":     err.Error(),
			"exit_code": GetExitCode(err),
		}
		if kind := router.KindOf(err); kind != "" {
			out["kind"] = kind
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	if hint := hintFor(err); hint != "" {
		fmt.Fprintf(w, "%s\n", DimStyle.Render(hint))
	}
}

// hintFor suggests a next step for common failures.
func hintFor(err error) string {
	switch GetExitCode(err) {
	case ExitBackendError:
		return "Is the inference server running? For Ollama: ollama serve"
	case ExitConfigError:
		return "Check the configuration with: joat config show"
	case ExitUsageError:
		return "Run 'joat help' for usage."
	}
	if errors.Is(err, router.ErrFallbackExhausted) {
		return "Install a high-priority model with 'joat setup' or disable essential mode."
	}
	return ""
}
