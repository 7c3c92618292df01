package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Error types carried by ConfigurationError.
const (
	ErrorTypeIO         = "io"
	ErrorTypeParse      = "parse"
	ErrorTypeValidation = "validation"
)

// ConfigurationError represents a structured error that occurs while loading
// a descriptor file.
type ConfigurationError struct {
	FilePath    string   `json:"filePath"`    // Full path to the file that caused the error
	ErrorType   string   `json:"errorType"`   // io, parse or validation
	Message     string   `json:"message"`     // Human-readable error message
	LineNumber  int      `json:"lineNumber"`  // Line number where error occurred (if available)
	Suggestions []string `json:"suggestions"` // Actionable suggestions to fix the error
	Err         error    `json:"-"`
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	if ce.LineNumber > 0 {
		return fmt.Sprintf("[%s] %s:%d: %s", ce.ErrorType, ce.FilePath, ce.LineNumber, ce.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", ce.ErrorType, ce.FilePath, ce.Message)
}

// Unwrap exposes the underlying cause, e.g. ValidationErrors.
func (ce ConfigurationError) Unwrap() error {
	return ce.Err
}

// DetailedError returns a detailed error message with all context
func (ce ConfigurationError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Configuration Error in %s", ce.FilePath))
	parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))

	if ce.LineNumber > 0 {
		parts = append(parts, fmt.Sprintf("  Line: %d", ce.LineNumber))
	}

	parts = append(parts, fmt.Sprintf("  Error: %s", ce.Message))

	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// newParseError wraps a yaml decoding error, lifting the first line number
// yaml.v3 mentions into the structured error.
func newParseError(path string, err error) ConfigurationError {
	ce := ConfigurationError{
		FilePath:  path,
		ErrorType: ErrorTypeParse,
		Message:   err.Error(),
		Err:       err,
	}
	if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
		ce.LineNumber, _ = strconv.Atoi(m[1])
	}
	if strings.Contains(err.Error(), "not found in type") {
		ce.Suggestions = append(ce.Suggestions, "check the key spelling; descriptor keys are camelCase (e.g. nodeIPAddress, wipeDBOnCookieChange)")
	}
	return ce
}
