package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"warren/pkg/logging"

	"gopkg.in/yaml.v3"
)

// LoadDescriptor reads the descriptor at path on top of Defaults and
// validates it. A missing file yields the defaults. Unknown keys are rejected
// so that a misspelled toggle never silently falls back to its default.
func LoadDescriptor(path string) (Descriptor, error) {
	desc := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No descriptor found at %s, using defaults", path)
			return desc, nil
		}
		return Descriptor{}, ConfigurationError{
			FilePath:  path,
			ErrorType: ErrorTypeIO,
			Message:   err.Error(),
			Err:       err,
		}
	}

	desc, err = ParseDescriptor(data)
	if err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			return Descriptor{}, ConfigurationError{
				FilePath:  path,
				ErrorType: ErrorTypeValidation,
				Message:   verrs.Error(),
				Err:       verrs,
			}
		}
		return Descriptor{}, newParseError(path, err)
	}

	logging.Info("ConfigLoader", "Loaded descriptor from %s", path)
	return desc, nil
}

// ParseDescriptor decodes YAML onto Defaults and validates the result.
func ParseDescriptor(data []byte) (Descriptor, error) {
	desc := Defaults()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&desc); err != nil && !errors.Is(err, io.EOF) {
		return Descriptor{}, fmt.Errorf("decode descriptor: %w", err)
	}

	if err := Validate(&desc); err != nil {
		return Descriptor{}, err
	}
	return desc, nil
}
