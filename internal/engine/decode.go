package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a scenario encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown scenario format")

// FormatFromPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeInput reads a SimulationInput in the given format.
func DecodeInput(r io.Reader, format Format) (SimulationInput, error) {
	var input SimulationInput
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&input); err != nil {
			return SimulationInput{}, fmt.Errorf("invalid input JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&input); err != nil {
			return SimulationInput{}, fmt.Errorf("invalid input YAML: %w", err)
		}
	default:
		return SimulationInput{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return input, nil
}
