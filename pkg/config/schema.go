package config

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/forge/internal/schema"
)

// configSchema names the embedded JSON Schema for settings files.
const configSchema = "config-v1"

// ValidationError lists schema violations in a settings document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid settings: " + strings.Join(e.Problems, "; ")
}

// ValidateConfig validates a YAML settings document against the config schema.
func ValidateConfig(configData []byte) error {
	res, err := schema.ValidateBytes(configData, configSchema)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if res.Valid {
		return nil
	}
	verr := &ValidationError{}
	for _, e := range res.Errors {
		verr.Problems = append(verr.Problems, fmt.Sprintf("%s: %s", e.Path, e.Message))
	}
	return verr
}
