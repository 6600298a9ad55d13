package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/forge/pkg/safeio"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Layer identifies where a setting came from, in increasing precedence.
type Layer int

const (
	LayerDefault Layer = iota
	LayerUser
	LayerProject
	LayerEnv
)

func (l Layer) String() string {
	switch l {
	case LayerUser:
		return "user"
	case LayerProject:
		return "project"
	case LayerEnv:
		return "env"
	default:
		return "default"
	}
}

// Source is one settings file that contributed to a Config.
type Source struct {
	Layer Layer  `json:"layer"`
	Path  string `json:"path"`

	values *viper.Viper
}

// MarshalText renders the layer by name.
func (l Layer) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Keys lists every setting forge understands, in display order.
var Keys = []string{
	"author",
	"email",
	"default_type",
	"structure_file",
	"exclude_patterns",
	"format.tool",
	"format.workers",
	"format.timeout",
	"test.timeout",
}

// KeyError reports a setting name forge does not know.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("unknown config key %q (known: %s)", e.Key, strings.Join(Keys, ", "))
}

// EnvVar returns the environment variable overriding key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Origin reports which layer supplied the effective value of key.
func (c *Config) Origin(key string) Layer {
	if _, ok := os.LookupEnv(EnvVar(key)); ok {
		return LayerEnv
	}
	for i := len(c.sources) - 1; i >= 0; i-- {
		if c.sources[i].values.IsSet(key) {
			return c.sources[i].Layer
		}
	}
	return LayerDefault
}

// ParseValue converts a command-line value to the type stored for key.
func ParseValue(key, value string) (interface{}, error) {
	switch key {
	case "author", "email", "default_type", "structure_file", "format.tool":
		return value, nil
	case "exclude_patterns":
		var out []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	case "format.workers":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
		}
		return n, nil
	case "format.timeout", "test.timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("%s must be a duration such as 90s or 5m: %w", key, err)
		}
		return value, nil
	}
	return nil, &KeyError{Key: key}
}

func loadSource(layer Layer, path string, required bool) (*Source, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-selected config file
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil, nil
		}
		return nil, &FileError{Path: path, Err: err}
	}
	return parseSource(layer, path, data)
}

func loadProjectSource(dir string) (*Source, error) {
	path := filepath.Join(dir, ProjectFileName)
	data, err := safeio.ReadFileContained(dir, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &FileError{Path: path, Err: err}
	}
	return parseSource(LayerProject, path, data)
}

func parseSource(layer Layer, path string, data []byte) (*Source, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if len(bytes.TrimSpace(data)) > 0 {
		if err := ValidateConfig(data); err != nil {
			return nil, &FileError{Path: path, Err: err}
		}
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, &FileError{Path: path, Err: err}
		}
	}
	return &Source{Layer: layer, Path: path, values: v}, nil
}

// Effective returns the merged settings keyed by dotted name.
func (c *Config) Effective() map[string]interface{} {
	out := make(map[string]interface{}, len(Keys))
	for _, k := range Keys {
		out[k] = c.Get(k)
	}
	return out
}

func marshalSettings(settings map[string]interface{}) ([]byte, error) {
	out, err := yaml.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return out, nil
}
