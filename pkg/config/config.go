// Package config loads forge settings. Values are layered, lowest first:
// built-in defaults, the user file ($FORGE_HOME/config.yaml or
// ~/.config/forge/config.yaml), the project's .forge.yaml, then FORGE_*
// environment variables. Command-line flags override on top in cmd.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fulmenhq/forge/pkg/safeio"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. FORGE_AUTHOR or
// FORGE_FORMAT_TOOL.
const EnvPrefix = "FORGE"

// ProjectFileName is the per-project settings file.
const ProjectFileName = ".forge.yaml"

// Config holds all configuration for forge
type Config struct {
	Author          string       `mapstructure:"author" yaml:"author"`
	Email           string       `mapstructure:"email" yaml:"email"`
	DefaultType     string       `mapstructure:"default_type" yaml:"default_type"`
	StructureFile   string       `mapstructure:"structure_file" yaml:"structure_file"`
	ExcludePatterns []string     `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`
	Format          FormatConfig `mapstructure:"format" yaml:"format"`
	Test            TestConfig   `mapstructure:"test" yaml:"test"`

	sources []Source
	v       *viper.Viper
}

// FormatConfig holds settings for `forge format`
type FormatConfig struct {
	Tool    string        `mapstructure:"tool" yaml:"tool"`
	Workers int           `mapstructure:"workers" yaml:"workers"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// TestConfig holds settings for `forge test`
type TestConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

var defaultConfig = Config{
	DefaultType:     "basic",
	ExcludePatterns: []string{},
	Format: FormatConfig{
		Tool:    "auto",
		Workers: 0,
		Timeout: parseDurationDefault("2m"),
	},
	Test: TestConfig{
		Timeout: parseDurationDefault("10m"),
	},
}

// LoadOptions selects the files Load reads.
type LoadOptions struct {
	// ConfigFile replaces the user file; it must exist.
	ConfigFile string
	// ProjectDir is searched for .forge.yaml. Empty skips the project layer.
	ProjectDir string
}

// FileError reports an unreadable or invalid settings file.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("config %s: %v", e.Path, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// IsFileError reports whether err came from a bad settings file.
func IsFileError(err error) bool {
	var fe *FileError
	return errors.As(err, &fe)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("author", defaultConfig.Author)
	v.SetDefault("email", defaultConfig.Email)
	v.SetDefault("default_type", defaultConfig.DefaultType)
	v.SetDefault("structure_file", defaultConfig.StructureFile)
	v.SetDefault("exclude_patterns", defaultConfig.ExcludePatterns)
	v.SetDefault("format.tool", defaultConfig.Format.Tool)
	v.SetDefault("format.workers", defaultConfig.Format.Workers)
	v.SetDefault("format.timeout", defaultConfig.Format.Timeout)
	v.SetDefault("test.timeout", defaultConfig.Test.Timeout)
}

// Load reads configuration from all layers.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var sources []Source

	userFile, required := opts.ConfigFile, true
	if userFile == "" {
		required = false
		var err error
		if userFile, err = UserConfigFile(); err != nil {
			return nil, err
		}
	}
	src, err := loadSource(LayerUser, userFile, required)
	if err != nil {
		return nil, err
	}
	if src != nil {
		if err := v.MergeConfigMap(src.values.AllSettings()); err != nil {
			return nil, &FileError{Path: userFile, Err: err}
		}
		sources = append(sources, *src)
	}

	if opts.ProjectDir != "" {
		src, err := loadProjectSource(opts.ProjectDir)
		if err != nil {
			return nil, err
		}
		if src != nil {
			if err := v.MergeConfigMap(src.values.AllSettings()); err != nil {
				return nil, &FileError{Path: src.Path, Err: err}
			}
			sources = append(sources, *src)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.sources = sources
	cfg.v = v
	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	cfg.v = v
	return cfg
}

// Sources lists the files that contributed, lowest precedence first.
func (c *Config) Sources() []Source { return c.sources }

// Get returns the effective value of a dotted key such as "format.tool".
func (c *Config) Get(key string) interface{} {
	if c.v == nil {
		return nil
	}
	return c.v.Get(key)
}

// parseDurationDefault is a helper to create default duration values from string literal
func parseDurationDefault(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// GetForgeHome returns the directory holding the user config file.
func GetForgeHome() (string, error) {
	if home := os.Getenv("FORGE_HOME"); home != "" {
		return home, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "forge"), nil
}

// UserConfigFile returns the path of the user config file.
func UserConfigFile() (string, error) {
	home, err := GetForgeHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}

// EnsureForgeHome creates the forge home directory if it doesn't exist
func EnsureForgeHome() (string, error) {
	home, err := GetForgeHome()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(home, 0750); err != nil {
		return "", fmt.Errorf("failed to create forge home directory: %w", err)
	}
	return home, nil
}

// Save writes key=value into the settings file at path (the user file when
// path is empty), keeping the keys already there.
func Save(path, key, value string) error {
	typed, err := ParseValue(key, value)
	if err != nil {
		return err
	}
	if path == "" {
		if _, err := EnsureForgeHome(); err != nil {
			return err
		}
		if path, err = UserConfigFile(); err != nil {
			return err
		}
	}

	src, err := loadSource(LayerUser, path, false)
	if err != nil {
		return err
	}
	v := viper.New()
	if src != nil {
		v = src.values
	}
	v.Set(key, typed)

	data, err := marshalSettings(v.AllSettings())
	if err != nil {
		return err
	}
	if err := ValidateConfig(data); err != nil {
		return err
	}
	if err := safeio.WriteFilePreservePerms(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
