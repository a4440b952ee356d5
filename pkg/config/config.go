// Package config loads the core's own runtime settings — cache
// location, HTTP port range, and discovery advertisement name — the
// way the teacher's pkg/config loads database/server settings: a YAML
// file overridden by environment variables, validated with
// go-playground/validator.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Config holds the core's own configuration. Configure via YAML file
// (path from CONFIG_FILE, default /config/folio.yaml) or environment
// variables (uppercase with underscores, e.g. CACHE_DIR).
type Config struct {
	// CacheDir is where ConversionCache artifacts are written
	// (spec.md §6's "<systemTmp>/FolioKindleCache" default, overridable).
	CacheDir string `koanf:"cache_dir" json:"cache_dir" validate:"required"`

	// LibraryDir is the directory FSProvider scans for ebook files. This
	// is the core's own default BookProvider; a surrounding application
	// embedding this core may supply a richer Provider instead and leave
	// LibraryDir unset.
	LibraryDir string `koanf:"library_dir" json:"library_dir" validate:"required"`

	// ConfigDirectory is where the persisted user-scoped key-value
	// blobs (SMTPConfig, saved Kindle destination) are stored.
	ConfigDirectory string `koanf:"config_directory" json:"config_directory"`

	// PortRangeStart/PortRangeEnd bound the HTTPTransferServer's bind
	// loop (spec.md §4.7).
	PortRangeStart int `koanf:"port_range_start" json:"port_range_start"`
	PortRangeEnd   int `koanf:"port_range_end" json:"port_range_end"`

	// DiscoveryServiceName is advertised as the mDNS instance name; it
	// defaults to the machine hostname if left empty.
	DiscoveryServiceName string `koanf:"discovery_service_name" json:"discovery_service_name"`
	DiscoveryEnabled     bool   `koanf:"discovery_enabled" json:"discovery_enabled"`

	// Hostname is computed, not loaded from file/env.
	Hostname string `koanf:"-" json:"-"`
}

// defaults returns a Config with default values.
func defaults() *Config {
	return &Config{
		CacheDir:         os.TempDir() + "/FolioKindleCache",
		LibraryDir:       "/books",
		ConfigDirectory:  "/config",
		PortRangeStart:   8080,
		PortRangeEnd:     8180,
		DiscoveryEnabled: true,
	}
}

// New creates a Config by loading from file then environment
// variables (later sources override earlier ones).
func New() (*Config, error) {
	k := koanf.New(".")
	cfg := defaults()

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "/config/folio.yaml"
	}
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to load config file %s", configPath)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get hostname")
	}
	cfg.Hostname = hostname
	if cfg.DiscoveryServiceName == "" {
		cfg.DiscoveryServiceName = hostname
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest creates a Config for testing with minimal required fields.
func NewForTest() *Config {
	cfg := defaults()
	cfg.Hostname = "test-host"
	cfg.DiscoveryServiceName = "test-host"
	cfg.LibraryDir = os.TempDir()
	return cfg
}

// validateConfig validates the config and returns user-friendly error messages.
func validateConfig(cfg *Config) error {
	validate := validator.New()
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(err, "config validation failed")
	}

	var msgs []string
	for _, e := range validationErrors {
		field := e.StructField()
		tag := e.Tag()

		switch tag {
		case "required":
			envVar := strings.ToUpper(toSnakeCase(field))
			yamlKey := toSnakeCase(field)
			msgs = append(msgs, fmt.Sprintf(
				"missing required config: %s\n  Set via environment variable: %s\n  Or in config file: %s",
				field, envVar, yamlKey,
			))
		default:
			msgs = append(msgs, fmt.Sprintf("invalid config %s: %s", field, tag))
		}
	}

	return errors.New("configuration validation failed:\n\n" + strings.Join(msgs, "\n\n"))
}

// toSnakeCase converts PascalCase to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
