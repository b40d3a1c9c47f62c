package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/apheresis/internal/cryo"
	"github.com/eugenenazirov/apheresis/internal/storage"
)

const (
	defaultPort                      = "8080"
	defaultRateLimitRPS              = 25.0
	defaultRateLimitBurst            = 50
	defaultEfficiency                = 0.4
	defaultMaxLeukocyteConcentration = 250000.0
	defaultLogLevel                  = "info"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables > YAML config > Defaults
type Config struct {
	Port                  string
	InitialContainerTypes []cryo.ContainerType
	// DefaultEfficiency applies when a collection request omits efficiency.
	DefaultEfficiency float64
	// MaxLeukocyteConcentration applies when a plan omits the limit (cells/mm³).
	MaxLeukocyteConcentration float64
	ShutdownGracePeriod       time.Duration
	ReadHeaderTimeout         time.Duration
	WriteTimeout              time.Duration
	IdleTimeout               time.Duration
	EnableRequestLogging      bool
	MetricsEnabled            bool
	LogLevel                  string
	RateLimitRPS              float64
	RateLimitBurst            int
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                      string               `yaml:"port"`
	ContainerTypes            []cryo.ContainerType `yaml:"container_types"`
	DefaultEfficiency         float64              `yaml:"default_efficiency"`
	MaxLeukocyteConcentration float64              `yaml:"max_leukocyte_concentration"`
	ShutdownGracePeriod       string               `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout         string               `yaml:"read_header_timeout"`
	WriteTimeout              string               `yaml:"write_timeout"`
	IdleTimeout               string               `yaml:"idle_timeout"`
	EnableRequestLogging      *bool                `yaml:"enable_request_logging"`
	MetricsEnabled            *bool                `yaml:"metrics_enabled"`
	LogLevel                  string               `yaml:"log_level"`
	RateLimit                 *yamlRateLimit       `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile        string
	Port              *string
	ContainerTypesStr *string
	LogLevel          *string
	RateLimitRPS      *float64
	RateLimitBurst    *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > YAML config > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
	}

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	if err := validateConfig(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		Port:                      defaultPort,
		InitialContainerTypes:     storage.DefaultContainerTypes(),
		DefaultEfficiency:         defaultEfficiency,
		MaxLeukocyteConcentration: defaultMaxLeukocyteConcentration,
		ShutdownGracePeriod:       10 * time.Second,
		ReadHeaderTimeout:         5 * time.Second,
		WriteTimeout:              15 * time.Second,
		IdleTimeout:               60 * time.Second,
		EnableRequestLogging:      true,
		MetricsEnabled:            true,
		LogLevel:                  defaultLogLevel,
		RateLimitRPS:              defaultRateLimitRPS,
		RateLimitBurst:            defaultRateLimitBurst,
	}
}

func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if len(yamlCfg.ContainerTypes) > 0 {
		cfg.InitialContainerTypes = yamlCfg.ContainerTypes
	}

	if yamlCfg.DefaultEfficiency != 0 {
		cfg.DefaultEfficiency = yamlCfg.DefaultEfficiency
	}

	if yamlCfg.MaxLeukocyteConcentration != 0 {
		cfg.MaxLeukocyteConcentration = yamlCfg.MaxLeukocyteConcentration
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.MetricsEnabled != nil {
		cfg.MetricsEnabled = *yamlCfg.MetricsEnabled
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if yamlCfg.RateLimit != nil {
		cfg.RateLimitRPS = yamlCfg.RateLimit.RPS
		cfg.RateLimitBurst = yamlCfg.RateLimit.Burst
	}

	return nil
}

func applyEnvConfig(cfg *Config) error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if raw := strings.TrimSpace(os.Getenv("CONTAINER_TYPES")); raw != "" {
		types, err := parseContainerTypes(raw)
		if err != nil {
			return fmt.Errorf("parse CONTAINER_TYPES: %w", err)
		}
		cfg.InitialContainerTypes = types
	}

	if raw := strings.TrimSpace(os.Getenv("DEFAULT_EFFICIENCY")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("parse DEFAULT_EFFICIENCY: %w", err)
		}
		cfg.DefaultEfficiency = value
	}

	if raw := strings.TrimSpace(os.Getenv("MAX_LEUKOCYTE_CONCENTRATION")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("parse MAX_LEUKOCYTE_CONCENTRATION: %w", err)
		}
		cfg.MaxLeukocyteConcentration = value
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	return nil
}

func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.ContainerTypesStr != nil && *overrides.ContainerTypesStr != "" {
		types, err := parseContainerTypes(*overrides.ContainerTypesStr)
		if err != nil {
			return fmt.Errorf("parse container types: %w", err)
		}
		cfg.InitialContainerTypes = types
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	return nil
}

// validateConfig also normalises the container catalogue in place.
func validateConfig(cfg *Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.DefaultEfficiency <= 0 || cfg.DefaultEfficiency > 1 {
		return fmt.Errorf("default efficiency must be in (0, 1], got %g", cfg.DefaultEfficiency)
	}
	if cfg.MaxLeukocyteConcentration <= 0 {
		return fmt.Errorf("max leukocyte concentration must be > 0, got %g", cfg.MaxLeukocyteConcentration)
	}

	types, err := storage.NormalizeContainerTypes(cfg.InitialContainerTypes)
	if err != nil {
		return err
	}
	cfg.InitialContainerTypes = types
	return nil
}

// parseContainerTypes parses "Name:min:max[:role]" entries separated by commas.
func parseContainerTypes(raw string) ([]cryo.ContainerType, error) {
	entries := strings.Split(raw, ",")
	types := make([]cryo.ContainerType, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		fields := strings.Split(entry, ":")
		if len(fields) < 3 || len(fields) > 4 {
			return nil, fmt.Errorf("invalid container type %q, want name:min:max[:role]", entry)
		}

		minVolume, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("container type %q: invalid minimum volume %q", entry, fields[1])
		}
		maxVolume, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("container type %q: invalid maximum volume %q", entry, fields[2])
		}

		ct := cryo.ContainerType{
			Name:        strings.TrimSpace(fields[0]),
			MinVolumeMl: minVolume,
			MaxVolumeMl: maxVolume,
		}
		if len(fields) == 4 {
			ct.Role = cryo.Role(strings.ToLower(strings.TrimSpace(fields[3])))
		}
		types = append(types, ct)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("no container types provided")
	}
	return types, nil
}
