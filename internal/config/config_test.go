package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eugenenazirov/apheresis/internal/cryo"
	"github.com/eugenenazirov/apheresis/internal/storage"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CONTAINER_TYPES", "DEFAULT_EFFICIENCY", "MAX_LEUKOCYTE_CONCENTRATION",
		"LOG_LEVEL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if len(cfg.InitialContainerTypes) != len(storage.DefaultContainerTypes()) {
		t.Fatalf("expected default container types, got %v", cfg.InitialContainerTypes)
	}
	if cfg.DefaultEfficiency != 0.4 {
		t.Fatalf("expected default efficiency 0.4, got %v", cfg.DefaultEfficiency)
	}
	if cfg.MaxLeukocyteConcentration != 250000 {
		t.Fatalf("expected default max concentration 250000, got %v", cfg.MaxLeukocyteConcentration)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
	if !cfg.EnableRequestLogging || !cfg.MetricsEnabled {
		t.Fatalf("expected request logging and metrics enabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("CONTAINER_TYPES", "Vial:1:1:cryovial, Bag 50:20:50")
	t.Setenv("DEFAULT_EFFICIENCY", "0.55")
	t.Setenv("MAX_LEUKOCYTE_CONCENTRATION", "200000")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	want := []cryo.ContainerType{
		{Name: "Vial", MinVolumeMl: 1, MaxVolumeMl: 1, Role: cryo.RoleCryovial},
		{Name: "Bag 50", MinVolumeMl: 20, MaxVolumeMl: 50},
	}
	if len(cfg.InitialContainerTypes) != len(want) {
		t.Fatalf("unexpected container types: %v", cfg.InitialContainerTypes)
	}
	for i := range want {
		if cfg.InitialContainerTypes[i] != want[i] {
			t.Fatalf("expected %+v at %d, got %+v", want[i], i, cfg.InitialContainerTypes[i])
		}
	}
	if cfg.DefaultEfficiency != 0.55 || cfg.MaxLeukocyteConcentration != 200000 {
		t.Fatalf("unexpected calculator defaults: %v %v", cfg.DefaultEfficiency, cfg.MaxLeukocyteConcentration)
	}
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "MalformedContainerTypes", key: "CONTAINER_TYPES", value: "Bag:ten:50"},
		{name: "InvalidContainerTypes", key: "CONTAINER_TYPES", value: "Bag:60:50"},
		{name: "EfficiencyNotNumber", key: "DEFAULT_EFFICIENCY", value: "high"},
		{name: "EfficiencyOutOfRange", key: "DEFAULT_EFFICIENCY", value: "1.5"},
		{name: "NegativeMaxConcentration", key: "MAX_LEUKOCYTE_CONCENTRATION", value: "-1"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			if _, err := Load(nil); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestLoadInvalidContainerTypesWrapsSentinel(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONTAINER_TYPES", "Bag:10:50,bag:10:50")

	_, err := Load(nil)
	if !errors.Is(err, storage.ErrInvalidContainerTypes) {
		t.Fatalf("expected ErrInvalidContainerTypes, got %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
port: "7070"
default_efficiency: 0.5
max_leukocyte_concentration: 300000
write_timeout: 30s
enable_request_logging: false
log_level: debug
rate_limit:
  rps: 0
  burst: 0
container_types:
  - name: Criotubo
    min_volume_ml: 1
    max_volume_ml: 1
  - name: Bag
    min_volume_ml: 20
    max_volume_ml: 100
`)

	cfg, err := Load(&CLIOverrides{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "7070" {
		t.Fatalf("expected port from YAML, got %s", cfg.Port)
	}
	if cfg.DefaultEfficiency != 0.5 || cfg.MaxLeukocyteConcentration != 300000 {
		t.Fatalf("unexpected calculator defaults: %v %v", cfg.DefaultEfficiency, cfg.MaxLeukocyteConcentration)
	}
	if cfg.WriteTimeout != 30*time.Second {
		t.Fatalf("expected write timeout 30s, got %s", cfg.WriteTimeout)
	}
	if cfg.EnableRequestLogging {
		t.Fatalf("expected request logging disabled by YAML")
	}
	if !cfg.MetricsEnabled {
		t.Fatalf("expected metrics to keep default when omitted")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected debug log level, got %s", cfg.LogLevel)
	}
	if cfg.RateLimitRPS != 0 || cfg.RateLimitBurst != 0 {
		t.Fatalf("expected rate limiting disabled, got %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if len(cfg.InitialContainerTypes) != 2 || cfg.InitialContainerTypes[0].Name != "Criotubo" {
		t.Fatalf("unexpected container types: %v", cfg.InitialContainerTypes)
	}
}

func TestLoadYAMLErrors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatalf("expected error for missing file")
	}

	bad := writeConfigFile(t, "port: [")
	if _, err := Load(&CLIOverrides{ConfigFile: bad}); err == nil {
		t.Fatalf("expected error for malformed YAML")
	}

	badDuration := writeConfigFile(t, "idle_timeout: soon\n")
	if _, err := Load(&CLIOverrides{ConfigFile: badDuration}); err == nil {
		t.Fatalf("expected error for malformed duration")
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "port: \"7070\"\nlog_level: warn\n")
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load(&CLIOverrides{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "9000" || cfg.LogLevel != "error" {
		t.Fatalf("expected environment to override YAML, got port %s level %s", cfg.Port, cfg.LogLevel)
	}

	port := "9100"
	types := "Bag:10:50"
	rps := 5.0
	burst := 7
	cfg, err = Load(&CLIOverrides{
		ConfigFile:        path,
		Port:              &port,
		ContainerTypesStr: &types,
		RateLimitRPS:      &rps,
		RateLimitBurst:    &burst,
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "9100" {
		t.Fatalf("expected CLI to override environment, got %s", cfg.Port)
	}
	if len(cfg.InitialContainerTypes) != 1 || cfg.InitialContainerTypes[0].Name != "Bag" {
		t.Fatalf("unexpected container types: %v", cfg.InitialContainerTypes)
	}
	if cfg.RateLimitRPS != 5 || cfg.RateLimitBurst != 7 {
		t.Fatalf("unexpected rate limit %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestParseContainerTypes(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := parseContainerTypes("Cryovial:1:1:Cryovial, Small bag:15:85,,Large bag:40:160")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("unexpected types: %v", got)
		}
		if got[0].Role != cryo.RoleCryovial {
			t.Fatalf("expected role to be lower-cased, got %q", got[0].Role)
		}
		if got[1].Name != "Small bag" || got[1].MinVolumeMl != 15 || got[1].MaxVolumeMl != 85 {
			t.Fatalf("unexpected second entry: %+v", got[1])
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, raw := range []string{" , ", "Bag:10", "Bag:1:2:3:4", "Bag:x:2", "Bag:1:y"} {
			if _, err := parseContainerTypes(raw); err == nil {
				t.Fatalf("expected error for %q", raw)
			}
		}
	})
}
