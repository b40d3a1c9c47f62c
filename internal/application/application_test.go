package application

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/apheresis/internal/config"
	"github.com/eugenenazirov/apheresis/internal/cryo"
	"github.com/eugenenazirov/apheresis/internal/storage"
)

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	cfg.InitialContainerTypes = []cryo.ContainerType{
		{Name: " Bag ", MinVolumeMl: 20, MaxVolumeMl: 100},
		{Name: "Cryovial", MinVolumeMl: 1, MaxVolumeMl: 1, Role: cryo.RoleCryovial},
	}
	logger := zaptest.NewLogger(t)

	app, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	types, err := app.storage.GetContainerTypes()
	if err != nil {
		t.Fatalf("GetContainerTypes returned error: %v", err)
	}
	if len(types) != 2 || types[0].Name != "Bag" {
		t.Fatalf("expected normalised catalogue, got %v", types)
	}
	if app.server == nil || app.router == nil || app.handler == nil || app.root == nil {
		t.Fatalf("expected server, router, handler and root to be initialized")
	}
	if app.metrics == nil {
		t.Fatalf("expected metrics recorder when metrics are enabled")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
	if app.Handler() != app.server.Handler {
		t.Fatalf("expected server to serve the root handler")
	}
}

func TestNewWithoutMetrics(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.MetricsEnabled = false

	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if app.metrics != nil {
		t.Fatalf("expected no metrics recorder")
	}

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected /metrics to be absent, got %d", rec.Code)
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestNewReturnsErrorForInvalidContainerTypes(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.InitialContainerTypes = nil

	if _, err := New(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for invalid container types")
	}
}

func TestBuildRootHandler(t *testing.T) {
	apiInvoked := false
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Fatalf("unexpected path passed to API handler: %s", r.URL.Path)
		}
		apiInvoked = true
		w.WriteHeader(http.StatusNoContent)
	})
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	handler := BuildRootHandler(apiHandler, metricsHandler)

	t.Run("serves index", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var body index
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode index: %v", err)
		}
		if body.Name != Name || len(body.Endpoints) == 0 {
			t.Fatalf("unexpected index %+v", body)
		}
	})

	t.Run("returns not found for unknown paths", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("forwards api traffic", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
		if !apiInvoked {
			t.Fatalf("expected API handler to be invoked")
		}
	})

	t.Run("mounts metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		if rec.Code != http.StatusTeapot {
			t.Fatalf("expected metrics handler to be invoked, got %d", rec.Code)
		}
	})
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Port:                      port,
		InitialContainerTypes:     storage.DefaultContainerTypes(),
		DefaultEfficiency:         0.4,
		MaxLeukocyteConcentration: 250000,
		ShutdownGracePeriod:       50 * time.Millisecond,
		ReadHeaderTimeout:         20 * time.Millisecond,
		WriteTimeout:              30 * time.Millisecond,
		IdleTimeout:               40 * time.Millisecond,
		EnableRequestLogging:      false,
		MetricsEnabled:            true,
		RateLimitRPS:              0,
		RateLimitBurst:            0,
	}
}
