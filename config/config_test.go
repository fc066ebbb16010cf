package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/kbukum/flowkit/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "debug" || cfg.Logging.ServiceName != "svc" {
			t.Errorf("logging = %+v", cfg.Logging)
		}
		if cfg.Scheduler.ParallelSize <= 0 || cfg.Scheduler.MainLoopName == "" {
			t.Errorf("scheduler = %+v", cfg.Scheduler)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("level = %q, want info", cfg.Logging.Level)
		}
	})

	t.Run("telemetry defaults only when enabled", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Telemetry.Endpoint != "" {
			t.Errorf("disabled telemetry got endpoint %q", cfg.Telemetry.Endpoint)
		}

		cfg.Telemetry.Enabled = true
		cfg.ApplyDefaults()
		if cfg.Telemetry.Endpoint != "localhost:4318" || cfg.Telemetry.SampleRate != 1 || cfg.Telemetry.MetricsInterval != 15*time.Second {
			t.Errorf("telemetry = %+v", cfg.Telemetry)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func() ServiceConfig {
		cfg := ServiceConfig{Name: "svc", Environment: "staging"}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*ServiceConfig)
		wantErr bool
	}{
		{"valid", func(*ServiceConfig) {}, false},
		{"missing name", func(c *ServiceConfig) { c.Name = "" }, true},
		{"invalid environment", func(c *ServiceConfig) { c.Environment = "qa" }, true},
		{"invalid log level", func(c *ServiceConfig) { c.Logging.Level = "loud" }, true},
		{"parallel size too small", func(c *ServiceConfig) { c.Scheduler.ParallelSize = -2 }, true},
		{"sample rate out of range", func(c *ServiceConfig) { c.Telemetry.SampleRate = 2 }, true},
		{"negative bucket", func(c *ServiceConfig) { c.Telemetry.TaskBuckets = []float64{0.1, -1} }, true},
		{"bad endpoint", func(c *ServiceConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = "not an endpoint"
		}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.HasCode(err, errors.ErrCodeConfigInvalid) {
					t.Errorf("expected CONFIG_INVALID, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestServiceConfigTelemetry(t *testing.T) {
	cfg := ServiceConfig{
		Name:        "svc",
		Version:     "2.1.0",
		Environment: "production",
		Telemetry: TelemetryConfig{
			Enabled:         true,
			Endpoint:        "collector:4318",
			SampleRate:      0.25,
			MetricsInterval: time.Minute,
			TaskBuckets:     []float64{0.01, 0.1},
		},
	}
	tc := cfg.TracerConfig()
	if tc.ServiceName != "svc" || tc.ServiceVersion != "2.1.0" || tc.Endpoint != "collector:4318" || tc.SampleRate != 0.25 {
		t.Errorf("tracer config = %+v", tc)
	}
	mc := cfg.MeterConfig()
	if mc.Interval != time.Minute || mc.Environment != "production" || len(mc.TaskBuckets) != 2 {
		t.Errorf("meter config = %+v", mc)
	}
}

type demoConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Images        []string `yaml:"images" mapstructure:"images"`
}

func TestLoadWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: demo
environment: staging
logging:
  level: warn
  format: json
scheduler:
  parallel_size: 3
telemetry:
  enabled: true
  metrics_interval: 30s
images:
  - a.png
  - b.png
`)

	var cfg demoConfig
	if err := Load("demo", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env"))); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Name != "demo" || cfg.Environment != "staging" {
		t.Errorf("service = %q/%q", cfg.Name, cfg.Environment)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Scheduler.ParallelSize != 3 {
		t.Errorf("parallel size = %d", cfg.Scheduler.ParallelSize)
	}
	if cfg.Telemetry.MetricsInterval != 30*time.Second || cfg.Telemetry.Endpoint != "localhost:4318" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
	if !slices.Equal(cfg.Images, []string{"a.png", "b.png"}) {
		t.Errorf("images = %v", cfg.Images)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: demo
logging:
  level: info
scheduler:
  parallel_size: 2
`)
	t.Setenv("DEMO_LOGGING_LEVEL", "error")
	t.Setenv("DEMO_SCHEDULER_PARALLEL_SIZE", "8")
	t.Setenv("LOGGING_LEVEL", "trace")

	var cfg demoConfig
	if err := Load("demo", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env"))); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("level = %q, want the prefixed override", cfg.Logging.Level)
	}
	if cfg.Scheduler.ParallelSize != 8 {
		t.Errorf("parallel size = %d, want 8", cfg.Scheduler.ParallelSize)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: demo\n")
	envPath := writeFile(t, dir, ".env", "APPX_ENVIRONMENT=production\nAPPX_TELEMETRY_SAMPLE_RATE=0.5\n")
	t.Cleanup(func() {
		os.Unsetenv("APPX_ENVIRONMENT")
		os.Unsetenv("APPX_TELEMETRY_SAMPLE_RATE")
	})

	var cfg demoConfig
	if err := Load("demo", &cfg, WithConfigFile(path), WithEnvFile(envPath), WithEnvPrefix("APPX")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Environment != "production" || cfg.Debug {
		t.Errorf("environment = %q debug = %v", cfg.Environment, cfg.Debug)
	}
	if cfg.Telemetry.SampleRate != 0.5 {
		t.Errorf("sample rate = %v", cfg.Telemetry.SampleRate)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("explicit file must exist", func(t *testing.T) {
		var cfg demoConfig
		err := Load("demo", &cfg, WithConfigFile("/nonexistent/path.yml"))
		if !errors.HasCode(err, errors.ErrCodeConfigInvalid) {
			t.Fatalf("expected CONFIG_INVALID, got %v", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "config.yml", "name: [unclosed\n")
		var cfg demoConfig
		if err := Load("demo", &cfg, WithConfigFile(path)); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("validation runs after load", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "config.yml", "environment: production\n")
		var cfg demoConfig
		err := Load("demo", &cfg, WithConfigFile(path), WithEnvPrefix("FLOWKIT_TEST_UNUSED"))
		if !errors.HasCode(err, errors.ErrCodeConfigInvalid) {
			t.Fatalf("expected CONFIG_INVALID for missing name, got %v", err)
		}
	})
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"../cmd/my-svc/config.yml": true,
		"./config/.env":            true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("my-svc", Options{})
	if files.ConfigFile != "../cmd/my-svc/config.yml" {
		t.Errorf("config file = %q", files.ConfigFile)
	}
	if files.EnvFile != "./config/.env" {
		t.Errorf("env file = %q", files.EnvFile)
	}

	files = resolver.ResolveFiles("my-svc", Options{ConfigFile: "x.yml", EnvFile: "y.env"})
	if files.ConfigFile != "x.yml" || files.EnvFile != "y.env" {
		t.Errorf("explicit paths not kept: %+v", files)
	}
}

func TestResolverPrefersServiceEnvFile(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./.env":        true,
		"./.env.my-svc": true,
	}}
	files := (&Resolver{FileSystem: fs}).ResolveFiles("my-svc", Options{})
	if files.EnvFile != "./.env.my-svc" {
		t.Errorf("env file = %q", files.EnvFile)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(string) error    { return nil }

func TestEnvKeyVariants(t *testing.T) {
	tests := []struct {
		key  string
		want []string
	}{
		{"NAME", []string{"name"}},
		{"LOGGING_LEVEL", []string{"logging_level", "logging.level"}},
		{"SCHEDULER_PARALLEL_SIZE", []string{
			"scheduler_parallel_size",
			"scheduler.parallel_size",
			"scheduler.parallel.size",
			"scheduler_parallel.size",
		}},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			if got := envKeyVariants(tc.key); !slices.Equal(got, tc.want) {
				t.Errorf("envKeyVariants(%s) = %v, want %v", tc.key, got, tc.want)
			}
		})
	}
}

func TestBindEnvIgnoresOtherPrefixes(t *testing.T) {
	var cfg struct {
		Name string `mapstructure:"name"`
	}
	t.Setenv("OTHER_NAME", "wrong")
	if err := Load("svc", &cfg, WithFileSystem(&mockFS{}), WithEnvPrefix("SVC")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "" {
		t.Errorf("name = %q, want empty", cfg.Name)
	}
}
