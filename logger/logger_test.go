package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := &Config{Level: level, Format: "json"}
	return NewWithWriter(cfg, "test-svc", &buf), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if idx := strings.LastIndex(line, "\n"); idx >= 0 {
		line = line[idx+1:]
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", line, err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l, buf := newBufferLogger(t, "invalid-level")
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("invalid level should fall back to info")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("expected info message to be written")
	}
}

func TestJSONOutputFields(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")
	l.WithComponent("scheduler").Warn("task panicked", Fields(FieldScheduler, "single", FieldAttempt, 2))

	m := decodeLine(t, buf)
	tests := []struct {
		key  string
		want interface{}
	}{
		{FieldService, "test-svc"},
		{FieldComponent, "scheduler"},
		{FieldScheduler, "single"},
		{FieldAttempt, float64(2)},
		{"level", "warn"},
		{"message", "task panicked"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if m[tt.key] != tt.want {
				t.Errorf("%s = %v, want %v", tt.key, m[tt.key], tt.want)
			}
		})
	}
}

func TestErrorFieldValue(t *testing.T) {
	l, buf := newBufferLogger(t, "info")
	l.Error("failed", map[string]interface{}{FieldError: errors.New("boom")})
	m := decodeLine(t, buf)
	if m[FieldError] != "boom" {
		t.Errorf("error field = %v, want boom", m[FieldError])
	}
}

func TestWithFieldsAndError(t *testing.T) {
	l, buf := newBufferLogger(t, "info")
	l.WithFields(map[string]interface{}{FieldOperator: "map"}).WithError(errors.New("bad")).Info("x")
	m := decodeLine(t, buf)
	if m[FieldOperator] != "map" {
		t.Errorf("operator = %v", m[FieldOperator])
	}
	if m["error"] != "bad" {
		t.Errorf("error = %v", m["error"])
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	l.Error("nothing")
	if l.Enabled(0) {
		t.Error("nop logger should not be enabled")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stdout" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "debug", Format: "json"}, false},
		{"disabled", Config{Level: "disabled", Format: "pretty"}, false},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterAndGet(t *testing.T) {
	l, _ := newBufferLogger(t, "info")
	Register("custom", l)
	if got := Get("custom"); got != l {
		t.Error("expected registered logger to be returned")
	}
}

func TestGetDerivesFromGlobal(t *testing.T) {
	var buf bytes.Buffer
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	SetGlobalLogger(NewWithWriter(&Config{Level: "info", Format: "json"}, "host", &buf))
	Get("flow").Info("hello")

	m := decodeLine(t, &buf)
	if m[FieldComponent] != "flow" || m[FieldService] != "host" {
		t.Errorf("unexpected fields: %v", m)
	}
	if Get("flow") != Get("flow") {
		t.Error("expected cached component logger")
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "ignored", "dangling")
	if len(m) != 2 {
		t.Fatalf("expected 2 fields, got %d: %v", len(m), m)
	}
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields: %v", m)
	}
}

func TestErrorFields(t *testing.T) {
	m := ErrorFields("retry", errors.New("x"))
	if m[FieldOperator] != "retry" || m[FieldError] != "x" {
		t.Errorf("unexpected fields: %v", m)
	}
}
