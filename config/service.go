package config

import (
	"time"

	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/scheduler"
	"github.com/kbukum/flowkit/validation"
)

// ServiceConfig holds what every flowkit host needs. Hosts embed it in
// their own config struct.
//
// Example:
//
//	type DemoConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Images []string `yaml:"images" mapstructure:"images"`
//	}
type ServiceConfig struct {
	Name        string           `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string           `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string           `yaml:"version" mapstructure:"version"`
	Debug       bool             `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config    `yaml:"logging" mapstructure:"logging"`
	Scheduler   scheduler.Config `yaml:"scheduler" mapstructure:"scheduler"`
	Telemetry   TelemetryConfig  `yaml:"telemetry" mapstructure:"telemetry"`
}

// TelemetryConfig switches OpenTelemetry export on and points it at an
// OTLP HTTP collector.
type TelemetryConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint        string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure        bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate      float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	MetricsInterval time.Duration `yaml:"metrics_interval" mapstructure:"metrics_interval" validate:"gte=0"`
	// TaskBuckets are histogram boundaries in seconds for task and
	// subscription durations.
	TaskBuckets []float64 `yaml:"task_buckets" mapstructure:"task_buckets" validate:"dive,gt=0"`
}

// GetServiceConfig returns the embedded ServiceConfig. The method is
// promoted to embedding structs.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults fills zero values. Embedding structs that override it
// should call c.ServiceConfig.ApplyDefaults() first.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	// Propagate service name into logging so Init() uses the right tag.
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
	c.Scheduler.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks the struct tags of the config and its nested logging,
// scheduler and telemetry sections.
func (c *ServiceConfig) Validate() error {
	return validation.Validate(c)
}

// ApplyDefaults fills the sampler rate and export interval.
func (c *TelemetryConfig) ApplyDefaults() {
	if !c.Enabled {
		return
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricsInterval == 0 {
		c.MetricsInterval = 15 * time.Second
	}
}

// TracerConfig builds the observability tracer config for the service.
func (c *ServiceConfig) TracerConfig() *observability.TracerConfig {
	tc := observability.DefaultTracerConfig(c.Name)
	tc.ServiceVersion = versionOr(c.Version, tc.ServiceVersion)
	tc.Environment = c.Environment
	tc.Endpoint = c.Telemetry.Endpoint
	tc.Insecure = c.Telemetry.Insecure
	tc.SampleRate = c.Telemetry.SampleRate
	return &tc
}

// MeterConfig builds the observability meter config for the service.
func (c *ServiceConfig) MeterConfig() *observability.MeterConfig {
	mc := observability.DefaultMeterConfig(c.Name)
	mc.ServiceVersion = versionOr(c.Version, mc.ServiceVersion)
	mc.Environment = c.Environment
	mc.Endpoint = c.Telemetry.Endpoint
	mc.Insecure = c.Telemetry.Insecure
	if c.Telemetry.MetricsInterval > 0 {
		mc.Interval = c.Telemetry.MetricsInterval
	}
	mc.TaskBuckets = c.Telemetry.TaskBuckets
	return &mc
}

func versionOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
