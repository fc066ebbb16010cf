package main

import (
	"time"

	"github.com/kbukum/flowkit/config"
	"github.com/kbukum/flowkit/resilience"
	"github.com/kbukum/flowkit/validation"
)

// DemoConfig is the flowdemo host config.
type DemoConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Demo                 DemoSettings `yaml:"demo" mapstructure:"demo"`
}

// DemoSettings drives the two demo streams.
type DemoSettings struct {
	// Images are the names passed to the load chain.
	Images []string `yaml:"images" mapstructure:"images" validate:"dive,required"`
	// Flaky names fail their first load and succeed on retry.
	Flaky []string `yaml:"flaky" mapstructure:"flaky"`
	// Broken names always fail; the chain substitutes a placeholder.
	Broken    []string      `yaml:"broken" mapstructure:"broken"`
	LoadDelay time.Duration `yaml:"load_delay" mapstructure:"load_delay" validate:"gte=0"`
	Retries   int           `yaml:"retries" mapstructure:"retries" validate:"gte=1,lte=10"`
	Backoff   resilience.BackoffConfig `yaml:"backoff" mapstructure:"backoff"`
	// Workers sizes the decode pool the ticker runs on.
	Workers      int           `yaml:"workers" mapstructure:"workers" validate:"gte=1,lte=64"`
	Ticks        int           `yaml:"ticks" mapstructure:"ticks" validate:"gte=1"`
	TickInterval time.Duration `yaml:"tick_interval" mapstructure:"tick_interval" validate:"gt=0"`
	TickBatch    int           `yaml:"tick_batch" mapstructure:"tick_batch" validate:"gte=1"`
}

// ApplyDefaults fills the service defaults, then the demo ones.
func (c *DemoConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()

	d := &c.Demo
	if len(d.Images) == 0 {
		d.Images = []string{"cat.png", "dog.png", "bird.png", "fish.png"}
	}
	if d.Retries == 0 {
		d.Retries = 2
	}
	if d.LoadDelay == 0 {
		d.LoadDelay = 20 * time.Millisecond
	}
	if d.Backoff.InitialBackoff == 0 {
		d.Backoff = resilience.DefaultBackoffConfig()
		d.Backoff.InitialBackoff = 10 * time.Millisecond
		d.Backoff.MaxBackoff = 200 * time.Millisecond
	}
	if d.Workers == 0 {
		d.Workers = 2
	}
	if d.Ticks == 0 {
		d.Ticks = 3
	}
	if d.TickInterval == 0 {
		d.TickInterval = 50 * time.Millisecond
	}
	if d.TickBatch == 0 {
		d.TickBatch = 3
	}
}

// Validate checks the service section, then the demo section.
func (c *DemoConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return validation.Validate(&c.Demo)
}
