// Package otel hands out OpenTelemetry meters without binding the process
// to a metrics pipeline. Instrumented components record against whatever
// global MeterProvider the embedding application installs; with none
// installed every instrument is a no-op.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Config holds metrics configuration
type Config struct {
	Enabled     bool
	ServiceName string
}

// Provider manages meter handout for instrumented components.
type Provider struct {
	config Config
}

// New creates a new metrics provider with the given configuration.
func New(cfg Config) *Provider {
	return &Provider{config: cfg}
}

// Meter returns a meter with the given name for creating metrics.
// Returns a no-op meter when metrics are disabled.
func (p *Provider) Meter(name string) metric.Meter {
	if !p.config.Enabled {
		return noop.Meter{}
	}
	return otel.Meter(name)
}

// Enabled returns whether metrics are enabled
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}
