// Package observability wires OpenTelemetry tracing and metrics for flowkit
// hosts and defines the instruments recorded by schedulers and traced
// streams.
//
// Hosts call InitTracer and InitMeter once at startup; library code only
// asks for Tracer or Meter from the global providers, so it stays silent
// (no-op) until a host installs real providers.
package observability
