// Package tracing wraps OpenTelemetry so that the gate, the resume
// controller and tool execution can open spans without importing the
// upstream packages. Until Init or InitWithExporter installs a provider the
// global no-op tracer is used.
package tracing
