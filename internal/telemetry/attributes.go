// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used on pipeline/agent spans, mirroring the teacher's
// constant-keyed attribute pattern (internal/telemetry/attributes.go).
const (
	StageNameKey     = "pipeline.stage"
	StageTraceIDKey  = "pipeline.trace_id"
	StageModeKey     = "pipeline.mode"
	StageSourceKey   = "pipeline.source"
	ServerCountKey   = "pipeline.server_count"
	ErrorCountKey    = "pipeline.error_count"

	AgentEventTypeKey = "agent.event_type"
	AgentPriorityKey  = "agent.priority"
	AgentOutcomeKey   = "agent.outcome"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// StageAttributes builds the attribute set attached to one pipeline stage's
// span (spec.md §4.14: "every outgoing ... span mirrors the current trace
// id").
func StageAttributes(stage, traceID, mode, source string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(StageNameKey, stage),
		attribute.String(StageTraceIDKey, traceID),
		attribute.String(StageModeKey, mode),
		attribute.String(StageSourceKey, source),
	}
}

// ResultAttributes builds the attribute set attached once a stage's result
// is known.
func ResultAttributes(serverCount, errorCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(ServerCountKey, serverCount),
		attribute.Int(ErrorCountKey, errorCount),
	}
}

// AgentSendAttributes builds the attribute set attached to one agent IPC
// send span.
func AgentSendAttributes(eventType, priority, outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AgentEventTypeKey, eventType),
		attribute.String(AgentPriorityKey, priority),
		attribute.String(AgentOutcomeKey, outcome),
	}
}

// ErrorAttributes builds the attribute set attached when a span records an
// error.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
