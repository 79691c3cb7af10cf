// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldTraceID       = "trace_id"
	FieldCorrelationID = "correlation_id"
	FieldMessageID     = "message_id"

	// Pipeline fields
	FieldComponent  = "component"
	FieldStage      = "stage"
	FieldSourceType = "source_type"
	FieldMode       = "mode"
	FieldDuration   = "duration_ms"

	// Server/protocol fields
	FieldProtocol   = "protocol"
	FieldServerAddr = "address"
	FieldServerTag  = "tag"

	// Error fields
	FieldErrorKind = "error_kind"
)
