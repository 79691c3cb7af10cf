// SPDX-License-Identifier: MIT

package model

import (
	"github.com/sboxsync/sboxsync/internal/trace"
)

// Mode selects strict-vs-tolerant error handling across every stage
// (spec §3, §7).
type Mode string

const (
	ModeStrict   Mode = "strict"
	ModeTolerant Mode = "tolerant"
)

// ErrorKind classifies a structured pipeline error record (spec §3).
type ErrorKind string

const (
	KindFetch           ErrorKind = "fetch"
	KindParse           ErrorKind = "parse"
	KindRawValidate     ErrorKind = "raw_validate"
	KindParsedValidate  ErrorKind = "parsed_validate"
	KindMiddleware      ErrorKind = "middleware"
	KindPostprocessor   ErrorKind = "postprocessor"
	KindExport          ErrorKind = "export"
	KindInternal        ErrorKind = "internal"
	KindAgentUnavailable ErrorKind = "agent_unavailable"
	KindAgentProtocol   ErrorKind = "agent_protocol"
	KindTimeout         ErrorKind = "timeout"
)

// PipelineError is the structured error record from spec §3: every stage
// converts native errors/panics into one of these before they leave the
// stage boundary, so PipelineResult.Errors never carries a raw exception.
type PipelineError struct {
	Kind    ErrorKind
	Stage   string
	Message string
	Aux     map[string]any
}

func (e *PipelineError) Error() string {
	if e.Stage != "" {
		return string(e.Kind) + " (" + e.Stage + "): " + e.Message
	}
	return string(e.Kind) + ": " + e.Message
}

// NewError builds a PipelineError with an empty Aux map ready for writes.
func NewError(kind ErrorKind, stage, message string) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Message: message, Aux: map[string]any{}}
}

// PipelineContext carries the trace id, mode, and the free-form metadata bus
// that stages use to communicate (spec §3, §9 "Context as a bus").
type PipelineContext struct {
	TraceID    string
	Source     string
	Mode       Mode
	DebugLevel int
	UserRoutes []string
	Exclusions []string
	Metadata   map[string]any
}

// NewContext builds a PipelineContext with a generated trace id and an
// initialized metadata map.
func NewContext(mode Mode) *PipelineContext {
	return &PipelineContext{
		TraceID:  trace.New(),
		Mode:     mode,
		Metadata: map[string]any{},
	}
}

// AddError appends a structured error to context.Metadata["errors"],
// creating the slice lazily. This is the single place every stage should go
// through, guaranteeing the invariant that the list only ever contains
// *PipelineError values (spec §8 invariant 1).
func (c *PipelineContext) AddError(err *PipelineError) {
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	existing, _ := c.Metadata["errors"].([]*PipelineError)
	c.Metadata["errors"] = append(existing, err)
}

// Errors returns the accumulated structured errors.
func (c *PipelineContext) Errors() []*PipelineError {
	if c.Metadata == nil {
		return nil
	}
	errs, _ := c.Metadata["errors"].([]*PipelineError)
	return errs
}

// PipelineResult is the artifact + context snapshot + error list + success
// flag returned by a pipeline run or export call (spec §3).
type PipelineResult struct {
	Artifact any
	Context  *PipelineContext
	Errors   []*PipelineError
	Success  bool
}
