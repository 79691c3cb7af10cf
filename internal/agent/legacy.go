// SPDX-License-Identifier: MIT

package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sboxsync/sboxsync/internal/trace"
)

// legacyProtocolVersion is the version field every legacy request/response
// carries. The legacy bridge is feature-equivalent to the framed protocol
// but transport-different (spec §4.13): plain newline-delimited JSON over
// a child process's stdin/stdout instead of length-prefixed frames.
const legacyProtocolVersion = "1.0"

// LegacyCommand names the request kinds the legacy bridge understands.
type LegacyCommand string

const (
	LegacyValidate LegacyCommand = "validate"
	LegacyInstall  LegacyCommand = "install"
	LegacyCheck    LegacyCommand = "check"
	LegacyVersion  LegacyCommand = "version"
)

// LegacyRequest is one newline-delimited JSON request written to the
// child's stdin.
type LegacyRequest struct {
	Version string         `json:"version"`
	Command LegacyCommand  `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
	TraceID string         `json:"trace_id,omitempty"`
}

// LegacyResponse is one newline-delimited JSON response read from the
// child's stdout.
type LegacyResponse struct {
	Version string         `json:"version"`
	Status  ResponseStatus `json:"status"`
	Data    map[string]any `json:"data,omitempty"`
	Error   *ResponseError `json:"error,omitempty"`
	TraceID string         `json:"trace_id,omitempty"`
}

// LegacyBridge drives the legacy stdio JSON request/response protocol
// against an already-started child process's stdin/stdout pipes.
type LegacyBridge struct {
	stdin  io.Writer
	stdout *bufio.Reader
}

// NewLegacyBridge wraps a child process's stdin/stdout pipes. The caller
// owns starting and reaping the process.
func NewLegacyBridge(stdin io.Writer, stdout io.Reader) *LegacyBridge {
	return &LegacyBridge{stdin: stdin, stdout: bufio.NewReader(stdout)}
}

// Call sends one request and reads back exactly one response line,
// mirroring the framed protocol's per-send semantics (spec §4.13) but over
// newline-delimited JSON instead of length-prefixed frames.
func (b *LegacyBridge) Call(ctx context.Context, cmd LegacyCommand, params map[string]any) (LegacyResponse, error) {
	req := LegacyRequest{
		Version: legacyProtocolVersion,
		Command: cmd,
		Params:  params,
		TraceID: trace.Get(ctx),
	}
	line, err := json.Marshal(req)
	if err != nil {
		return LegacyResponse{}, fmt.Errorf("agent: encode legacy request: %w", err)
	}
	line = append(line, '\n')
	if _, err := b.stdin.Write(line); err != nil {
		return LegacyResponse{}, fmt.Errorf("agent: write legacy request: %w", err)
	}

	respLine, err := b.stdout.ReadBytes('\n')
	if err != nil && len(respLine) == 0 {
		return LegacyResponse{}, fmt.Errorf("agent: read legacy response: %w", err)
	}
	var resp LegacyResponse
	if err := json.Unmarshal(respLine, &resp); err != nil {
		return LegacyResponse{}, fmt.Errorf("agent: decode legacy response: %w", err)
	}
	if resp.TraceID == "" {
		resp.TraceID = req.TraceID
	}
	return resp, nil
}

// Validate is a typed convenience wrapper over Call(LegacyValidate, ...).
func (b *LegacyBridge) Validate(ctx context.Context, params map[string]any) (LegacyResponse, error) {
	return b.Call(ctx, LegacyValidate, params)
}

// Install is a typed convenience wrapper over Call(LegacyInstall, ...).
func (b *LegacyBridge) Install(ctx context.Context, params map[string]any) (LegacyResponse, error) {
	return b.Call(ctx, LegacyInstall, params)
}

// Check is a typed convenience wrapper over Call(LegacyCheck, ...).
func (b *LegacyBridge) Check(ctx context.Context, params map[string]any) (LegacyResponse, error) {
	return b.Call(ctx, LegacyCheck, params)
}

// Version is a typed convenience wrapper over Call(LegacyVersion, ...).
// Per spec §9's design note, the emitter itself never spawns a process to
// probe a version; only this legacy bridge, driven by a caller who already
// owns the child process, may.
func (b *LegacyBridge) Version(ctx context.Context) (LegacyResponse, error) {
	return b.Call(ctx, LegacyVersion, nil)
}
