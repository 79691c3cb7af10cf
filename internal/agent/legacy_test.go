// SPDX-License-Identifier: MIT

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sboxsync/sboxsync/internal/trace"
)

// legacyHarness lets the test read back everything written to stdin while a
// canned response is fed in via stdout.
type legacyHarness struct {
	stdin  bytes.Buffer
	stdout bytes.Buffer
}

func TestLegacyBridge_CallRoundTrip(t *testing.T) {
	h := &legacyHarness{}
	resp := LegacyResponse{Version: legacyProtocolVersion, Status: ResponseSuccess, Data: map[string]any{"ok": true}}
	line, err := json.Marshal(resp)
	require.NoError(t, err)
	h.stdout.Write(append(line, '\n'))

	bridge := NewLegacyBridge(&h.stdin, &h.stdout)
	ctx := trace.WithTraceID(context.Background(), "abcd1234")

	got, err := bridge.Validate(ctx, map[string]any{"path": "/etc/sbox.json"})
	require.NoError(t, err)
	require.Equal(t, ResponseSuccess, got.Status)
	require.Equal(t, "abcd1234", got.TraceID)

	var sentReq LegacyRequest
	require.NoError(t, json.Unmarshal(bytes.TrimRight(h.stdin.Bytes(), "\n"), &sentReq))
	require.Equal(t, LegacyValidate, sentReq.Command)
	require.Equal(t, legacyProtocolVersion, sentReq.Version)
	require.Equal(t, "abcd1234", sentReq.TraceID)
}

func TestLegacyBridge_ErrorResponsePropagates(t *testing.T) {
	h := &legacyHarness{}
	resp := LegacyResponse{
		Version: legacyProtocolVersion,
		Status:  ResponseError,
		Error:   &ResponseError{Code: "bad_config", Message: "missing outbounds"},
	}
	line, _ := json.Marshal(resp)
	h.stdout.Write(append(line, '\n'))

	bridge := NewLegacyBridge(&h.stdin, &h.stdout)
	got, err := bridge.Check(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, ResponseError, got.Status)
	require.Equal(t, "bad_config", got.Error.Code)
}

func TestLegacyBridge_VersionCommand(t *testing.T) {
	h := &legacyHarness{}
	resp := LegacyResponse{Version: legacyProtocolVersion, Status: ResponseSuccess, Data: map[string]any{"version": "1.10.0"}}
	line, _ := json.Marshal(resp)
	h.stdout.Write(append(line, '\n'))

	bridge := NewLegacyBridge(&h.stdin, &h.stdout)
	got, err := bridge.Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1.10.0", got.Data["version"])

	var sentReq LegacyRequest
	require.NoError(t, json.Unmarshal(bytes.TrimRight(h.stdin.Bytes(), "\n"), &sentReq))
	require.Equal(t, LegacyVersion, sentReq.Command)
}
