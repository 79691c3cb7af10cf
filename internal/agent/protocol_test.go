// SPDX-License-Identifier: MIT

package agent

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestFrameRoundTrip implements scenario S6: an event is encoded as an
// 8-byte header followed by the JSON body, and decodes back to the same
// shape on the other end.
func TestFrameRoundTrip(t *testing.T) {
	msg := NewEvent("subscription_updated", "pipeline", PriorityNormal, map[string]any{})

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, msg))
	require.GreaterOrEqual(t, buf.Len(), headerSize)

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, typeEvent, got.Type)
	require.Equal(t, "subscription_updated", got.Event.EventType)
	require.Equal(t, PriorityNormal, got.Event.Priority)
	require.NotEmpty(t, got.ID)
}

func TestReadFrame_UnsupportedVersionIsFatal(t *testing.T) {
	msg := NewCommand("reload", nil)
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, msg))

	raw := buf.Bytes()
	// Corrupt the version field (bytes 4:8) to a value this codec does
	// not speak.
	raw[4], raw[5], raw[6], raw[7] = 0, 0, 0, 99

	_, err := ReadFrame(bytes.NewReader(raw))
	require.Error(t, err)
	var verErr *ErrUnsupportedVersion
	require.ErrorAs(t, err, &verErr)
	require.Equal(t, uint32(99), verErr.Got)
}

func TestReadFrame_TruncatedHeaderErrors(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0, 1, 2}))
	require.Error(t, err)
}

func TestReadFrame_OversizeLengthRejected(t *testing.T) {
	header := make([]byte, headerSize)
	header[0] = 0xFF // length byte far beyond maxFrameSize
	header[4], header[5], header[6], header[7] = 0, 0, 0, 1
	_, err := ReadFrame(bytes.NewReader(header))
	require.Error(t, err)
	var sizeErr *ErrFrameTooLarge
	require.ErrorAs(t, err, &sizeErr)
}

func TestTimestamp_SingleZFormat(t *testing.T) {
	ts := formatTimestamp(time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC))
	require.Equal(t, "2026-01-02T03:04:05.006Z", ts)

	parsed, err := parseTimestamp(ts)
	require.NoError(t, err)
	require.True(t, parsed.Equal(time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)))
}

func TestTimestamp_AcceptsLegacyDoubleZSuffix(t *testing.T) {
	_, err := parseTimestamp("2026-01-02T03:04:05.006ZZ")
	require.NoError(t, err)
}

func TestTimestamp_AcceptsOffsetForm(t *testing.T) {
	_, err := parseTimestamp("2026-01-02T03:04:05.006+00:00")
	require.NoError(t, err)
}

func TestHeartbeatShape(t *testing.T) {
	msg := NewHeartbeat("agent-1", HeartbeatHealthy, "1.2.3")
	require.Equal(t, typeHeartbeat, msg.Type)
	require.Equal(t, "agent-1", msg.Heartbeat.AgentID)
	require.Equal(t, HeartbeatHealthy, msg.Heartbeat.Status)
}
