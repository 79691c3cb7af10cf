// SPDX-License-Identifier: MIT

// Package agent implements the framed-JSON IPC bridge to the sboxagent
// sidecar (spec §4.13): the wire codec, the message shapes, the
// Disconnected/Connecting/Connected state machine of §4.15, and the
// legacy stdio JSON bridge used for validate/install/check/version
// commands.
package agent

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is the only version this codec accepts. A frame header
// naming any other value is fatal for the connection (spec §4.13).
const ProtocolVersion uint32 = 1

// headerSize is the fixed 8-byte frame header: big-endian uint32 length
// followed by big-endian uint32 version.
const headerSize = 8

// maxFrameSize bounds a single frame body so a corrupt or hostile peer
// cannot force an unbounded allocation.
const maxFrameSize = 16 << 20

// Priority classifies an outgoing Event (spec §4.13).
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// HeartbeatStatus classifies a Heartbeat's self-reported health.
type HeartbeatStatus string

const (
	HeartbeatHealthy  HeartbeatStatus = "healthy"
	HeartbeatDegraded HeartbeatStatus = "degraded"
	HeartbeatError    HeartbeatStatus = "error"
)

// ResponseStatus classifies an agent's reply to a sent message.
type ResponseStatus string

const (
	ResponseSuccess ResponseStatus = "success"
	ResponseError   ResponseStatus = "error"
)

// EventBody is the payload of an Event message.
type EventBody struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Priority  Priority       `json:"priority"`
	Data      map[string]any `json:"data"`
}

// CommandBody is the payload of a Command message.
type CommandBody struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
}

// HeartbeatBody is the payload of a Heartbeat message.
type HeartbeatBody struct {
	AgentID string          `json:"agent_id"`
	Status  HeartbeatStatus `json:"status"`
	Version string          `json:"version,omitempty"`
}

// ResponseError carries the error detail of a failed Response.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseBody is the payload of a Response message (agent -> us).
type ResponseBody struct {
	Status ResponseStatus `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// Message is the envelope shared by every frame. Exactly one of Event,
// Command, Heartbeat, or Response is populated, selected by Type.
type Message struct {
	ID            string         `json:"id,omitempty"`
	Type          string         `json:"type"`
	Timestamp     string         `json:"timestamp,omitempty"`
	Event         *EventBody     `json:"event,omitempty"`
	Command       *CommandBody   `json:"command,omitempty"`
	Heartbeat     *HeartbeatBody `json:"heartbeat,omitempty"`
	Response      *ResponseBody  `json:"response,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

const (
	typeEvent     = "event"
	typeCommand   = "command"
	typeHeartbeat = "heartbeat"
	typeResponse  = "response"
)

// NewEvent builds an Event message with a fresh id and the current
// timestamp, ready to send.
func NewEvent(eventType, source string, priority Priority, data map[string]any) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      typeEvent,
		Timestamp: nowStamp(),
		Event:     &EventBody{EventType: eventType, Source: source, Priority: priority, Data: data},
	}
}

// NewCommand builds a Command message with a fresh id and the current
// timestamp, ready to send.
func NewCommand(command string, params map[string]any) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      typeCommand,
		Timestamp: nowStamp(),
		Command:   &CommandBody{Command: command, Params: params},
	}
}

// NewHeartbeat builds a Heartbeat message with a fresh id and the current
// timestamp, ready to send.
func NewHeartbeat(agentID string, status HeartbeatStatus, version string) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      typeHeartbeat,
		Timestamp: nowStamp(),
		Heartbeat: &HeartbeatBody{AgentID: agentID, Status: status, Version: version},
	}
}

// nowStamp formats the current instant as ISO-8601 UTC with millisecond
// precision and a single Z suffix. The source emits a double-Z-suffixed
// timestamp on one code path; this reimplementation always emits the
// single-suffix form (spec §9 design note) and parseTimestamp accepts
// both on the way in.
func nowStamp() string {
	return formatTimestamp(time.Now().UTC())
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// parseTimestamp accepts the canonical single-Z/+00:00 form as well as the
// legacy double-Z form ("...Z" with a second trailing "Z") so messages
// from an unpatched peer still parse.
func parseTimestamp(s string) (time.Time, error) {
	trimmed := s
	for strings.HasSuffix(trimmed, "ZZ") {
		trimmed = trimmed[:len(trimmed)-1]
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.000Z",
		time.RFC3339,
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("agent: unparseable timestamp %q", s)
}

// ErrUnsupportedVersion is returned by ReadFrame when a frame header names
// a protocol version this codec does not speak. The caller must close the
// connection (spec §4.13, §4.15).
type ErrUnsupportedVersion struct {
	Got uint32
}

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("agent: unsupported frame version %d (want %d)", e.Got, ProtocolVersion)
}

// ErrFrameTooLarge is returned by ReadFrame when a frame's declared length
// exceeds maxFrameSize.
type ErrFrameTooLarge struct {
	Length uint32
}

func (e *ErrFrameTooLarge) Error() string {
	return fmt.Sprintf("agent: frame length %d exceeds maximum %d", e.Length, maxFrameSize)
}

// WriteFrame encodes msg as a length-prefixed, version-stamped JSON frame
// and writes it to w in a single call (spec §4.13 wire format).
func WriteFrame(w io.Writer, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("agent: encode message: %w", err)
	}
	header := make([]byte, headerSize)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(body)))
	binary.BigEndian.PutUint32(header[4:8], ProtocolVersion)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("agent: write frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("agent: write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and decodes its JSON
// body. A version mismatch returns *ErrUnsupportedVersion; the caller must
// treat this as fatal for the connection.
func ReadFrame(r io.Reader) (Message, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Message{}, fmt.Errorf("agent: read frame header: %w", err)
	}
	length := binary.BigEndian.Uint32(header[0:4])
	version := binary.BigEndian.Uint32(header[4:8])
	if version != ProtocolVersion {
		return Message{}, &ErrUnsupportedVersion{Got: version}
	}
	if length > maxFrameSize {
		return Message{}, &ErrFrameTooLarge{Length: length}
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, fmt.Errorf("agent: read frame body: %w", err)
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("agent: decode message: %w", err)
	}
	return msg, nil
}
