// SPDX-License-Identifier: MIT

package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sboxsync/sboxsync/internal/fsm"
	"github.com/sboxsync/sboxsync/internal/log"
	"github.com/sboxsync/sboxsync/internal/metrics"
	"github.com/sboxsync/sboxsync/internal/resilience"
	"github.com/sboxsync/sboxsync/internal/subscription/model"
	"github.com/sboxsync/sboxsync/internal/telemetry"
	"github.com/sboxsync/sboxsync/internal/trace"
)

// DefaultSocketPath is the default local stream socket the agent listens
// on (spec §4.13).
const DefaultSocketPath = "/tmp/sboxagent.sock"

// DefaultConnectTimeout bounds how long a single connect attempt may take
// (spec §5).
const DefaultConnectTimeout = 5 * time.Second

// connState is a node of the agent connection lifecycle (spec §4.15).
type connState string

const (
	stateDisconnected connState = "disconnected"
	stateConnecting   connState = "connecting"
	stateConnected    connState = "connected"
)

// connEvent drives transitions between connState values.
type connEvent string

const (
	eventDial    connEvent = "dial"
	eventDialOK  connEvent = "dial_ok"
	eventIOError connEvent = "io_error"
	eventClose   connEvent = "close"
)

// Dialer opens the transport connection to the agent. Production code uses
// net.Dial against a unix or tcp socket; tests substitute a net.Pipe or an
// in-memory listener.
type Dialer func(ctx context.Context) (net.Conn, error)

// UnixDialer builds a Dialer that connects to a unix domain socket at
// path, honoring ctx's deadline.
func UnixDialer(path string) Dialer {
	return func(ctx context.Context) (net.Conn, error) {
		d := net.Dialer{}
		return d.DialContext(ctx, "unix", path)
	}
}

// Client drives one agent connection through the Disconnected ->
// Connecting -> Connected -> Disconnected state machine of spec §4.15,
// sending one message at a time and reading back exactly one response
// (spec §4.13's "per-send protocol").
type Client struct {
	mu      sync.Mutex
	dial    Dialer
	conn    net.Conn
	timeout time.Duration
	breaker *resilience.CircuitBreaker
	machine *fsm.Machine[connState, connEvent]
	closed  bool
}

// NewClient builds a Client that dials via dial (or UnixDialer(DefaultSocketPath)
// if dial is nil), guarding reconnect attempts with a circuit breaker so a
// persistently-down agent doesn't get hammered on every pipeline run.
func NewClient(dial Dialer) *Client {
	if dial == nil {
		dial = UnixDialer(DefaultSocketPath)
	}
	c := &Client{
		dial:    dial,
		timeout: DefaultConnectTimeout,
		breaker: resilience.New("agent-reconnect", 3, 3, 60*time.Second, 30*time.Second,
			resilience.WithOnTransition(func(_ string, s resilience.State) {
				metrics.SetAgentCircuitState(float64(s))
			}),
		),
	}
	c.machine = newConnMachine(c)
	return c
}

// WithTimeout overrides the connect timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
	return c
}

func newConnMachine(c *Client) *fsm.Machine[connState, connEvent] {
	transitions := []fsm.Transition[connState, connEvent]{
		{From: stateDisconnected, Event: eventDial, To: stateConnecting},
		{From: stateConnecting, Event: eventDialOK, To: stateConnected},
		{From: stateConnecting, Event: eventIOError, To: stateDisconnected},
		{From: stateConnected, Event: eventIOError, To: stateDisconnected},
		{From: stateConnected, Event: eventClose, To: stateDisconnected},
	}
	m, err := fsm.New(stateDisconnected, transitions)
	if err != nil {
		// The transition table above is fixed and known-valid; a
		// construction error here means the table itself was edited
		// incorrectly.
		panic(fmt.Sprintf("agent: invalid connection state machine: %v", err))
	}
	return m
}

// State reports the current connection state, for diagnostics/metrics.
func (c *Client) State() string {
	return string(c.machine.State())
}

// connect performs the single implicit Connecting attempt. Callers hold
// c.mu.
func (c *Client) connect(ctx context.Context) error {
	if _, err := c.machine.Fire(ctx, eventDial); err != nil {
		return err
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var conn net.Conn
	err := c.breaker.Execute(func() error {
		var dialErr error
		conn, dialErr = c.dial(dialCtx)
		return dialErr
	})
	if err != nil {
		c.machine.Fire(ctx, eventIOError)
		return fmt.Errorf("agent: connect: %w", err)
	}
	if _, err := c.machine.Fire(ctx, eventDialOK); err != nil {
		conn.Close()
		return err
	}
	c.conn = conn
	return nil
}

// Send writes msg to the agent and returns its response, implementing the
// per-send protocol of spec §4.13: write, read one response, surface
// status. A connection loss triggers exactly one implicit reconnect; a
// second consecutive failure returns ErrAgentUnavailable.
func (c *Client) Send(ctx context.Context, msg Message) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Message{}, ErrClosed
	}

	ctx = trace.WithTraceID(ctx, trace.Get(ctx))
	logger := log.Component("agent").With().Str(log.FieldTraceID, trace.Get(ctx)).Logger()

	resp, err := c.sendOnce(ctx, msg)
	if err == nil {
		return resp, nil
	}
	logger.Warn().Err(err).Msg("agent send failed, attempting single reconnect")

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.machine.State() == stateConnected {
		c.machine.Fire(ctx, eventIOError)
	}

	resp, err = c.sendOnce(ctx, msg)
	if err != nil {
		logger.Error().Err(err).Msg("agent unavailable after reconnect attempt")
		return Message{}, fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}
	return resp, nil
}

// sendOnce connects if necessary, writes one frame, and reads exactly one
// response frame back. Callers hold c.mu.
func (c *Client) sendOnce(ctx context.Context, msg Message) (Message, error) {
	if c.machine.State() != stateConnected {
		if err := c.connect(ctx); err != nil {
			return Message{}, err
		}
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
	} else {
		c.conn.SetDeadline(time.Now().Add(c.timeout))
	}

	if err := WriteFrame(c.conn, msg); err != nil {
		c.machine.Fire(ctx, eventIOError)
		return Message{}, err
	}

	resp, err := ReadFrame(c.conn)
	if err != nil {
		c.machine.Fire(ctx, eventIOError)
		if _, ok := err.(*ErrUnsupportedVersion); ok {
			return Message{}, model.NewError(model.KindAgentProtocol, "agent.recv", err.Error())
		}
		return Message{}, err
	}
	return resp, nil
}

// SendEvent is a convenience wrapper building and sending an Event message,
// returning an error classified as agent_unavailable/agent_protocol per
// spec §4.13/§8 when the round trip fails or the agent reports an error.
func (c *Client) SendEvent(ctx context.Context, eventType, source string, priority Priority, data map[string]any) error {
	tracer := telemetry.Tracer("agent")
	ctx, span := tracer.Start(ctx, "agent.send_event")
	defer span.End()

	outcome := "success"
	defer func() { metrics.RecordAgentSend(outcome) }()

	resp, err := c.Send(ctx, NewEvent(eventType, source, priority, data))
	if err != nil {
		if errors.Is(err, ErrAgentUnavailable) {
			outcome = "agent_unavailable"
		} else {
			outcome = "error"
		}
		span.SetAttributes(telemetry.AgentSendAttributes(eventType, string(priority), outcome)...)
		return err
	}
	if resp.Response == nil || resp.Response.Status != ResponseSuccess {
		outcome = "agent_protocol"
		msg := "agent returned no response body"
		if resp.Response != nil && resp.Response.Error != nil {
			msg = resp.Response.Error.Message
		}
		span.SetAttributes(telemetry.AgentSendAttributes(eventType, string(priority), outcome)...)
		return model.NewError(model.KindAgentProtocol, "agent.send", msg)
	}
	span.SetAttributes(telemetry.AgentSendAttributes(eventType, string(priority), outcome)...)
	return nil
}

// Close closes the underlying connection, if any, and marks the client
// unusable for further sends.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		c.machine.Fire(context.Background(), eventClose)
		return err
	}
	return nil
}
