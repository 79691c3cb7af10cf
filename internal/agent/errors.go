// SPDX-License-Identifier: MIT

package agent

import "errors"

// ErrAgentUnavailable is surfaced once the single implicit reconnect
// attempt also fails (spec §4.13).
var ErrAgentUnavailable = errors.New("agent: unavailable")

// ErrNotConnected reports that a call needed an established connection and
// none existed. Nothing in this package returns it.
var ErrNotConnected = errors.New("agent: not connected")

// ErrClosed is returned once Close has been called on a Client.
var ErrClosed = errors.New("agent: client closed")
