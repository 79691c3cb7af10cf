// SPDX-License-Identifier: MIT

package middleware

import (
	"github.com/sboxsync/sboxsync/internal/log"
	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// Logging is a pure observer: it never alters the server list (spec §4.5).
type Logging struct {
	config map[string]any
}

// NewLogging builds a Logging middleware.
func NewLogging(config map[string]any) *Logging {
	return &Logging{config: config}
}

// Name implements Middleware.
func (*Logging) Name() string { return "logging" }

// Process implements Middleware.
func (l *Logging) Process(servers []model.ParsedServer, ctx *model.PipelineContext, _ *model.FullProfile) ([]model.ParsedServer, error) {
	log.Component("middleware.logging").Debug().
		Str(log.FieldTraceID, ctx.TraceID).
		Int("server_count", len(servers)).
		Msg("middleware chain snapshot")
	return servers, nil
}
