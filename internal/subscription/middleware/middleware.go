// SPDX-License-Identifier: MIT

// Package middleware implements the Middleware plugin kind (spec §4.5):
// process(servers, context, profile) -> servers, plus pre_process/
// post_process lifecycle hooks. Middleware is profile-aware: it resolves
// its config from profile.metadata[name] when present, falling back to
// constructor config.
package middleware

import (
	"github.com/sboxsync/sboxsync/internal/log"
	"github.com/sboxsync/sboxsync/internal/registry"
	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// Middleware transforms a server list. Implementations must be
// side-effect-safe to retry: on error the chain keeps the input list
// unchanged for that stage and continues (spec §4.5).
type Middleware interface {
	Name() string
	Process(servers []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile) ([]model.ParsedServer, error)
}

// Lifecycle is implemented optionally by a Middleware that needs
// pre_process/post_process hooks around the whole chain run.
type Lifecycle interface {
	PreProcess(ctx *model.PipelineContext) error
	PostProcess(ctx *model.PipelineContext) error
}

// Constructor builds a Middleware instance from its config map, which is
// already the profile-overridden-over-constructor-default merge.
type Constructor func(config map[string]any) Middleware

// Registry holds the middleware namespace (spec §4.1).
var Registry = registry.New[Constructor]("middleware")

func init() {
	Registry.Register("tag_normalizer", func(config map[string]any) Middleware { return NewTagNormalizer(config) })
	Registry.Register("enrichment", func(config map[string]any) Middleware { return NewEnrichment(config) })
	Registry.Register("outbound_filter", func(config map[string]any) Middleware { return NewOutboundFilter(config) })
	Registry.Register("route_config", func(config map[string]any) Middleware { return NewRouteConfig(config) })
	Registry.Register("logging", func(config map[string]any) Middleware { return NewLogging(config) })
}

// Chain runs a fixed, ordered sequence of Middleware sequentially (spec
// §4.5's execution contract). Each middleware's config is resolved against
// the profile just before it runs.
type Chain struct {
	steps []Middleware
}

// NewChain builds a Chain from already-constructed middleware, in run
// order.
func NewChain(steps ...Middleware) *Chain {
	return &Chain{steps: steps}
}

// Run executes every step in order, recording a "middleware" error and
// continuing with the unmodified list whenever a step fails.
func (c *Chain) Run(servers []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile) []model.ParsedServer {
	logger := log.Component("middleware")
	current := servers

	for _, step := range c.steps {
		if lc, ok := step.(Lifecycle); ok {
			if err := lc.PreProcess(ctx); err != nil {
				ctx.AddError(model.NewError(model.KindMiddleware, step.Name(), "pre_process failed: "+err.Error()))
				continue
			}
		}

		out, err := step.Process(current, ctx, profile)
		if err != nil {
			logger.Warn().Str(log.FieldStage, step.Name()).Err(err).Msg("middleware step failed, list unchanged")
			ctx.AddError(model.NewError(model.KindMiddleware, step.Name(), err.Error()))
		} else {
			current = out
		}

		if lc, ok := step.(Lifecycle); ok {
			if err := lc.PostProcess(ctx); err != nil {
				ctx.AddError(model.NewError(model.KindMiddleware, step.Name(), "post_process failed: "+err.Error()))
			}
		}
	}

	return current
}

// ResolveConfig implements the profile.metadata[name] override-over-
// constructor-default merge every middleware follows.
func ResolveConfig(name string, constructorConfig map[string]any, profile *model.FullProfile) map[string]any {
	merged := make(map[string]any, len(constructorConfig))
	for k, v := range constructorConfig {
		merged[k] = v
	}
	if profile == nil {
		return merged
	}
	if override, ok := profile.MiddlewareConfig(name); ok {
		for k, v := range override {
			merged[k] = v
		}
	}
	return merged
}
