// SPDX-License-Identifier: MIT

// Package postprocess implements the Postprocessor plugin kind and its
// chain runner (spec §4.6). Postprocessors share the Middleware shape but
// run after the middleware chain, and the chain itself supports three
// execution modes plus a configurable error strategy.
package postprocess

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sboxsync/sboxsync/internal/log"
	"github.com/sboxsync/sboxsync/internal/registry"
	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// Postprocessor transforms a server list, same shape as middleware.Middleware.
type Postprocessor interface {
	Name() string
	Process(servers []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile) ([]model.ParsedServer, error)
}

// Constructor builds a Postprocessor from its resolved config.
type Constructor func(config map[string]any) Postprocessor

// Registry holds the postprocessor namespace (spec §4.1).
var Registry = registry.New[Constructor]("postprocessor")

func init() {
	Registry.Register("geo_filter", func(config map[string]any) Postprocessor { return NewGeoFilter(config) })
	Registry.Register("tag_filter", func(config map[string]any) Postprocessor { return NewTagFilter(config) })
	Registry.Register("latency_sort", func(config map[string]any) Postprocessor { return NewLatencySort(config) })
}

// ExecMode selects how the chain fans a step's input out (spec §4.6).
type ExecMode string

const (
	ExecSequential  ExecMode = "sequential"
	ExecParallel    ExecMode = "parallel"
	ExecConditional ExecMode = "conditional"
)

// ErrorStrategy selects how the chain reacts to a step failing.
type ErrorStrategy string

const (
	ErrorFailFast ErrorStrategy = "fail_fast"
	ErrorContinue ErrorStrategy = "continue"
	ErrorRetry    ErrorStrategy = "retry"
)

// Predicate decides, for ExecConditional, whether a step should run at
// all given the current server list and context.
type Predicate func(servers []model.ParsedServer, ctx *model.PipelineContext) bool

// Step pairs a Postprocessor with its conditional predicate (nil unless
// Mode is ExecConditional).
type Step struct {
	Processor Postprocessor
	When      Predicate
}

// StepMetadata is the per-step diagnostic record the chain collects
// (spec §4.6: "name, input/output counts, duration, failure cause").
type StepMetadata struct {
	Name        string
	InputCount  int
	OutputCount int
	Duration    time.Duration
	Skipped     bool
	FailureCause string
	Retries     int
}

// ChainConfig configures a Chain run.
type ChainConfig struct {
	Mode          ExecMode
	ErrorStrategy ErrorStrategy
	MaxRetries    int
	RetryDelay    time.Duration
	Timeout       time.Duration
}

// DefaultChainConfig matches the teacher's convention of sane, explicit
// defaults rather than zero-value surprises.
func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		Mode:          ExecSequential,
		ErrorStrategy: ErrorContinue,
		MaxRetries:    2,
		RetryDelay:    200 * time.Millisecond,
		Timeout:       30 * time.Second,
	}
}

// Chain runs a fixed ordered sequence of postprocessing Steps.
type Chain struct {
	steps  []Step
	config ChainConfig
}

// NewChain builds a Chain.
func NewChain(config ChainConfig, steps ...Step) *Chain {
	return &Chain{steps: steps, config: config}
}

// Result is the chain's outcome: the final server list plus per-step
// metadata for diagnostics.
type Result struct {
	Servers []model.ParsedServer
	Steps   []StepMetadata
}

// Run executes the chain against ctx within the chain's wall-clock
// timeout.
func (c *Chain) Run(parent context.Context, servers []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile) Result {
	runCtx, cancel := context.WithTimeout(parent, c.config.Timeout)
	defer cancel()

	switch c.config.Mode {
	case ExecParallel:
		return c.runParallel(runCtx, servers, ctx, profile)
	case ExecConditional:
		return c.runSequential(runCtx, servers, ctx, profile, true)
	default:
		return c.runSequential(runCtx, servers, ctx, profile, false)
	}
}

func (c *Chain) runSequential(runCtx context.Context, servers []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile, conditional bool) Result {
	current := servers
	var metas []StepMetadata

	for _, step := range c.steps {
		select {
		case <-runCtx.Done():
			metas = append(metas, StepMetadata{Name: step.Processor.Name(), Skipped: true, FailureCause: "chain timeout"})
			continue
		default:
		}

		if conditional && step.When != nil && !step.When(current, ctx) {
			metas = append(metas, StepMetadata{Name: step.Processor.Name(), Skipped: true})
			continue
		}

		out, meta := c.runStep(runCtx, step.Processor, current, ctx, profile)
		metas = append(metas, meta)
		if meta.FailureCause != "" {
			ctx.AddError(model.NewError(model.KindPostprocessor, step.Processor.Name(), meta.FailureCause))
			if c.config.ErrorStrategy == ErrorFailFast {
				break
			}
			continue // keep current (unchanged) input for the next step
		}
		current = out
	}

	return Result{Servers: current, Steps: metas}
}

// runParallel feeds every step the same original input (spec §4.6) and
// merges by returning the first successful result, in step declaration
// order. Non-first successes and all failures are still recorded in the
// per-step metadata for diagnostics.
func (c *Chain) runParallel(runCtx context.Context, servers []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile) Result {
	g, gCtx := errgroup.WithContext(runCtx)
	results := make([][]model.ParsedServer, len(c.steps))
	metas := make([]StepMetadata, len(c.steps))

	for i, step := range c.steps {
		i, step := i, step
		g.Go(func() error {
			out, meta := c.runStep(gCtx, step.Processor, servers, ctx, profile)
			results[i] = out
			metas[i] = meta
			return nil
		})
	}
	_ = g.Wait() // runStep never returns an error to the group; failures live in metas

	for i, meta := range metas {
		if meta.FailureCause != "" {
			ctx.AddError(model.NewError(model.KindPostprocessor, meta.Name, meta.FailureCause))
			continue
		}
		return Result{Servers: results[i], Steps: metas}
	}

	// Every step failed: fall back to the original input.
	return Result{Servers: servers, Steps: metas}
}

func (c *Chain) runStep(runCtx context.Context, step Postprocessor, input []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile) ([]model.ParsedServer, StepMetadata) {
	logger := log.Component("postprocess")
	meta := StepMetadata{Name: step.Name(), InputCount: len(input)}

	attempts := 1
	if c.config.ErrorStrategy == ErrorRetry {
		attempts = c.config.MaxRetries + 1
	}

	var out []model.ParsedServer
	var err error
	start := time.Now()
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			meta.Retries++
			select {
			case <-runCtx.Done():
				err = runCtx.Err()
				break
			case <-time.After(c.config.RetryDelay):
			}
		}
		out, err = step.Process(input, ctx, profile)
		if err == nil {
			break
		}
		logger.Warn().Str("step", step.Name()).Int("attempt", attempt+1).Err(err).Msg("postprocessor step failed")
	}
	meta.Duration = time.Since(start)

	if err != nil {
		meta.FailureCause = err.Error()
		return nil, meta
	}
	meta.OutputCount = len(out)
	return out, meta
}
