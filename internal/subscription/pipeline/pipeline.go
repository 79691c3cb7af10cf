// SPDX-License-Identifier: MIT

// Package pipeline implements the coordinator from spec §4.12: it runs the
// fixed stage order (cache check, fetch, raw validate, detect, parse,
// parsed validate, middleware, postprocess, select; there is no separate
// policy stage) over a
// SubscriptionSource, converts any stage panic or error into a structured
// model.PipelineError, and de-duplicates concurrent requests for the same
// cache key with golang.org/x/sync/singleflight.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/sboxsync/sboxsync/internal/cache"
	"github.com/sboxsync/sboxsync/internal/log"
	"github.com/sboxsync/sboxsync/internal/metrics"
	"github.com/sboxsync/sboxsync/internal/subscription/detect"
	"github.com/sboxsync/sboxsync/internal/subscription/fetch"
	"github.com/sboxsync/sboxsync/internal/subscription/middleware"
	"github.com/sboxsync/sboxsync/internal/subscription/model"
	"github.com/sboxsync/sboxsync/internal/subscription/parse"
	"github.com/sboxsync/sboxsync/internal/subscription/postprocess"
	selection "github.com/sboxsync/sboxsync/internal/subscription/select"
	"github.com/sboxsync/sboxsync/internal/subscription/validate"
	"github.com/sboxsync/sboxsync/internal/telemetry"
)

// CacheTTL bounds how long a PipelineResult stays cached under one key.
const CacheTTL = 5 * time.Minute

// Options configures one Coordinator.Run call.
type Options struct {
	Mode           model.Mode
	RawValidator   string // raw_validator registry name, defaults to "noop"
	ParsedValidator string // parsed_validator registry name, defaults to "required_fields"
	Middleware     []middleware.Middleware
	Postprocessors []postprocess.Step
	PostprocessCfg postprocess.ChainConfig
	Profile        *model.FullProfile
	TagFilters     []string // declared for cache-key purposes only
}

// Coordinator runs the fixed pipeline stage order over a source, caching and
// de-duplicating by the spec §4.12 cache-key tuple.
type Coordinator struct {
	Cache cache.Cache
	group singleflight.Group
}

// NewCoordinator builds a Coordinator backed by c. A nil c falls back to a
// no-op cache (every run executes fresh).
func NewCoordinator(c cache.Cache) *Coordinator {
	if c == nil {
		c = cache.NewNoOp()
	}
	return &Coordinator{Cache: c}
}

// Run executes one pipeline pass for source, checking ctx cancellation
// before fetch, before parse and before the middleware stage (spec §4.12).
// Concurrent Run calls sharing the same
// cache key collapse into a single execution.
func (co *Coordinator) Run(ctx context.Context, source model.SubscriptionSource, opts Options) *model.PipelineResult {
	key := CacheKey(source, opts.TagFilters, opts.Mode)

	if cached, ok := co.Cache.Get(key); ok {
		if result, ok := cached.(*model.PipelineResult); ok {
			metrics.RecordCacheResult(true)
			return result
		}
	}
	metrics.RecordCacheResult(false)

	v, _, _ := co.group.Do(key, func() (any, error) {
		result := co.runUncached(ctx, source, opts)
		co.Cache.Set(key, result, CacheTTL)
		return result, nil
	})

	return v.(*model.PipelineResult)
}

// CacheKey builds the deterministic cache-key tuple of spec §4.12: source
// URL, user-agent tri-state, serialized header dict, serialized tag
// filters, and mode.
func CacheKey(source model.SubscriptionSource, tagFilters []string, mode model.Mode) string {
	headers := make([]string, 0, len(source.Headers))
	for k, v := range source.Headers {
		headers = append(headers, k+"="+v)
	}
	sort.Strings(headers)

	filters := append([]string{}, tagFilters...)
	sort.Strings(filters)

	tuple := struct {
		URL       string
		Type      string
		UAMode    model.UserAgentMode
		UAValue   string
		Headers   []string
		Filters   []string
		Mode      model.Mode
	}{
		URL:     source.URL,
		Type:    string(source.Type),
		UAMode:  source.UserAgent.Mode,
		UAValue: source.UserAgent.Value,
		Headers: headers,
		Filters: filters,
		Mode:    mode,
	}

	raw, _ := json.Marshal(tuple)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (co *Coordinator) runUncached(ctx context.Context, source model.SubscriptionSource, opts Options) (result *model.PipelineResult) {
	mode := opts.Mode
	if mode == "" {
		mode = model.ModeTolerant
	}
	pctx := model.NewContext(mode)
	pctx.Source = source.URL

	logger := log.Component("pipeline").With().Str(log.FieldTraceID, pctx.TraceID).Logger()

	tracer := telemetry.Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.run", oteltrace.WithAttributes(
		telemetry.StageAttributes("run", pctx.TraceID, string(mode), source.URL)...,
	))
	defer span.End()

	// Every stage runs inside this recover boundary so a stage panic never
	// escapes as a language-native exception (spec §4.12 invariant).
	defer func() {
		if r := recover(); r != nil {
			err := model.NewError(model.KindInternal, "pipeline", fmt.Sprintf("recovered panic: %v", r))
			pctx.AddError(err)
			result = &model.PipelineResult{Context: pctx, Errors: pctx.Errors(), Success: false}
		}
		if result != nil {
			span.SetAttributes(telemetry.ResultAttributes(resultServerCount(result), len(result.Errors))...)
		}
	}()

	stage := func(name string, fn func()) {
		start := time.Now()
		_, sp := tracer.Start(ctx, "pipeline."+name)
		fn()
		sp.End()
		metrics.ObserveStage(name, time.Since(start).Seconds())
	}

	if ctx.Err() != nil {
		pctx.AddError(model.NewError(model.KindTimeout, "pipeline", ctx.Err().Error()))
		return &model.PipelineResult{Context: pctx, Errors: pctx.Errors(), Success: false}
	}

	var raw []byte
	var fetchErr error
	stage("fetch", func() {
		fetchStart := time.Now()
		raw, fetchErr = co.fetch(ctx, source)
		metrics.ObserveFetch(string(source.Type), time.Since(fetchStart).Seconds())
	})
	if fetchErr != nil {
		pctx.AddError(model.NewError(model.KindFetch, "fetch", fetchErr.Error()))
		return &model.PipelineResult{Context: pctx, Errors: pctx.Errors(), Success: false}
	}

	var rawValidateErr error
	stage("raw_validate", func() {
		rawValidateErr = co.rawValidate(opts.RawValidator, raw, pctx)
	})
	if rawValidateErr != nil {
		return &model.PipelineResult{Context: pctx, Errors: pctx.Errors(), Success: false}
	}

	if ctx.Err() != nil {
		pctx.AddError(model.NewError(model.KindTimeout, "pipeline", ctx.Err().Error()))
		return &model.PipelineResult{Context: pctx, Errors: pctx.Errors(), Success: false}
	}

	var servers []model.ParsedServer
	var parseErr error
	stage("parse", func() {
		parserName := detect.Detect(source.Type, raw)
		servers, parseErr = co.parse(parserName, raw, pctx)
	})
	if parseErr != nil {
		return &model.PipelineResult{Context: pctx, Errors: pctx.Errors(), Success: false}
	}

	stage("parsed_validate", func() {
		servers = co.parsedValidate(opts.ParsedValidator, servers, pctx)
	})

	if ctx.Err() != nil {
		pctx.AddError(model.NewError(model.KindTimeout, "pipeline", ctx.Err().Error()))
		return &model.PipelineResult{Context: pctx, Errors: pctx.Errors(), Success: false}
	}

	stage("middleware", func() {
		servers = middleware.NewChain(opts.Middleware...).Run(servers, pctx, opts.Profile)
	})

	ppCfg := opts.PostprocessCfg
	if ppCfg.Timeout == 0 {
		ppCfg = postprocess.DefaultChainConfig()
	}
	stage("postprocess", func() {
		pp := postprocess.NewChain(ppCfg, opts.Postprocessors...)
		ppResult := pp.Run(ctx, servers, pctx, opts.Profile)
		servers = ppResult.Servers
		pctx.Metadata["postprocess_steps"] = ppResult.Steps
		for _, step := range ppResult.Steps {
			outcome := "ok"
			switch {
			case step.Skipped:
				outcome = "skipped"
			case step.FailureCause != "":
				outcome = "error"
			}
			metrics.RecordPostprocessorOutcome(step.Name, outcome)
		}
	})

	var selected []model.ParsedServer
	var selectErr error
	stage("select", func() {
		selected, selectErr = selection.Select(servers, pctx)
	})
	if selectErr != nil {
		pctx.AddError(model.NewError(model.KindInternal, "select", selectErr.Error()))
		return &model.PipelineResult{Context: pctx, Errors: pctx.Errors(), Success: false}
	}

	logger.Debug().Int("server_count", len(selected)).Msg("pipeline run complete")

	return &model.PipelineResult{
		Artifact: selected,
		Context:  pctx,
		Errors:   pctx.Errors(),
		Success:  true,
	}
}

func resultServerCount(r *model.PipelineResult) int {
	servers, _ := r.Artifact.([]model.ParsedServer)
	return len(servers)
}

func (co *Coordinator) fetch(ctx context.Context, source model.SubscriptionSource) ([]byte, error) {
	name := "http"
	if source.Type == model.SourceFileJSON {
		name = "file"
	}
	ctor, err := fetch.Registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	return ctor().Fetch(ctx, source)
}

func (co *Coordinator) rawValidate(name string, raw []byte, pctx *model.PipelineContext) error {
	if name == "" {
		name = "noop"
	}
	ctor, err := validate.RawRegistry.Lookup(name)
	if err != nil {
		pctx.AddError(model.NewError(model.KindRawValidate, "raw_validate", err.Error()))
		return err
	}
	if err := ctor().ValidateRaw(raw, pctx); err != nil {
		pctx.AddError(model.NewError(model.KindRawValidate, "raw_validate", err.Error()))
		if pctx.Mode == model.ModeStrict {
			return err
		}
	}
	return nil
}

func (co *Coordinator) parse(parserName string, raw []byte, pctx *model.PipelineContext) ([]model.ParsedServer, error) {
	ctor, err := parse.Registry.Lookup(parserName)
	if err != nil {
		pctx.AddError(model.NewError(model.KindParse, "parse", err.Error()))
		return nil, err
	}
	servers, err := ctor().Parse(raw, pctx)
	if err != nil {
		pctx.AddError(model.NewError(model.KindParse, "parse", err.Error()))
		return nil, err
	}
	return servers, nil
}

func (co *Coordinator) parsedValidate(name string, servers []model.ParsedServer, pctx *model.PipelineContext) []model.ParsedServer {
	if name == "" {
		name = "required_fields"
	}
	ctor, err := validate.ParsedRegistry.Lookup(name)
	if err != nil {
		pctx.AddError(model.NewError(model.KindParsedValidate, "parsed_validate", err.Error()))
		return servers
	}
	result := ctor().ValidateParsed(servers, pctx)
	return result.ValidServers
}
