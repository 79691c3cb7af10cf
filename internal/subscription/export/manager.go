// SPDX-License-Identifier: MIT

package export

import (
	"github.com/sboxsync/sboxsync/internal/subscription/middleware"
	"github.com/sboxsync/sboxsync/internal/subscription/model"
	"github.com/sboxsync/sboxsync/internal/subscription/route"
)

// ManagerOptions configures a Manager run. Version is the target sing-box
// release string used for dialect detection (empty defaults to modern).
// Manual is middleware the caller supplies explicitly; it takes precedence
// over anything the manager would auto-configure under the same role (spec
// §4.11).
type ManagerOptions struct {
	Version string
	Manual  []middleware.Middleware
}

// Manager orchestrates dialect selection, middleware auto-configuration,
// and delegation to an Exporter (spec §4.11).
type Manager struct{}

// NewManager returns a ready-to-use Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Run executes one export pass: pick the dialect-appropriate exporter,
// resolve which middleware to run (manual roles win over auto-configured
// ones), run that chain against servers, then emit the document.
func (m *Manager) Run(servers []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile, opts ManagerOptions) (map[string]any, []string) {
	version := opts.Version
	if version == "" && profile != nil {
		version = profile.Export.Dialect
	}

	r := route.Select(version)
	exporterName := "modern"
	if _, legacy := r.(route.LegacyRouter); legacy {
		exporterName = "legacy"
	}

	ctor, err := Registry.Lookup(exporterName)
	if err != nil {
		ctor = func() Exporter { return SingboxExporter{Dialect: route.ModernRouter{}} }
	}
	exporter := ctor().(SingboxExporter)

	chain := m.resolveChain(profile, opts.Manual)
	processed := chain.Run(servers, ctx, profile)

	doc, warnings := exporter.Export(processed, routeBlockFromMetadata(ctx), profile)

	if err := ValidateDocument(doc); err != nil {
		ctx.AddError(model.NewError(model.KindExport, "export.schema", err.Error()))
		warnings = append(warnings, err.Error())
	}

	return doc, warnings
}

// resolveChain builds the middleware chain for this run: manual middleware
// first (in caller order), then any auto-configured middleware whose role
// isn't already covered by a manual entry.
func (m *Manager) resolveChain(profile *model.FullProfile, manual []middleware.Middleware) *middleware.Chain {
	haveRole := make(map[string]struct{}, len(manual))
	for _, mw := range manual {
		haveRole[mw.Name()] = struct{}{}
	}

	steps := append([]middleware.Middleware{}, manual...)

	if cp, ok := profile.EmbeddedClientProfile(); ok {
		if _, taken := haveRole["outbound_filter"]; !taken && len(cp.ExcludeOutbounds) > 0 {
			steps = append(steps, newConfiguredMiddleware("outbound_filter", map[string]any{"exclude_outbounds": cp.ExcludeOutbounds}))
		}
		if _, taken := haveRole["route_config"]; !taken && routingHintsPresent(profile) {
			steps = append(steps, newConfiguredMiddleware("route_config", nil))
		}
	}

	return middleware.NewChain(steps...)
}

func newConfiguredMiddleware(name string, config map[string]any) middleware.Middleware {
	ctor, err := middleware.Registry.Lookup(name)
	if err != nil {
		return noopMiddleware{name: name}
	}
	return ctor(config)
}

func routingHintsPresent(profile *model.FullProfile) bool {
	if profile == nil {
		return false
	}
	if profile.Routing.DefaultAction != "" || len(profile.Routing.BySource) > 0 || len(profile.Routing.CustomRules) > 0 {
		return true
	}
	if cp, ok := profile.EmbeddedClientProfile(); ok {
		if _, ok := cp.Routing.Final(); ok {
			return true
		}
	}
	return false
}

func routeBlockFromMetadata(ctx *model.PipelineContext) map[string]any {
	if ctx == nil || ctx.Metadata == nil {
		return nil
	}
	block, _ := ctx.Metadata["routing"].(map[string]any)
	return block
}

// noopMiddleware is installed when a named auto-configured middleware isn't
// registered; it leaves the server list untouched rather than failing the
// whole export.
type noopMiddleware struct{ name string }

func (n noopMiddleware) Name() string { return n.name }

func (n noopMiddleware) Process(servers []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile) ([]model.ParsedServer, error) {
	return servers, nil
}
