// SPDX-License-Identifier: MIT

package middleware

import (
	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// Override selects how RouteConfig combines its constructor-configured
// routing hints with the profile's own routing overrides (spec §4.5).
type Override string

const (
	OverrideProfile Override = "profile_overrides"
	OverrideConfig  Override = "config_overrides"
	OverrideMerge   Override = "merge"
)

// RouteConfig writes routing hints (notably "final") into
// context.Metadata["routing"]; it never touches the server list.
type RouteConfig struct {
	config map[string]any
}

// NewRouteConfig builds a RouteConfig middleware.
func NewRouteConfig(config map[string]any) *RouteConfig {
	return &RouteConfig{config: config}
}

// Name implements Middleware.
func (*RouteConfig) Name() string { return "route_config" }

// Process implements Middleware.
func (r *RouteConfig) Process(servers []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile) ([]model.ParsedServer, error) {
	config := ResolveConfig(r.Name(), r.config, profile)
	mode := Override(stringOr(config, "override_mode", string(OverrideMerge)))

	configRouting, _ := config["routing"].(map[string]any)
	var profileRouting map[string]any
	var profileFinal string
	if profile != nil {
		profileRouting = map[string]any{}
		if profile.Routing.DefaultAction != "" {
			profileRouting["default_action"] = profile.Routing.DefaultAction
		}
		if len(profile.Routing.BySource) > 0 {
			profileRouting["by_source"] = profile.Routing.BySource
		}
		if len(profile.Routing.CustomRules) > 0 {
			profileRouting["custom_rules"] = profile.Routing.CustomRules
		}
		if cp, ok := profile.EmbeddedClientProfile(); ok {
			if final, ok := cp.Routing.Final(); ok {
				profileFinal = final
			}
		}
	}

	routing := map[string]any{}
	switch mode {
	case OverrideProfile:
		for k, v := range configRouting {
			routing[k] = v
		}
		for k, v := range profileRouting {
			routing[k] = v
		}
	case OverrideConfig:
		for k, v := range profileRouting {
			routing[k] = v
		}
		for k, v := range configRouting {
			routing[k] = v
		}
	default: // merge
		for k, v := range configRouting {
			routing[k] = v
		}
		for k, v := range profileRouting {
			routing[k] = v
		}
	}

	if profileFinal != "" {
		routing["final"] = profileFinal
	} else if v, ok := config["final"].(string); ok && v != "" {
		if _, already := routing["final"]; !already {
			routing["final"] = v
		}
	}

	ctx.Metadata["routing"] = routing
	return servers, nil
}

func stringOr(config map[string]any, key, fallback string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
