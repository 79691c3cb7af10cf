// SPDX-License-Identifier: MIT

package postprocess

import (
	"strings"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// FallbackPolicy decides what GeoFilter does when no server matches the
// configured allow/block lists.
type FallbackPolicy string

const (
	FallbackAllowAll FallbackPolicy = "allow_all"
	FallbackBlockAll FallbackPolicy = "block_all"
)

// GeoFilter keeps or drops servers by the country-code tag enrichment
// left in server.Meta["geo"] (spec §4.6).
type GeoFilter struct {
	allow    map[string]struct{}
	block    map[string]struct{}
	fallback FallbackPolicy
}

// NewGeoFilter builds a GeoFilter from config keys "allow", "block"
// ([]string or []any of country codes) and "fallback" ("allow_all" or
// "block_all", default allow_all).
func NewGeoFilter(config map[string]any) *GeoFilter {
	f := &GeoFilter{
		allow:    stringSetFrom(config, "allow"),
		block:    stringSetFrom(config, "block"),
		fallback: FallbackAllowAll,
	}
	if v, ok := config["fallback"].(string); ok && v == string(FallbackBlockAll) {
		f.fallback = FallbackBlockAll
	}
	return f
}

// Name implements Postprocessor.
func (*GeoFilter) Name() string { return "geo_filter" }

// Process implements Postprocessor.
func (f *GeoFilter) Process(servers []model.ParsedServer, _ *model.PipelineContext, _ *model.FullProfile) ([]model.ParsedServer, error) {
	var out []model.ParsedServer
	for _, s := range servers {
		geo := strings.ToUpper(s.MetaOrEmpty()["geo"])
		if f.allowed(geo) {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(servers) > 0 {
		if f.fallback == FallbackAllowAll {
			return servers, nil
		}
		return nil, nil
	}
	return out, nil
}

func (f *GeoFilter) allowed(geo string) bool {
	if _, blocked := f.block[geo]; blocked {
		return false
	}
	if len(f.allow) == 0 {
		return true
	}
	_, ok := f.allow[geo]
	return ok
}

func stringSetFrom(config map[string]any, key string) map[string]struct{} {
	set := map[string]struct{}{}
	raw, ok := config[key]
	if !ok {
		return set
	}
	switch v := raw.(type) {
	case []string:
		for _, s := range v {
			set[strings.ToUpper(s)] = struct{}{}
		}
	case []any:
		for _, s := range v {
			if str, ok := s.(string); ok {
				set[strings.ToUpper(str)] = struct{}{}
			}
		}
	}
	return set
}
