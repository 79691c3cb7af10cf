// SPDX-License-Identifier: MIT

package middleware

import (
	"fmt"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// OutboundFilter drops servers whose protocol tag is in the
// exclude_outbounds set, merged from constructor config and the
// profile-embedded ClientProfile.ExcludeOutbounds (spec §4.5). Records
// the excluded count and per-server detail in context metadata; in
// strict mode it errors if the filter would exclude every server.
type OutboundFilter struct {
	config map[string]any
	strict bool
}

// NewOutboundFilter builds an OutboundFilter.
func NewOutboundFilter(config map[string]any) *OutboundFilter {
	strict, _ := config["strict"].(bool)
	return &OutboundFilter{config: config, strict: strict}
}

// Name implements Middleware.
func (*OutboundFilter) Name() string { return "outbound_filter" }

type excludedDetail struct {
	Type    string `json:"type"`
	Tag     string `json:"tag"`
	Address string `json:"address"`
}

// Process implements Middleware.
func (f *OutboundFilter) Process(servers []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile) ([]model.ParsedServer, error) {
	config := ResolveConfig(f.Name(), f.config, profile)
	exclude := excludeSet(config)
	if profile != nil {
		if cp, ok := profile.EmbeddedClientProfile(); ok {
			for name := range cp.ExcludeSet() {
				exclude[name] = struct{}{}
			}
		}
	}

	var kept []model.ParsedServer
	var excluded []excludedDetail
	for _, s := range servers {
		if _, blocked := exclude[s.Type]; blocked {
			excluded = append(excluded, excludedDetail{Type: s.Type, Tag: s.Tag, Address: s.Address})
			continue
		}
		kept = append(kept, s)
	}

	ctx.Metadata["outbound_filter"] = map[string]any{
		"excluded_count": len(excluded),
		"excluded":       excluded,
	}

	if len(excluded) > 0 && len(kept) == 0 && (f.strict || boolOr(config, "strict", false)) {
		return servers, fmt.Errorf("outbound_filter: all %d servers excluded by %v", len(servers), exclude)
	}

	return kept, nil
}

func excludeSet(config map[string]any) map[string]struct{} {
	set := make(map[string]struct{})
	raw, ok := config["exclude_outbounds"]
	if !ok {
		return set
	}
	switch v := raw.(type) {
	case []string:
		for _, s := range v {
			set[s] = struct{}{}
		}
	case []any:
		for _, s := range v {
			if str, ok := s.(string); ok {
				set[str] = struct{}{}
			}
		}
	}
	return set
}
