// SPDX-License-Identifier: MIT

package route

import "github.com/sboxsync/sboxsync/internal/subscription/model"

// ModernRouter targets sing-box >= v1.11.0: action-based rules and a
// "final" tag pointing at the aggregating selector/urltest outbound. No
// direct/block/dns-out outbounds are emitted (spec §4.9).
type ModernRouter struct{}

// BuildRoute implements Router.
func (ModernRouter) BuildRoute(outboundTags []string, profile *model.FullProfile) map[string]any {
	final := "auto"
	if profile != nil {
		if cp, ok := profile.EmbeddedClientProfile(); ok {
			if f, ok := cp.Routing.Final(); ok && f != "" {
				final = f
			}
		}
	}

	rules := []map[string]any{
		{"action": "hijack-dns", "protocol": "dns"},
		{"action": "direct", "ip_is_private": true},
	}

	return map[string]any{
		"rules": rules,
		"final": final,
	}
}
