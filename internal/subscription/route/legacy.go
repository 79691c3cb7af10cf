// SPDX-License-Identifier: MIT

package route

import "github.com/sboxsync/sboxsync/internal/subscription/model"

// LegacyRouter targets sing-box < v1.11.0: explicit direct/block/dns-out
// outbounds and rule objects referencing them with "outbound:" (spec
// §4.9).
type LegacyRouter struct{}

// BuildRoute implements Router. The caller is expected to merge
// LegacyOutbounds() into the document's outbounds array alongside the
// proxy outbounds, since those special outbounds don't come from any
// ParsedServer.
func (LegacyRouter) BuildRoute(outboundTags []string, profile *model.FullProfile) map[string]any {
	final := "auto"
	if profile != nil {
		if cp, ok := profile.EmbeddedClientProfile(); ok {
			if f, ok := cp.Routing.Final(); ok && f != "" {
				final = f
			}
		}
	}

	rules := []map[string]any{
		{"outbound": "dns-out", "protocol": "dns"},
		{"outbound": "direct", "ip_is_private": true},
	}

	return map[string]any{
		"rules": rules,
		"final": final,
	}
}

// LegacyOutbounds returns the direct/block/dns-out special outbounds the
// legacy dialect requires alongside the proxy outbound list.
func LegacyOutbounds() []map[string]any {
	return []map[string]any{
		{"type": "direct", "tag": "direct"},
		{"type": "block", "tag": "block"},
		{"type": "dns", "tag": "dns-out"},
	}
}
