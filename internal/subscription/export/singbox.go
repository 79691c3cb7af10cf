// SPDX-License-Identifier: MIT

package export

import (
	"fmt"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
	"github.com/sboxsync/sboxsync/internal/subscription/route"
)

// supportedTypes enumerates the protocol tags this exporter knows how to
// emit. Anything else is skipped with a warning (spec §4.10).
var supportedTypes = map[string]struct{}{
	model.ProtoVless:            {},
	model.ProtoVmess:            {},
	model.ProtoTrojan:           {},
	model.ProtoShadowsocks:      {},
	model.ProtoShadowsocksShort: {},
	model.ProtoWireguard:        {},
	model.ProtoHysteria2:        {},
	model.ProtoTuic:             {},
	model.ProtoShadowTLS:        {},
	model.ProtoAnyTLS:           {},
	model.ProtoTor:              {},
	model.ProtoSSH:              {},
}

// SingboxExporter builds a sing-box client configuration document, dispatching
// each server to the generic builder (vless/vmess/trojan/shadowsocks) or one
// of the special per-protocol builders, then appending routing and an
// auto-selector outbound. Dialect controls whether legacy direct/block/dns-out
// outbounds are emitted alongside the route block (spec §4.9, §4.10).
type SingboxExporter struct {
	Dialect route.Router
}

// Export implements Exporter.
func (e SingboxExporter) Export(servers []model.ParsedServer, routeBlock map[string]any, profile *model.FullProfile) (map[string]any, []string) {
	outbounds := []map[string]any{}
	var tags []string
	var warnings []string

	for _, s := range servers {
		if _, ok := supportedTypes[s.Type]; !ok {
			warnings = append(warnings, fmt.Sprintf("unsupported outbound type %q for %s, skipped", s.Type, tagOrAddress(s)))
			continue
		}

		out, ok := buildOne(s)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("missing required fields for %s server %s, skipped", s.Type, tagOrAddress(s)))
			continue
		}

		outbounds = append(outbounds, out)
		if tag, ok := out["tag"].(string); ok {
			tags = append(tags, tag)
		}
	}

	if _, legacy := e.Dialect.(route.LegacyRouter); legacy {
		outbounds = append(outbounds, route.LegacyOutbounds()...)
	}

	if len(tags) > 0 {
		outbounds = append(outbounds, map[string]any{
			"type":      "urltest",
			"tag":       "auto",
			"outbounds": tags,
		})
	}

	block := routeBlock
	if block == nil {
		block = e.Dialect.BuildRoute(tags, profile)
	}

	doc := map[string]any{
		"outbounds": outbounds,
		"route":     block,
	}

	if cp, ok := profile.EmbeddedClientProfile(); ok && len(cp.Inbounds) > 0 {
		doc["inbounds"] = buildInbounds(cp.Inbounds)
	}

	return doc, warnings
}

func buildInbounds(inbounds []model.InboundProfile) []map[string]any {
	out := make([]map[string]any, 0, len(inbounds))
	for _, in := range inbounds {
		entry := map[string]any{
			"type":   string(in.Type),
			"listen": in.EffectiveListen(),
		}
		if in.Port != 0 {
			entry["listen_port"] = in.Port
		}
		for k, v := range in.Options {
			entry[k] = v
		}
		out = append(out, entry)
	}
	return out
}

func buildOne(s model.ParsedServer) (map[string]any, bool) {
	switch s.Type {
	case model.ProtoVless, model.ProtoVmess, model.ProtoTrojan:
		return buildGeneric(s, s.Type)
	case model.ProtoShadowsocks, model.ProtoShadowsocksShort:
		return buildGeneric(s, "shadowsocks")
	case model.ProtoWireguard:
		return buildWireguard(s)
	case model.ProtoTuic:
		return buildTUIC(s)
	case model.ProtoShadowTLS:
		return buildShadowTLS(s)
	case model.ProtoAnyTLS:
		return buildAnyTLS(s)
	case model.ProtoTor:
		return buildTor(s)
	case model.ProtoSSH:
		return buildSSH(s)
	case model.ProtoHysteria2:
		return buildHysteria2(s)
	default:
		return nil, false
	}
}
