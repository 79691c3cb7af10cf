// SPDX-License-Identifier: MIT

package export

import (
	"strings"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// passthroughWhitelist is the set of meta keys copied verbatim onto the
// generic outbound object, mirroring the original exporter's allowlist.
var passthroughWhitelist = map[string]struct{}{
	"password":        {},
	"method":          {},
	"multiplex":       {},
	"packet_encoding": {},
	"udp_over_tcp":    {},
	"udp_relay_mode":  {},
	"udp_fragment":    {},
	"udp_timeout":     {},
}

// kebabToSnake folds a map's string keys from kebab-case to snake_case,
// recursing into nested maps.
func kebabToSnake(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		key := strings.ReplaceAll(k, "-", "_")
		if nested, ok := v.(map[string]any); ok {
			out[key] = kebabToSnake(nested)
		} else {
			out[key] = v
		}
	}
	return out
}

// buildGeneric handles vless, vmess, trojan, and shadowsocks: transport
// (ws/grpc) nesting, tls/reality/utls grouping, and the meta passthrough
// whitelist (spec §4.10).
func buildGeneric(s model.ParsedServer, outType string) (map[string]any, bool) {
	meta := make(map[string]string, len(s.Meta))
	for k, v := range s.Meta {
		meta[k] = v
	}

	out := map[string]any{
		"type":        outType,
		"server":      s.Address,
		"server_port": s.Port,
	}

	if outType == "shadowsocks" {
		method := s.Security
		if m, ok := meta["cipher"]; ok && m != "" {
			method = m
		} else if m, ok := meta["method"]; ok && m != "" {
			method = m
		}
		if method == "" {
			return nil, false
		}
		out["method"] = method
		if s.Password != "" {
			out["password"] = s.Password
		}
	}

	switch s.Transport.Network {
	case "ws", "grpc":
		transport := map[string]any{"type": s.Transport.Network}
		if s.Transport.Path != "" {
			transport["path"] = s.Transport.Path
		}
		if host, ok := meta["host"]; ok && host != "" {
			transport["headers"] = map[string]any{"Host": host}
		}
		out["transport"] = transport
	case "tcp", "udp":
		out["network"] = s.Transport.Network
	}

	tls := map[string]any{}
	if s.Transport.TLSEnabled {
		tls["enabled"] = true
	}
	if s.Transport.SNI != "" {
		tls["server_name"] = s.Transport.SNI
	}
	if s.Transport.RealityPublicKey != "" || s.Transport.RealityShortID != "" || len(s.Transport.RealityOpts) > 0 {
		reality := kebabToSnake(s.Transport.RealityOpts)
		if reality == nil {
			reality = map[string]any{}
		}
		if s.Transport.RealityPublicKey != "" {
			reality["public_key"] = s.Transport.RealityPublicKey
		}
		if s.Transport.RealityShortID != "" {
			reality["short_id"] = s.Transport.RealityShortID
		}
		tls["reality"] = reality
	}
	if s.Transport.UTLSFingerprint != "" {
		tls["utls"] = map[string]any{"enabled": true, "fingerprint": s.Transport.UTLSFingerprint}
	}
	if len(s.Transport.ALPN) > 0 {
		tls["alpn"] = s.Transport.ALPN
	}
	if len(tls) > 0 && (outType == "vless" || outType == "vmess" || outType == "trojan") {
		out["tls"] = tls
	}

	if s.UUID != "" {
		out["uuid"] = s.UUID
	}
	if s.Flow != "" {
		out["flow"] = s.Flow
	}
	if outType != "shadowsocks" && s.Password != "" {
		out["password"] = s.Password
	}

	out["tag"] = tagOrAddress(s)

	for k, v := range meta {
		if _, allowed := passthroughWhitelist[k]; allowed {
			out[k] = v
		}
	}

	return out, true
}

func tagOrAddress(s model.ParsedServer) string {
	if s.Tag != "" {
		return s.Tag
	}
	return s.Address
}
