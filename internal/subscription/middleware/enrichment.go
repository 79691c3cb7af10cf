// SPDX-License-Identifier: MIT

package middleware

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// Enrichment adds diagnostic and heuristic metadata to every server (spec
// §4.5): an enriched_at timestamp, a stable server_id hash, a trace_id
// mirror, a best-effort geo label, a protocol performance class, and
// security metadata. Every sub-enricher is individually toggleable via
// config["enable_<name>"] = false.
type Enrichment struct {
	config  map[string]any
	geoFile string // geoip_database config value; stored, but geoLookup does not read it
}

// NewEnrichment builds an Enrichment middleware.
func NewEnrichment(config map[string]any) *Enrichment {
	e := &Enrichment{config: config}
	if v, ok := config["geoip_database"].(string); ok {
		e.geoFile = v
	}
	return e
}

// Name implements Middleware.
func (*Enrichment) Name() string { return "enrichment" }

// Process implements Middleware.
func (e *Enrichment) Process(servers []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile) ([]model.ParsedServer, error) {
	config := ResolveConfig(e.Name(), e.config, profile)
	now := enrichedAt()
	out := make([]model.ParsedServer, len(servers))

	for i, s := range servers {
		meta := s.MetaOrEmpty()
		meta["enriched_at"] = now
		meta["server_id"] = serverID(s)
		meta["trace_id"] = ctx.TraceID

		if boolOr(config, "enable_geo", true) {
			meta["geo"] = e.geoLookup(s.Address)
		}
		if boolOr(config, "enable_performance_class", true) {
			meta["performance_class"] = performanceClass(s.Type)
		}
		if boolOr(config, "enable_security_metadata", true) {
			for k, v := range securityMetadata(s) {
				meta[k] = v
			}
		}

		s.Meta = meta
		out[i] = s
	}
	return out, nil
}

func enrichedAt() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func serverID(s model.ParsedServer) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s://%s:%d", s.Type, s.Address, s.Port)))
	return hex.EncodeToString(sum[:])[:12]
}

// geoLookup resolves a coarse geo label for addr from a public-suffix/TLD
// heuristic, else "unknown". A configured GeoIP2 database is not
// consulted.
func (e *Enrichment) geoLookup(addr string) string {
	if e.geoFile != "" {
		// geoFile is not read; the TLD heuristic below applies either way.
		_ = e.geoFile
	}
	if addr == "" {
		return "unknown"
	}
	suffix, icann := publicsuffix.PublicSuffix(strings.ToLower(addr))
	if !icann || suffix == "" {
		return "unknown"
	}
	return strings.ToUpper(suffix)
}

var protocolPerformance = map[string]string{
	model.ProtoWireguard:   "high",
	model.ProtoHysteria2:   "high",
	model.ProtoTuic:        "high",
	model.ProtoVless:       "medium",
	model.ProtoVmess:       "medium",
	model.ProtoShadowsocks: "medium",
	model.ProtoTrojan:      "medium",
	model.ProtoShadowTLS:   "medium",
	model.ProtoAnyTLS:      "medium",
	model.ProtoSSH:         "low",
	model.ProtoTor:         "low",
}

func performanceClass(protocol string) string {
	if class, ok := protocolPerformance[protocol]; ok {
		return class
	}
	return "unknown"
}

func securityMetadata(s model.ParsedServer) map[string]string {
	meta := map[string]string{
		"encryption_level": encryptionLevel(s),
		"port_class":       portClass(s.Port),
	}
	if s.Type == model.ProtoShadowsocksShort || s.Type == model.ProtoShadowsocks {
		if s.Security == "none" || s.Security == "" {
			meta["vulnerability"] = "unauthenticated-cipher"
		}
	}
	return meta
}

func encryptionLevel(s model.ParsedServer) string {
	if s.Transport.TLSEnabled || s.Transport.RealityPublicKey != "" {
		return "transport-tls"
	}
	switch s.Type {
	case model.ProtoWireguard:
		return "native"
	case model.ProtoShadowsocksShort, model.ProtoShadowsocks:
		if s.Security != "" && s.Security != "none" {
			return "cipher"
		}
		return "none"
	default:
		return "none"
	}
}

func portClass(port int) string {
	switch {
	case port == 443:
		return "standard-tls"
	case port == 80:
		return "standard-http"
	case port < 1024:
		return "privileged"
	default:
		return "ephemeral"
	}
}

func boolOr(config map[string]any, key string, fallback bool) bool {
	if v, ok := config[key].(bool); ok {
		return v
	}
	return fallback
}
