// SPDX-License-Identifier: MIT

package model

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// InboundType enumerates the local listener types an InboundProfile may
// describe (spec §3).
type InboundType string

const (
	InboundSocks    InboundType = "socks"
	InboundHTTP     InboundType = "http"
	InboundTun      InboundType = "tun"
	InboundTproxy   InboundType = "tproxy"
	InboundSSH      InboundType = "ssh"
	InboundDNS      InboundType = "dns"
	InboundReality  InboundType = "reality-inbound"
	InboundShadowTLS InboundType = "shadowtls"
)

// InboundProfile describes a local listener to include in the emitted
// client config. The default posture is localhost-only (spec §3 invariant).
type InboundProfile struct {
	Type    InboundType
	Listen  string
	Port    int
	Options map[string]any
}

// DefaultListen is used when InboundProfile.Listen is left empty.
const DefaultListen = "127.0.0.1"

// Validate enforces the bind-address and port invariants from spec §3.
func (p InboundProfile) Validate() error {
	listen := p.Listen
	if listen == "" {
		listen = DefaultListen
	}
	if !isLoopbackOrPrivate(listen) {
		return fmt.Errorf("inbound %q: bind address %q must be loopback or a private range", p.Type, listen)
	}
	if p.Port != 0 && (p.Port < 1024 || p.Port > 65535) {
		return fmt.Errorf("inbound %q: port %d must be in range 1024-65535", p.Type, p.Port)
	}
	return nil
}

// EffectiveListen returns the bind address to use, applying the default.
func (p InboundProfile) EffectiveListen() string {
	if p.Listen == "" {
		return DefaultListen
	}
	return p.Listen
}

func isLoopbackOrPrivate(addr string) bool {
	if addr == "127.0.0.1" || addr == "::1" || addr == "localhost" {
		return true
	}
	ip := net.ParseIP(strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]"))
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}

// RoutingOverrides is the free-form routing-override dictionary on
// ClientProfile, notably carrying a "final" action/tag override.
type RoutingOverrides map[string]any

// Final returns the "final" override if present.
func (r RoutingOverrides) Final() (string, bool) {
	v, ok := r["final"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ClientProfile aggregates inbounds, DNS mode, routing overrides, and the
// set of outbound protocol tags to drop from the emitted config (spec §3).
type ClientProfile struct {
	Inbounds         []InboundProfile
	DNSMode          string
	Routing          RoutingOverrides
	ExcludeOutbounds []string
}

// ExcludeSet returns ExcludeOutbounds as a lookup set.
func (c ClientProfile) ExcludeSet() map[string]struct{} {
	out := make(map[string]struct{}, len(c.ExcludeOutbounds))
	for _, t := range c.ExcludeOutbounds {
		out[t] = struct{}{}
	}
	return out
}

// SubscriptionEntry pairs a source with user-facing enable/priority state,
// used inside FullProfile.
type SubscriptionEntry struct {
	Source   SubscriptionSource
	Enabled  bool
	Priority int
}

// FilterRules describes the include/exclude tag and address filters on a
// FullProfile.
type FilterRules struct {
	IncludeTags    []string
	ExcludeTags    []string
	ExcludeAddrs   []string
	OnlyEnabled    bool
}

// RoutingRules describes FullProfile-level routing configuration.
type RoutingRules struct {
	DefaultAction string
	BySource      map[string]string
	CustomRules   []map[string]any
}

// ExportSettings describes FullProfile-level export configuration.
type ExportSettings struct {
	Dialect          string // target singbox dialect version string, or "" for modern default
	OutboundTemplate string
	InboundTemplate  string
	OutputFile       string
}

// FullProfile is the user-facing end-to-end configuration object (spec §3).
type FullProfile struct {
	ID            string
	Subscriptions []SubscriptionEntry
	Filters       FilterRules
	Routing       RoutingRules
	Export        ExportSettings
	Agent         map[string]any
	UI            map[string]any
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MiddlewareConfig extracts a named middleware/postprocessor's profile-level
// configuration override from Metadata, following the profile-aware
// middleware contract in spec §4.5/§9.
func (p *FullProfile) MiddlewareConfig(name string) (map[string]any, bool) {
	if p == nil || p.Metadata == nil {
		return nil, false
	}
	v, ok := p.Metadata[name]
	if !ok {
		return nil, false
	}
	cfg, ok := v.(map[string]any)
	return cfg, ok
}

// EmbeddedClientProfile extracts the ClientProfile a FullProfile may carry
// in its metadata under the "client_profile" key.
func (p *FullProfile) EmbeddedClientProfile() (ClientProfile, bool) {
	if p == nil || p.Metadata == nil {
		return ClientProfile{}, false
	}
	v, ok := p.Metadata["client_profile"]
	if !ok {
		return ClientProfile{}, false
	}
	cp, ok := v.(ClientProfile)
	return cp, ok
}
