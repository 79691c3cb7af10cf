// SPDX-License-Identifier: MIT

// Package route implements the routing emitter of spec §4.9: it produces
// the sing-box "route" block in one of two dialects. Dialect choice never
// spawns an external process to probe the target binary's version (the
// deprecated path is dropped per the redesign note in spec §9) — it is
// driven only by an explicit version string, falling back to modern.
package route

import (
	"strings"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// Router builds the route block for a given outbound tag list.
type Router interface {
	BuildRoute(outboundTags []string, profile *model.FullProfile) map[string]any
}

// Select picks a Router for the given target version string. An empty
// version defaults to the modern dialect.
func Select(version string) Router {
	if IsLegacy(version) {
		return LegacyRouter{}
	}
	return ModernRouter{}
}

// IsLegacy reports whether version targets a sing-box release before
// v1.11.0, the dialect boundary from spec §4.9.
func IsLegacy(version string) bool {
	if version == "" {
		return false
	}
	major, minor, ok := parseMajorMinor(version)
	if !ok {
		return false
	}
	return major < 1 || (major == 1 && minor < 11)
}

func parseMajorMinor(version string) (int, int, bool) {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := atoiLoose(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err := atoiLoose(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}

func atoiLoose(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errNotNumeric
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errNotNumeric
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
