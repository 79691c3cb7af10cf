// SPDX-License-Identifier: MIT

// Package selection implements the final selector stage (spec §4.8):
// given the processed server list plus user routes and exclusions, it
// removes excluded servers while stable-preserving the order established
// by postprocessing.
package selection

import (
	"fmt"
	"strings"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// Select applies ctx.UserRoutes (address allow-list, when non-empty) and
// ctx.Exclusions (address deny-list) to servers, preserving their
// relative order. In strict mode an empty result is an error; in
// tolerant mode it is an empty success (spec §4.8).
func Select(servers []model.ParsedServer, ctx *model.PipelineContext) ([]model.ParsedServer, error) {
	exclusions := make(map[string]struct{}, len(ctx.Exclusions))
	for _, addr := range ctx.Exclusions {
		exclusions[strings.ToLower(addr)] = struct{}{}
	}
	routes := make(map[string]struct{}, len(ctx.UserRoutes))
	for _, addr := range ctx.UserRoutes {
		routes[strings.ToLower(addr)] = struct{}{}
	}

	var out []model.ParsedServer
	for _, s := range servers {
		addr := strings.ToLower(s.Address)
		if _, excluded := exclusions[addr]; excluded {
			continue
		}
		if len(routes) > 0 {
			if _, routed := routes[addr]; !routed {
				continue
			}
		}
		out = append(out, s)
	}

	if len(out) == 0 {
		if ctx.Mode == model.ModeStrict {
			return nil, fmt.Errorf("select: no servers remain after exclusions")
		}
		return nil, nil
	}
	return out, nil
}
