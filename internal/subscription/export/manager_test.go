// SPDX-License-Identifier: MIT

package export

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sboxsync/sboxsync/internal/subscription/middleware"
	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

func TestManager_AutoConfiguresOutboundFilter(t *testing.T) {
	profile := &model.FullProfile{
		Metadata: map[string]any{
			"client_profile": model.ClientProfile{ExcludeOutbounds: []string{"trojan"}},
		},
	}
	servers := []model.ParsedServer{
		{Type: model.ProtoVless, Address: "a.example", Port: 443, UUID: "u1", Tag: "a"},
		{Type: model.ProtoTrojan, Address: "b.example", Port: 443, Password: "pw", Tag: "b"},
	}

	ctx := model.NewContext(model.ModeTolerant)
	doc, _ := NewManager().Run(servers, ctx, profile, ManagerOptions{})

	outbounds := doc["outbounds"].([]map[string]any)
	var tags []string
	for _, o := range outbounds {
		if tag, ok := o["tag"].(string); ok {
			tags = append(tags, tag)
		}
	}
	require.Contains(t, tags, "a")
	require.NotContains(t, tags, "b")
}

// passthroughFilter is a manual middleware stand-in for "outbound_filter"
// that never drops anything, used to prove manual middleware wins over
// auto-configuration of the same role.
type passthroughFilter struct{}

func (passthroughFilter) Name() string { return "outbound_filter" }

func (passthroughFilter) Process(servers []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile) ([]model.ParsedServer, error) {
	return servers, nil
}

func TestManager_ManualMiddlewareTakesPrecedence(t *testing.T) {
	profile := &model.FullProfile{
		Metadata: map[string]any{
			"client_profile": model.ClientProfile{ExcludeOutbounds: []string{"vless"}},
		},
	}
	servers := []model.ParsedServer{
		{Type: model.ProtoVless, Address: "a.example", Port: 443, UUID: "u1", Tag: "a"},
	}

	ctx := model.NewContext(model.ModeTolerant)
	doc, _ := NewManager().Run(servers, ctx, profile, ManagerOptions{Manual: []middleware.Middleware{passthroughFilter{}}})

	outbounds := doc["outbounds"].([]map[string]any)
	var tags []string
	for _, o := range outbounds {
		if tag, ok := o["tag"].(string); ok {
			tags = append(tags, tag)
		}
	}
	require.Contains(t, tags, "a", "manual passthrough middleware must override the auto-configured outbound_filter")
}

func TestManager_LegacyVersionSelectsLegacyExporter(t *testing.T) {
	servers := []model.ParsedServer{
		{Type: model.ProtoVless, Address: "a.example", Port: 443, UUID: "u1", Tag: "a"},
	}

	ctx := model.NewContext(model.ModeTolerant)
	doc, _ := NewManager().Run(servers, ctx, nil, ManagerOptions{Version: "1.9.0"})

	outbounds := doc["outbounds"].([]map[string]any)
	var types []string
	for _, o := range outbounds {
		if ty, ok := o["type"].(string); ok {
			types = append(types, ty)
		}
	}
	require.Contains(t, types, "direct")
	require.Contains(t, types, "block")
}
