// SPDX-License-Identifier: MIT

package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

func TestEnrichment_AddsCoreMetadata(t *testing.T) {
	e := NewEnrichment(nil)
	ctx := model.NewContext(model.ModeTolerant)
	servers := []model.ParsedServer{
		{Type: model.ProtoVmess, Address: "example.com", Port: 443, UUID: "abc"},
	}

	out, err := e.Process(servers, ctx, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)

	meta := out[0].Meta
	require.Contains(t, meta, "enriched_at")
	require.Contains(t, meta, "server_id")
	require.Equal(t, ctx.TraceID, meta["trace_id"])
	require.Equal(t, "medium", meta["performance_class"])
	require.Equal(t, "none", meta["encryption_level"])
}

func TestEnrichment_PerformanceClassByProtocol(t *testing.T) {
	e := NewEnrichment(nil)
	ctx := model.NewContext(model.ModeTolerant)
	servers := []model.ParsedServer{
		{Type: model.ProtoWireguard, Address: "1.2.3.4", Port: 51820},
		{Type: model.ProtoSSH, Address: "1.2.3.4", Port: 22},
		{Type: "unknown-proto", Address: "1.2.3.4", Port: 1},
	}

	out, err := e.Process(servers, ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "high", out[0].Meta["performance_class"])
	require.Equal(t, "low", out[1].Meta["performance_class"])
	require.Equal(t, "unknown", out[2].Meta["performance_class"])
}

func TestEnrichment_UnauthenticatedShadowsocksFlagged(t *testing.T) {
	e := NewEnrichment(nil)
	ctx := model.NewContext(model.ModeTolerant)
	servers := []model.ParsedServer{
		{Type: model.ProtoShadowsocks, Address: "1.2.3.4", Port: 8388, Security: "none", Password: "x"},
	}

	out, err := e.Process(servers, ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "unauthenticated-cipher", out[0].Meta["vulnerability"])
}

func TestEnrichment_SubEnrichersToggleable(t *testing.T) {
	e := NewEnrichment(map[string]any{"enable_geo": false, "enable_performance_class": false, "enable_security_metadata": false})
	ctx := model.NewContext(model.ModeTolerant)
	servers := []model.ParsedServer{{Type: model.ProtoVless, Address: "x.com", Port: 443, UUID: "u"}}

	out, err := e.Process(servers, ctx, nil)
	require.NoError(t, err)
	require.NotContains(t, out[0].Meta, "geo")
	require.NotContains(t, out[0].Meta, "performance_class")
	require.NotContains(t, out[0].Meta, "encryption_level")
}

func TestEnrichment_StableServerIDForIdenticalEndpoint(t *testing.T) {
	e := NewEnrichment(nil)
	ctx := model.NewContext(model.ModeTolerant)
	server := model.ParsedServer{Type: model.ProtoTrojan, Address: "dup.example.com", Port: 443, Password: "p"}

	out1, _ := e.Process([]model.ParsedServer{server}, ctx, nil)
	out2, _ := e.Process([]model.ParsedServer{server}, ctx, nil)
	require.Equal(t, out1[0].Meta["server_id"], out2[0].Meta["server_id"])
}
