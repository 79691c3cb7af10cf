// SPDX-License-Identifier: MIT

package export

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
	"github.com/sboxsync/sboxsync/internal/subscription/route"
)

func TestSingboxExporter_SkipsUnsupportedType(t *testing.T) {
	e := SingboxExporter{Dialect: route.ModernRouter{}}
	servers := []model.ParsedServer{{Type: "unknown-proto", Address: "1.2.3.4", Port: 1}}

	doc, warnings := e.Export(servers, nil, nil)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "unsupported outbound type")
	outbounds := doc["outbounds"].([]map[string]any)
	require.Len(t, outbounds, 0)
}

func TestSingboxExporter_SkipsMissingFieldsWithWarning(t *testing.T) {
	e := SingboxExporter{Dialect: route.ModernRouter{}}
	servers := []model.ParsedServer{{Type: model.ProtoTuic, Address: "1.2.3.4", Port: 443}}

	doc, warnings := e.Export(servers, nil, nil)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "missing required fields")
	outbounds := doc["outbounds"].([]map[string]any)
	require.Len(t, outbounds, 0)
}

func TestSingboxExporter_AppendsAutoSelector(t *testing.T) {
	e := SingboxExporter{Dialect: route.ModernRouter{}}
	servers := []model.ParsedServer{
		{Type: model.ProtoVless, Address: "a.example", Port: 443, UUID: "u1", Tag: "a"},
		{Type: model.ProtoVless, Address: "b.example", Port: 443, UUID: "u2", Tag: "b"},
	}

	doc, warnings := e.Export(servers, nil, nil)
	require.Empty(t, warnings)
	outbounds := doc["outbounds"].([]map[string]any)
	require.Len(t, outbounds, 3)

	auto := outbounds[2]
	require.Equal(t, "urltest", auto["type"])
	require.Equal(t, "auto", auto["tag"])
	require.ElementsMatch(t, []string{"a", "b"}, auto["outbounds"])
}

func TestSingboxExporter_LegacyDialectAddsSpecialOutbounds(t *testing.T) {
	e := SingboxExporter{Dialect: route.LegacyRouter{}}
	servers := []model.ParsedServer{
		{Type: model.ProtoVless, Address: "a.example", Port: 443, UUID: "u1", Tag: "a"},
	}

	doc, _ := e.Export(servers, nil, nil)
	outbounds := doc["outbounds"].([]map[string]any)
	// 1 proxy + 3 legacy specials (direct/block/dns-out) + 1 auto selector.
	require.Len(t, outbounds, 5)
}

func TestSingboxExporter_UsesProvidedRouteBlock(t *testing.T) {
	e := SingboxExporter{Dialect: route.ModernRouter{}}
	doc, _ := e.Export(nil, map[string]any{"final": "custom"}, nil)
	require.Equal(t, "custom", doc["route"].(map[string]any)["final"])
}

func TestRegistry_ResolvesModernAndLegacy(t *testing.T) {
	ctor, err := Registry.Lookup("modern")
	require.NoError(t, err)
	_, ok := ctor().(SingboxExporter)
	require.True(t, ok)

	ctor, err = Registry.Lookup("legacy")
	require.NoError(t, err)
	exp, ok := ctor().(SingboxExporter)
	require.True(t, ok)
	_, ok = exp.Dialect.(route.LegacyRouter)
	require.True(t, ok)
}
