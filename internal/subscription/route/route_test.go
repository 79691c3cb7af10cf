// SPDX-License-Identifier: MIT

package route

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

func TestIsLegacy(t *testing.T) {
	cases := map[string]bool{
		"":        false,
		"1.11.0":  false,
		"v1.11.0": false,
		"1.12.3":  false,
		"1.10.9":  true,
		"v1.9.0":  true,
		"0.9.0":   true,
		"garbage": false,
	}
	for version, want := range cases {
		if got := IsLegacy(version); got != want {
			t.Errorf("IsLegacy(%q) = %v, want %v", version, got, want)
		}
	}
}

func TestSelect_DefaultsToModern(t *testing.T) {
	_, ok := Select("").(ModernRouter)
	require.True(t, ok)
}

func TestSelect_PicksLegacyBelowBoundary(t *testing.T) {
	_, ok := Select("1.10.0").(LegacyRouter)
	require.True(t, ok)
}

func TestModernRouter_NoDirectBlockDNSOutbound(t *testing.T) {
	r := ModernRouter{}
	result := r.BuildRoute([]string{"vless-1"}, nil)
	require.Equal(t, "auto", result["final"])
	for _, rule := range result["rules"].([]map[string]any) {
		require.NotContains(t, rule, "outbound")
	}
}

func TestModernRouter_ClientProfileFinalOverride(t *testing.T) {
	profile := &model.FullProfile{
		Metadata: map[string]any{
			"client_profile": model.ClientProfile{Routing: model.RoutingOverrides{"final": "my-selector"}},
		},
	}
	r := ModernRouter{}
	result := r.BuildRoute(nil, profile)
	require.Equal(t, "my-selector", result["final"])
}

func TestLegacyOutbounds_IncludesDirectBlockDNSOut(t *testing.T) {
	outbounds := LegacyOutbounds()
	require.Len(t, outbounds, 3)
}
