// SPDX-License-Identifier: MIT

package postprocess

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

func TestTagFilter_ExactExclude(t *testing.T) {
	f := NewTagFilter(map[string]any{"exclude_tags": []string{"blocked"}})
	servers := []model.ParsedServer{{Tag: "ok"}, {Tag: "blocked"}}

	out, err := f.Process(servers, nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "ok", out[0].Tag)
}

func TestTagFilter_RegexInclude(t *testing.T) {
	f := NewTagFilter(map[string]any{"include_patterns": []string{"^US-"}})
	servers := []model.ParsedServer{{Tag: "US-01"}, {Tag: "DE-01"}}

	out, err := f.Process(servers, nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "US-01", out[0].Tag)
}

func TestTagFilter_RequireTagsDropsUntagged(t *testing.T) {
	f := NewTagFilter(map[string]any{"require_tags": true})
	servers := []model.ParsedServer{{Tag: "ok"}, {Tag: ""}}

	out, err := f.Process(servers, nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestTagFilter_FallbackExcludeDropsUntagged(t *testing.T) {
	f := NewTagFilter(map[string]any{"fallback_mode": "exclude"})
	servers := []model.ParsedServer{{Tag: ""}}

	out, err := f.Process(servers, nil, nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestTagFilter_CaseInsensitiveByDefault(t *testing.T) {
	f := NewTagFilter(map[string]any{"include_tags": []string{"fast"}})
	servers := []model.ParsedServer{{Tag: "FAST"}}

	out, err := f.Process(servers, nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
}
