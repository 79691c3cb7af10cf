// SPDX-License-Identifier: MIT

package selection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

func TestSelect_RemovesExclusions(t *testing.T) {
	ctx := model.NewContext(model.ModeTolerant)
	ctx.Exclusions = []string{"bad.example.com"}
	servers := []model.ParsedServer{{Address: "good.example.com"}, {Address: "bad.example.com"}}

	out, err := Select(servers, ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "good.example.com", out[0].Address)
}

func TestSelect_PreservesOrder(t *testing.T) {
	ctx := model.NewContext(model.ModeTolerant)
	servers := []model.ParsedServer{{Address: "c"}, {Address: "a"}, {Address: "b"}}

	out, err := Select(servers, ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a", "b"}, []string{out[0].Address, out[1].Address, out[2].Address})
}

func TestSelect_StrictEmptyIsError(t *testing.T) {
	ctx := model.NewContext(model.ModeStrict)
	ctx.Exclusions = []string{"only.example.com"}
	servers := []model.ParsedServer{{Address: "only.example.com"}}

	_, err := Select(servers, ctx)
	require.Error(t, err)
}

func TestSelect_TolerantEmptyIsSuccess(t *testing.T) {
	ctx := model.NewContext(model.ModeTolerant)
	ctx.Exclusions = []string{"only.example.com"}
	servers := []model.ParsedServer{{Address: "only.example.com"}}

	out, err := Select(servers, ctx)
	require.NoError(t, err)
	require.Empty(t, out)
}
