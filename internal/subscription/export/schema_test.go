// SPDX-License-Identifier: MIT

package export

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDocument_AcceptsWellFormedDocument(t *testing.T) {
	doc := map[string]any{
		"outbounds": []map[string]any{
			{"type": "vless", "tag": "a"},
		},
		"route": map[string]any{"final": "auto"},
	}
	require.NoError(t, ValidateDocument(doc))
}

func TestValidateDocument_RejectsOutboundMissingTag(t *testing.T) {
	doc := map[string]any{
		"outbounds": []map[string]any{
			{"type": "vless"},
		},
		"route": map[string]any{},
	}
	require.Error(t, ValidateDocument(doc))
}

func TestValidateDocument_RejectsMissingRoute(t *testing.T) {
	doc := map[string]any{
		"outbounds": []map[string]any{},
	}
	require.Error(t, ValidateDocument(doc))
}
