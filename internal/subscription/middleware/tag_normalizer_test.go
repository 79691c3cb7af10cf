// SPDX-License-Identifier: MIT

package middleware

import (
	"testing"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

func TestTagNormalizer_PriorityChain(t *testing.T) {
	servers := []model.ParsedServer{
		{Type: "vless", Address: "a.example.com", Tag: "fallback-tag", Meta: map[string]string{"name": "US-01"}},
		{Type: "vless", Address: "b.example.com", Tag: "fallback-tag"},
		{Type: "vless", Address: ""},
	}

	n := NewTagNormalizer(nil)
	out, err := n.Process(servers, model.NewContext(model.ModeTolerant), nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if out[0].Tag != "US-01" {
		t.Errorf("tag 0 = %q, want meta.name", out[0].Tag)
	}
	if out[1].Tag != "fallback-tag" {
		t.Errorf("tag 1 = %q, want existing tag", out[1].Tag)
	}
	if out[2].Tag != "vless-"+stableID(servers[2]) {
		t.Errorf("tag 2 = %q, want type-stable-id fallback", out[2].Tag)
	}
}

func TestTagNormalizer_Uniqueness(t *testing.T) {
	servers := []model.ParsedServer{
		{Type: "vmess", Address: "dup.example.com", Tag: "same"},
		{Type: "vmess", Address: "dup.example.com", Tag: "same"},
		{Type: "vmess", Address: "dup.example.com", Tag: "same"},
	}

	n := NewTagNormalizer(nil)
	out, err := n.Process(servers, model.NewContext(model.ModeTolerant), nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	want := []string{"same", "same (2)", "same (3)"}
	for i, w := range want {
		if out[i].Tag != w {
			t.Errorf("tag %d = %q, want %q", i, out[i].Tag, w)
		}
	}
}

func TestSanitizeTag_ControlCharsAndWhitespace(t *testing.T) {
	got := sanitizeTag("US\x00 01\t\tfast  node\n")
	want := "US 01 fast node"
	if got != want {
		t.Errorf("sanitizeTag = %q, want %q", got, want)
	}
}

func TestSanitizeTag_EmptyFallsBackToUnnamed(t *testing.T) {
	if got := sanitizeTag("   \x00\x01  "); got != "unnamed-server" {
		t.Errorf("sanitizeTag of blank input = %q, want unnamed-server", got)
	}
}
