// SPDX-License-Identifier: MIT

package middleware

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// TagNormalizer derives a human-readable, unique tag per server (spec
// §4.5/§4.7). Priority chain: meta.name -> meta.label -> meta.tag ->
// existing tag -> "<type>-<address>" -> "<type>-<stable-id>". Control
// characters are stripped, whitespace collapsed, empty results replaced
// with "unnamed-server", and uniqueness is enforced with " (2)", " (3)", …
// suffixes.
type TagNormalizer struct {
	config map[string]any
}

// NewTagNormalizer builds a TagNormalizer.
func NewTagNormalizer(config map[string]any) *TagNormalizer {
	return &TagNormalizer{config: config}
}

// Name implements Middleware.
func (*TagNormalizer) Name() string { return "tag_normalizer" }

// Process implements Middleware.
func (t *TagNormalizer) Process(servers []model.ParsedServer, ctx *model.PipelineContext, profile *model.FullProfile) ([]model.ParsedServer, error) {
	seen := make(map[string]int, len(servers))
	out := make([]model.ParsedServer, len(servers))

	for i, s := range servers {
		tag := sanitizeTag(candidateTag(s))
		tag = dedupe(tag, seen)
		s.Tag = tag
		out[i] = s
	}
	return out, nil
}

func candidateTag(s model.ParsedServer) string {
	if s.Meta != nil {
		for _, key := range []string{"name", "label", "tag"} {
			if v := strings.TrimSpace(s.Meta[key]); v != "" {
				return v
			}
		}
	}
	if strings.TrimSpace(s.Tag) != "" {
		return s.Tag
	}
	if s.Address != "" {
		return fmt.Sprintf("%s-%s", s.Type, s.Address)
	}
	return fmt.Sprintf("%s-%s", s.Type, stableID(s))
}

func stableID(s model.ParsedServer) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s://%s:%d", s.Type, s.Address, s.Port)))
	return hex.EncodeToString(sum[:])[:8]
}

// sanitizeTag strips control characters, collapses whitespace, and
// normalizes to NFC so visually-identical tags from different sources
// compare equal.
func sanitizeTag(raw string) string {
	normalized := norm.NFC.String(raw)

	var b strings.Builder
	lastWasSpace := false
	for _, r := range normalized {
		// Whitespace is checked first: tab and newline are also control
		// characters, and they collapse to a space rather than vanish.
		if unicode.IsSpace(r) {
			if lastWasSpace {
				continue
			}
			lastWasSpace = true
			b.WriteRune(' ')
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		lastWasSpace = false
		b.WriteRune(r)
	}

	result := strings.TrimSpace(b.String())
	if result == "" {
		return "unnamed-server"
	}
	return result
}

// dedupe returns tag unchanged the first time it's seen, and "tag (2)",
// "tag (3)", … on each subsequent collision, also guarding against a
// generated suffix colliding with an unrelated tag that already exists.
func dedupe(tag string, seen map[string]int) string {
	seen[tag]++
	if seen[tag] == 1 {
		return tag
	}

	for n := seen[tag]; ; n++ {
		candidate := tag + " (" + strconv.Itoa(n) + ")"
		if seen[candidate] == 0 {
			seen[candidate] = 1
			return candidate
		}
	}
}
