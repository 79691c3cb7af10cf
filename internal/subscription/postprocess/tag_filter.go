// SPDX-License-Identifier: MIT

package postprocess

import (
	"regexp"
	"strings"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// TagFilterFallback decides what happens to a server with no tag at all.
type TagFilterFallback string

const (
	TagFallbackInclude TagFilterFallback = "include"
	TagFallbackExclude TagFilterFallback = "exclude"
)

// TagFilter includes/excludes servers by exact tag and regex pattern
// lists (spec §4.6).
type TagFilter struct {
	includeExact    map[string]struct{}
	excludeExact    map[string]struct{}
	includePatterns []*regexp.Regexp
	excludePatterns []*regexp.Regexp
	caseSensitive   bool
	requireTags     bool
	fallback        TagFilterFallback
}

// NewTagFilter builds a TagFilter from config keys: include_tags,
// exclude_tags ([]string exact match), include_patterns, exclude_patterns
// ([]string regex), case_sensitive (bool), require_tags (bool),
// fallback_mode ("include"|"exclude", default include).
func NewTagFilter(config map[string]any) *TagFilter {
	caseSensitive, _ := config["case_sensitive"].(bool)
	requireTags, _ := config["require_tags"].(bool)

	f := &TagFilter{
		caseSensitive: caseSensitive,
		requireTags:   requireTags,
		fallback:      TagFallbackInclude,
	}
	if v, ok := config["fallback_mode"].(string); ok && v == string(TagFallbackExclude) {
		f.fallback = TagFallbackExclude
	}

	f.includeExact = f.exactSet(stringListFrom(config, "include_tags"))
	f.excludeExact = f.exactSet(stringListFrom(config, "exclude_tags"))
	f.includePatterns = compilePatterns(stringListFrom(config, "include_patterns"))
	f.excludePatterns = compilePatterns(stringListFrom(config, "exclude_patterns"))
	return f
}

// Name implements Postprocessor.
func (*TagFilter) Name() string { return "tag_filter" }

// Process implements Postprocessor.
func (f *TagFilter) Process(servers []model.ParsedServer, _ *model.PipelineContext, _ *model.FullProfile) ([]model.ParsedServer, error) {
	var out []model.ParsedServer
	for _, s := range servers {
		if f.keep(s.Tag) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *TagFilter) keep(tag string) bool {
	if strings.TrimSpace(tag) == "" {
		if f.requireTags {
			return false
		}
		return f.fallback == TagFallbackInclude
	}

	compare := tag
	if !f.caseSensitive {
		compare = strings.ToLower(tag)
	}

	if f.matchesExact(compare, f.excludeExact) || f.matchesPattern(tag, f.excludePatterns) {
		return false
	}

	hasIncludeRules := len(f.includeExact) > 0 || len(f.includePatterns) > 0
	if !hasIncludeRules {
		return true
	}
	return f.matchesExact(compare, f.includeExact) || f.matchesPattern(tag, f.includePatterns)
}

func (f *TagFilter) matchesExact(compare string, set map[string]struct{}) bool {
	_, ok := set[compare]
	return ok
}

func (f *TagFilter) matchesPattern(tag string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(tag) {
			return true
		}
	}
	return false
}

func (f *TagFilter) exactSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if !f.caseSensitive {
			v = strings.ToLower(v)
		}
		set[v] = struct{}{}
	}
	return set
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			out = append(out, re)
		}
	}
	return out
}

func stringListFrom(config map[string]any, key string) []string {
	raw, ok := config[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
