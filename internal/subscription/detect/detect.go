// SPDX-License-Identifier: MIT

// Package detect implements the format detector from spec §4.3: given raw
// bytes and a declared source-type hint, pick the parser name to run.
package detect

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// Known parser names, matching the names registered in package parse.
const (
	ParserBase64  = "base64"
	ParserJSON    = "json"
	ParserURIList = "uri_list"
	ParserClash   = "clash"
)

// knownSchemes lists the URI schemes recognized by the base64/uri-list
// parser (spec §4.3/§6).
var knownSchemes = []string{
	"vless://", "vmess://", "trojan://", "ss://", "shadowsocks://",
	"wireguard://", "hysteria2://", "tuic://", "shadowtls://",
	"anytls://", "tor://", "ssh://",
}

// Detect resolves a source-type hint into a concrete parser name. When hint
// is model.SourceAuto it sniffs the content per spec §4.3.
func Detect(hint model.SourceType, raw []byte) string {
	switch hint {
	case model.SourceURLJSON, model.SourceFileJSON:
		return ParserJSON
	case model.SourceURLBase64:
		return ParserBase64
	case model.SourceURIList:
		return ParserURIList
	case model.SourceClash:
		return ParserClash
	default:
		return sniff(raw)
	}
}

func sniff(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ParserURIList
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		return ParserJSON
	}

	text := string(trimmed)
	if looksLikeClash(text) {
		return ParserClash
	}

	if looksLikeURIList(text) {
		return ParserURIList
	}

	if looksLikeBase64(trimmed) {
		return ParserBase64
	}

	return ParserURIList
}

func looksLikeClash(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "proxies:") || strings.HasPrefix(trimmedLine, "proxy-groups:") {
			return true
		}
	}
	return false
}

func looksLikeURIList(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, "#") {
			continue
		}
		for _, scheme := range knownSchemes {
			if strings.HasPrefix(trimmedLine, scheme) {
				return true
			}
		}
		return false
	}
	return false
}

const base64SniffThreshold = 16

func looksLikeBase64(trimmed []byte) bool {
	if len(trimmed) <= base64SniffThreshold {
		return false
	}
	compact := bytes.Join(bytes.Fields(trimmed), nil)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if decoded, err := enc.DecodeString(string(compact)); err == nil {
			return looksLikeURIList(string(decoded)) || len(decoded) > 0
		}
	}
	return false
}
