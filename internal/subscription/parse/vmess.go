// SPDX-License-Identifier: MIT

package parse

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// vmessShare is the de facto V2Ray "share link" JSON body carried inside a
// vmess:// URI (base64-encoded), per spec §4.3/§6.
type vmessShare struct {
	V    string `json:"v"`
	PS   string `json:"ps"`
	Add  string `json:"add"`
	Port any    `json:"port"`
	ID   string `json:"id"`
	Aid  any    `json:"aid"`
	Net  string `json:"net"`
	Type string `json:"type"`
	Host string `json:"host"`
	Path string `json:"path"`
	TLS  string `json:"tls"`
	SNI  string `json:"sni"`
	SCY  string `json:"scy"`
	FP   string `json:"fp"`
	ALPN string `json:"alpn"`
}

func parseVmess(u *url.URL) (model.ParsedServer, error) {
	// vmess://BASE64(json) — the body lives wherever url.Parse put it
	// (Opaque for "vmess://eyJ..." with no further '/', Host+Path otherwise).
	body := u.Opaque
	if body == "" {
		body = u.Host + u.Path
	}
	decoded, err := decodeFlexibleBase64(body)
	if err != nil {
		return model.ParsedServer{}, fmt.Errorf("vmess: invalid base64 payload: %w", err)
	}

	var share vmessShare
	if err := json.Unmarshal(decoded, &share); err != nil {
		return model.ParsedServer{}, fmt.Errorf("vmess: invalid JSON payload: %w", err)
	}

	port, err := vmessPort(share.Port)
	if err != nil {
		return model.ParsedServer{}, fmt.Errorf("vmess: %w", err)
	}

	s := model.ParsedServer{
		Type:     model.ProtoVmess,
		Address:  share.Add,
		Port:     port,
		UUID:     share.ID,
		Security: share.SCY,
		Tag:      share.PS,
	}
	s.Transport.Network = share.Net
	s.Transport.Path = share.Path
	s.Transport.SNI = share.SNI
	s.Transport.UTLSFingerprint = share.FP
	s.Transport.TLSEnabled = share.TLS == "tls" || share.TLS == "reality"
	if share.ALPN != "" {
		s.Transport.ALPN = []string{share.ALPN}
	}
	if share.Host != "" {
		s.MetaOrEmpty()["host"] = share.Host
	}
	return s, nil
}

func vmessPort(raw any) (int, error) {
	switch v := raw.(type) {
	case string:
		return parsePort(v)
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("invalid port field type %T", raw)
	}
}
