// SPDX-License-Identifier: MIT

package parse

import (
	"encoding/json"
	"fmt"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// JSONParser accepts either {"outbounds": [...]} (sing-box-like) or a bare
// JSON array, coercing each element field-by-field into a ParsedServer
// (spec §4.3).
type JSONParser struct{}

// NewJSONParser builds a JSONParser.
func NewJSONParser() *JSONParser { return &JSONParser{} }

type jsonOutboundsDoc struct {
	Outbounds []json.RawMessage `json:"outbounds"`
}

// Parse implements Parser.
func (p *JSONParser) Parse(raw []byte, ctx *model.PipelineContext) ([]model.ParsedServer, error) {
	var elements []json.RawMessage

	var doc jsonOutboundsDoc
	if err := json.Unmarshal(raw, &doc); err == nil && doc.Outbounds != nil {
		elements = doc.Outbounds
	} else {
		var bare []json.RawMessage
		if err := json.Unmarshal(raw, &bare); err != nil {
			return nil, recordOrAbort(ctx, "parse.json", "invalid JSON subscription document: "+err.Error(), nil)
		}
		elements = bare
	}

	var servers []model.ParsedServer
	for i, elem := range elements {
		server, err := decodeJSONOutbound(elem)
		if err != nil {
			if abortErr := recordOrAbort(ctx, "parse.json", err.Error(), map[string]any{"index": i}); abortErr != nil {
				return nil, abortErr
			}
			continue
		}
		servers = append(servers, server)
	}
	return servers, nil
}

type jsonOutbound struct {
	Type       string   `json:"type"`
	Tag        string   `json:"tag"`
	Server     string   `json:"server"`
	ServerPort int      `json:"server_port"`
	UUID       string   `json:"uuid"`
	Password   string   `json:"password"`
	Method     string   `json:"method"`
	Flow       string   `json:"flow"`
	Username   string   `json:"username"`
	PrivateKey string   `json:"private_key"`
	PeerKey    string   `json:"peer_public_key"`
	PSK        string   `json:"pre_shared_key"`
	LocalAddr  []string `json:"local_address"`
	MTU        int      `json:"mtu"`

	Transport *struct {
		Type string `json:"type"`
		Path string `json:"path"`
		Host string `json:"host"`
	} `json:"transport"`
	TLS *struct {
		Enabled    bool     `json:"enabled"`
		ServerName string   `json:"server_name"`
		ALPN       []string `json:"alpn"`
	} `json:"tls"`
}

func decodeJSONOutbound(raw json.RawMessage) (model.ParsedServer, error) {
	var ob jsonOutbound
	if err := json.Unmarshal(raw, &ob); err != nil {
		return model.ParsedServer{}, fmt.Errorf("invalid outbound object: %w", err)
	}
	if ob.Type == "" {
		return model.ParsedServer{}, fmt.Errorf("outbound missing 'type'")
	}
	protocol := ob.Type
	if protocol == "shadowsocks" {
		protocol = model.ProtoShadowsocks
	}

	s := model.ParsedServer{
		Type:          protocol,
		Address:       ob.Server,
		Port:          ob.ServerPort,
		UUID:          ob.UUID,
		Password:      ob.Password,
		Security:      ob.Method,
		Flow:          ob.Flow,
		Username:      ob.Username,
		PrivateKey:    ob.PrivateKey,
		PeerPublicKey: ob.PeerKey,
		PreSharedKey:  ob.PSK,
		LocalAddress:  ob.LocalAddr,
		MTU:           ob.MTU,
		Tag:           ob.Tag,
	}
	if ob.Transport != nil {
		s.Transport.Network = ob.Transport.Type
		s.Transport.Path = ob.Transport.Path
		if ob.Transport.Host != "" {
			s.MetaOrEmpty()["host"] = ob.Transport.Host
		}
	}
	if ob.TLS != nil {
		s.Transport.TLSEnabled = ob.TLS.Enabled
		s.Transport.SNI = ob.TLS.ServerName
		s.Transport.ALPN = ob.TLS.ALPN
	}
	return s, nil
}
