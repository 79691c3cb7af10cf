// SPDX-License-Identifier: MIT

package parse

import (
	"fmt"

	"github.com/oasdiff/yaml"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// ClashParser walks a Clash-format "proxies:" list, dispatching each entry
// by its "type" discriminator. Unknown types are skipped with a non-fatal
// error appended to context, even in strict mode per spec §4.3.
type ClashParser struct{}

// NewClashParser builds a ClashParser.
func NewClashParser() *ClashParser { return &ClashParser{} }

type clashDoc struct {
	Proxies []map[string]any `yaml:"proxies"`
}

// Parse implements Parser.
func (p *ClashParser) Parse(raw []byte, ctx *model.PipelineContext) ([]model.ParsedServer, error) {
	var doc clashDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, recordOrAbort(ctx, "parse.clash", "invalid Clash YAML document: "+err.Error(), nil)
	}

	var servers []model.ParsedServer
	for i, proxy := range doc.Proxies {
		server, err := decodeClashProxy(proxy)
		if err != nil {
			// Unknown/malformed proxy types are always non-fatal (spec §4.3),
			// regardless of ctx.Mode — they don't go through recordOrAbort.
			pErr := model.NewError(model.KindParse, "parse.clash", err.Error())
			pErr.Aux = map[string]any{"index": i}
			ctx.AddError(pErr)
			continue
		}
		servers = append(servers, server)
	}
	return servers, nil
}

func decodeClashProxy(proxy map[string]any) (model.ParsedServer, error) {
	typ, _ := proxy["type"].(string)
	protocol, ok := clashTypeMap[typ]
	if !ok {
		return model.ParsedServer{}, fmt.Errorf("unknown clash proxy type %q", typ)
	}

	name, _ := proxy["name"].(string)
	server, _ := proxy["server"].(string)
	port := clashInt(proxy["port"])

	s := model.ParsedServer{
		Type:    protocol,
		Address: server,
		Port:    port,
		Tag:     name,
	}
	meta := s.MetaOrEmpty()

	if v, ok := proxy["password"].(string); ok {
		s.Password = v
	}
	if v, ok := proxy["uuid"].(string); ok {
		s.UUID = v
	}
	if v, ok := proxy["cipher"].(string); ok {
		s.Security = v
	}
	if v, ok := proxy["flow"].(string); ok {
		s.Flow = v
	}
	if v, ok := proxy["network"].(string); ok {
		s.Transport.Network = v
	}
	if v, ok := proxy["sni"].(string); ok {
		s.Transport.SNI = v
	}
	if v, ok := proxy["servername"].(string); ok && s.Transport.SNI == "" {
		s.Transport.SNI = v
	}
	if v, ok := proxy["tls"].(bool); ok {
		s.Transport.TLSEnabled = v
	}
	if v, ok := proxy["client-fingerprint"].(string); ok {
		s.Transport.UTLSFingerprint = v
	}
	if v, ok := proxy["udp"].(bool); ok && v {
		meta["udp"] = "true"
	}
	if opts, ok := proxy["ws-opts"].(map[string]any); ok {
		if p, ok := opts["path"].(string); ok {
			s.Transport.Path = p
		}
	}
	if opts, ok := proxy["grpc-opts"].(map[string]any); ok {
		if svc, ok := opts["grpc-service-name"].(string); ok {
			meta["grpc-service-name"] = svc
		}
	}
	if v, ok := proxy["private-key"].(string); ok {
		s.PrivateKey = v
	}
	if v, ok := proxy["public-key"].(string); ok {
		s.PeerPublicKey = v
	}
	if addrs, ok := proxy["ip"].(string); ok && addrs != "" {
		s.LocalAddress = []string{addrs}
	}

	return s, nil
}

var clashTypeMap = map[string]string{
	"ss":          model.ProtoShadowsocksShort,
	"shadowsocks": model.ProtoShadowsocks,
	"vmess":       model.ProtoVmess,
	"vless":       model.ProtoVless,
	"trojan":      model.ProtoTrojan,
	"wireguard":   model.ProtoWireguard,
	"hysteria2":   model.ProtoHysteria2,
	"tuic":        model.ProtoTuic,
	"ssh":         model.ProtoSSH,
}

func clashInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
