// SPDX-License-Identifier: MIT

package parse

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// uriSchemes maps a URI scheme to the protocol tag it decodes to.
var uriSchemes = map[string]string{
	"vless":       model.ProtoVless,
	"vmess":       model.ProtoVmess,
	"trojan":      model.ProtoTrojan,
	"ss":          model.ProtoShadowsocksShort,
	"shadowsocks": model.ProtoShadowsocks,
	"wireguard":   model.ProtoWireguard,
	"hysteria2":   model.ProtoHysteria2,
	"tuic":        model.ProtoTuic,
	"shadowtls":   model.ProtoShadowTLS,
	"anytls":      model.ProtoAnyTLS,
	"tor":         model.ProtoTor,
	"ssh":         model.ProtoSSH,
}

// URIListParser parses a newline-delimited list of proxy URIs (spec §4.3,
// §6). When base64 is true the whole payload is base64-decoded first.
type URIListParser struct {
	base64 bool
}

// NewURIListParser builds a URIListParser. base64 selects the
// "url_base64"/"base64" variant; false is the plain "uri_list" variant.
func NewURIListParser(base64 bool) *URIListParser {
	return &URIListParser{base64: base64}
}

// Parse implements Parser.
func (p *URIListParser) Parse(raw []byte, ctx *model.PipelineContext) ([]model.ParsedServer, error) {
	text := string(raw)
	if p.base64 {
		decoded, err := decodeFlexibleBase64(strings.TrimSpace(text))
		if err != nil {
			return nil, recordOrAbort(ctx, "parse.base64", "invalid base64 payload: "+err.Error(), nil)
		}
		text = string(decoded)
	}

	var servers []model.ParsedServer
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		server, err := parseURILine(line)
		if err != nil {
			if abortErr := recordOrAbort(ctx, "parse.uri_list", err.Error(), map[string]any{"line": i}); abortErr != nil {
				return nil, abortErr
			}
			continue
		}
		servers = append(servers, server)
	}
	return servers, nil
}

func decodeFlexibleBase64(s string) ([]byte, error) {
	compact := strings.Join(strings.Fields(s), "")
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if decoded, err := enc.DecodeString(compact); err == nil {
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("no base64 variant decoded payload")
}

func parseURILine(line string) (model.ParsedServer, error) {
	u, err := url.Parse(line)
	if err != nil {
		return model.ParsedServer{}, fmt.Errorf("malformed URI: %w", err)
	}
	protocol, ok := uriSchemes[u.Scheme]
	if !ok {
		return model.ParsedServer{}, fmt.Errorf("unknown protocol scheme %q", u.Scheme)
	}

	if protocol == model.ProtoVmess {
		return parseVmess(u)
	}
	if protocol == model.ProtoShadowsocksShort {
		return parseShadowsocks(u)
	}
	return parseGenericURI(u, protocol)
}

// parseShadowsocks supports SIP002 (ss://BASE64(method:pw)@host:port#tag)
// and the legacy fully-encoded form (ss://BASE64(method:pw@host:port)#tag).
func parseShadowsocks(u *url.URL) (model.ParsedServer, error) {
	tag := tagFromFragment(u)

	if u.User == nil {
		// Legacy: everything (userinfo and host) is inside one base64 blob,
		// which url.Parse leaves in Opaque ("ss:BLOB") or Host+Path ("ss://BLOB").
		blob := u.Opaque
		if blob == "" {
			blob = u.Host + u.Path
		}
		decoded, err := decodeFlexibleBase64(blob)
		if err != nil {
			return model.ParsedServer{}, fmt.Errorf("ss: invalid legacy payload: %w", err)
		}
		at := strings.LastIndex(string(decoded), "@")
		if at < 0 {
			return model.ParsedServer{}, fmt.Errorf("ss: legacy payload missing '@'")
		}
		methodPW := string(decoded[:at])
		hostPort := string(decoded[at+1:])
		method, pw, ok := strings.Cut(methodPW, ":")
		if !ok {
			return model.ParsedServer{}, fmt.Errorf("ss: legacy payload missing method:password")
		}
		host, portStr, err := splitHostPort(hostPort)
		if err != nil {
			return model.ParsedServer{}, err
		}
		port, err := parsePort(portStr)
		if err != nil {
			return model.ParsedServer{}, err
		}
		return model.ParsedServer{
			Type: model.ProtoShadowsocksShort, Address: host, Port: port,
			Security: method, Password: pw, Tag: tag,
		}, nil
	}

	userinfo := u.User.Username()
	decoded, err := decodeFlexibleBase64(userinfo)
	if err != nil {
		// Some generators leave method:password unencoded.
		decoded = []byte(userinfo)
	}
	method, pw, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return model.ParsedServer{}, fmt.Errorf("ss: missing method:password")
	}
	port, err := parsePort(u.Port())
	if err != nil {
		return model.ParsedServer{}, err
	}
	return model.ParsedServer{
		Type: model.ProtoShadowsocksShort, Address: u.Hostname(), Port: port,
		Security: method, Password: pw, Tag: tag,
	}, nil
}

func parseGenericURI(u *url.URL, protocol string) (model.ParsedServer, error) {
	port, err := parsePort(u.Port())
	if err != nil {
		return model.ParsedServer{}, err
	}
	s := model.ParsedServer{
		Type:    protocol,
		Address: u.Hostname(),
		Port:    port,
		Tag:     tagFromFragment(u),
	}

	if user := u.User.Username(); user != "" {
		switch protocol {
		case model.ProtoVless, model.ProtoAnyTLS, model.ProtoTuic:
			s.UUID = user
		case model.ProtoTrojan, model.ProtoHysteria2, model.ProtoShadowTLS:
			s.Password = user
		case model.ProtoSSH:
			s.Username = user
		case model.ProtoWireguard:
			s.PrivateKey = user
		}
		if pw, hasPw := u.User.Password(); hasPw {
			switch protocol {
			case model.ProtoTuic:
				s.Password = pw
			case model.ProtoSSH:
				s.Password = pw
			}
		}
	}

	q := u.Query()
	meta := s.MetaOrEmpty()
	for k, vals := range q {
		if len(vals) == 0 {
			continue
		}
		v := vals[0]
		switch k {
		case "security", "tls":
			if v == "tls" || v == "reality" || v == "1" || v == "true" {
				s.Transport.TLSEnabled = true
			}
		case "sni", "peer":
			s.Transport.SNI = v
		case "fp":
			s.Transport.UTLSFingerprint = v
		case "pbk":
			s.Transport.RealityPublicKey = v
		case "sid":
			s.Transport.RealityShortID = v
		case "flow":
			s.Flow = v
		case "type", "network":
			s.Transport.Network = v
		case "path":
			s.Transport.Path = v
		case "host":
			meta["host"] = v
		case "alpn":
			s.Transport.ALPN = strings.Split(v, ",")
		case "congestion_control", "congestion":
			s.CongestionControl = v
		case "version":
			if n, err := strconv.Atoi(v); err == nil {
				s.Version = n
			}
		default:
			meta[k] = v
		}
	}

	if protocol == model.ProtoWireguard {
		if pk := q.Get("publickey"); pk != "" {
			s.PeerPublicKey = pk
		}
		if addr := q.Get("address"); addr != "" {
			s.LocalAddress = strings.Split(addr, ",")
		}
	}

	return s, nil
}

func tagFromFragment(u *url.URL) string {
	if u.Fragment == "" {
		return ""
	}
	if decoded, err := url.QueryUnescape(u.Fragment); err == nil {
		return decoded
	}
	return u.Fragment
}

func splitHostPort(hostPort string) (host, port string, err error) {
	idx := strings.LastIndex(hostPort, ":")
	if idx < 0 {
		return "", "", fmt.Errorf("missing port in %q", hostPort)
	}
	return hostPort[:idx], hostPort[idx+1:], nil
}

func parsePort(portStr string) (int, error) {
	if portStr == "" {
		return 0, fmt.Errorf("missing port")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}
