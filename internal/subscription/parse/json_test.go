// SPDX-License-Identifier: MIT

package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

func TestJSONParser_OutboundsWrapperDocument(t *testing.T) {
	raw := `{"outbounds":[{"type":"vless","tag":"a","server":"h1.example.com","server_port":443,"uuid":"u1"}]}`
	p := NewJSONParser()
	servers, err := p.Parse([]byte(raw), ctxFor(model.ModeTolerant))
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.Equal(t, model.ProtoVless, servers[0].Type)
	require.Equal(t, "h1.example.com", servers[0].Address)
	require.Equal(t, 443, servers[0].Port)
	require.Equal(t, "u1", servers[0].UUID)
}

func TestJSONParser_BareArrayDocument(t *testing.T) {
	raw := `[{"type":"trojan","server":"h2.example.com","server_port":443,"password":"pw"}]`
	p := NewJSONParser()
	servers, err := p.Parse([]byte(raw), ctxFor(model.ModeTolerant))
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.Equal(t, "pw", servers[0].Password)
}

func TestJSONParser_ShadowsocksAliasNormalized(t *testing.T) {
	raw := `[{"type":"shadowsocks","server":"h3.example.com","server_port":8388,"method":"aes-256-gcm","password":"pw"}]`
	p := NewJSONParser()
	servers, err := p.Parse([]byte(raw), ctxFor(model.ModeTolerant))
	require.NoError(t, err)
	require.Equal(t, model.ProtoShadowsocks, servers[0].Type)
	require.Equal(t, "aes-256-gcm", servers[0].Security)
}

func TestJSONParser_TransportAndTLSNested(t *testing.T) {
	raw := `[{"type":"vmess","server":"h4.example.com","server_port":443,"uuid":"u2",
		"transport":{"type":"ws","path":"/p","host":"cdn.example.com"},
		"tls":{"enabled":true,"server_name":"h4.example.com","alpn":["h2","http/1.1"]}}]`
	p := NewJSONParser()
	servers, err := p.Parse([]byte(raw), ctxFor(model.ModeTolerant))
	require.NoError(t, err)
	s := servers[0]
	require.Equal(t, "ws", s.Transport.Network)
	require.Equal(t, "/p", s.Transport.Path)
	require.Equal(t, "cdn.example.com", s.Meta["host"])
	require.True(t, s.Transport.TLSEnabled)
	require.Equal(t, "h4.example.com", s.Transport.SNI)
	require.Equal(t, []string{"h2", "http/1.1"}, s.Transport.ALPN)
}

func TestJSONParser_MissingTypeTolerantSkipsEntry(t *testing.T) {
	raw := `[{"server":"h5.example.com","server_port":443}]`
	p := NewJSONParser()
	ctx := ctxFor(model.ModeTolerant)
	servers, err := p.Parse([]byte(raw), ctx)
	require.NoError(t, err)
	require.Empty(t, servers)
	require.Len(t, ctx.Errors(), 1)
}

func TestJSONParser_InvalidJSONStrictAborts(t *testing.T) {
	p := NewJSONParser()
	_, err := p.Parse([]byte("not json"), ctxFor(model.ModeStrict))
	require.Error(t, err)
}
