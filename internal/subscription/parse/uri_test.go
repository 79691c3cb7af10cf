// SPDX-License-Identifier: MIT

package parse

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

func ctxFor(mode model.Mode) *model.PipelineContext {
	return model.NewContext(mode)
}

func TestURIListParser_VlessAndTrojan(t *testing.T) {
	p := NewURIListParser(false)
	raw := "vless://uuid-1@example.com:443?security=tls&sni=example.com&type=ws&path=%2Fws#Tag%20One\n" +
		"trojan://pw1@trojan.example.com:443?sni=trojan.example.com#trojan-tag"

	servers, err := p.Parse([]byte(raw), ctxFor(model.ModeTolerant))
	require.NoError(t, err)
	require.Len(t, servers, 2)

	require.Equal(t, model.ProtoVless, servers[0].Type)
	require.Equal(t, "uuid-1", servers[0].UUID)
	require.Equal(t, "example.com", servers[0].Address)
	require.Equal(t, 443, servers[0].Port)
	require.True(t, servers[0].Transport.TLSEnabled)
	require.Equal(t, "ws", servers[0].Transport.Network)
	require.Equal(t, "/ws", servers[0].Transport.Path)
	require.Equal(t, "Tag One", servers[0].Tag)

	require.Equal(t, model.ProtoTrojan, servers[1].Type)
	require.Equal(t, "pw1", servers[1].Password)
	require.Equal(t, "trojan-tag", servers[1].Tag)
}

func TestURIListParser_SkipsCommentsAndBlankLines(t *testing.T) {
	p := NewURIListParser(false)
	raw := "# a comment\n\ntrojan://pw@host.example.com:443#t\n"
	servers, err := p.Parse([]byte(raw), ctxFor(model.ModeTolerant))
	require.NoError(t, err)
	require.Len(t, servers, 1)
}

func TestURIListParser_Base64Variant(t *testing.T) {
	inner := "trojan://pw@host.example.com:443#t"
	encoded := base64.StdEncoding.EncodeToString([]byte(inner))

	p := NewURIListParser(true)
	servers, err := p.Parse([]byte(encoded), ctxFor(model.ModeTolerant))
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.Equal(t, model.ProtoTrojan, servers[0].Type)
}

func TestURIListParser_TolerantModeSkipsBadLineRecordsError(t *testing.T) {
	p := NewURIListParser(false)
	raw := "not-a-known-scheme://host:1\ntrojan://pw@host.example.com:443#t"
	ctx := ctxFor(model.ModeTolerant)

	servers, err := p.Parse([]byte(raw), ctx)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.Len(t, ctx.Errors(), 1)
	require.Equal(t, model.KindParse, ctx.Errors()[0].Kind)
}

func TestURIListParser_StrictModeAbortsOnFirstBadLine(t *testing.T) {
	p := NewURIListParser(false)
	raw := "not-a-known-scheme://host:1\ntrojan://pw@host.example.com:443#t"
	ctx := ctxFor(model.ModeStrict)

	servers, err := p.Parse([]byte(raw), ctx)
	require.Error(t, err)
	require.Nil(t, servers)
}

func TestParseShadowsocks_SIP002Form(t *testing.T) {
	userinfo := base64.StdEncoding.EncodeToString([]byte("aes-256-gcm:secret"))
	p := NewURIListParser(false)
	raw := "ss://" + userinfo + "@ss.example.com:8388#ss-tag"

	servers, err := p.Parse([]byte(raw), ctxFor(model.ModeTolerant))
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.Equal(t, "aes-256-gcm", servers[0].Security)
	require.Equal(t, "secret", servers[0].Password)
	require.Equal(t, "ss.example.com", servers[0].Address)
	require.Equal(t, 8388, servers[0].Port)
	require.Equal(t, "ss-tag", servers[0].Tag)
}

func TestParseShadowsocks_LegacyFullyEncodedForm(t *testing.T) {
	legacy := base64.StdEncoding.EncodeToString([]byte("aes-128-gcm:pw2@legacy.example.com:9000"))
	p := NewURIListParser(false)
	raw := "ss://" + legacy + "#legacy-tag"

	servers, err := p.Parse([]byte(raw), ctxFor(model.ModeTolerant))
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.Equal(t, "aes-128-gcm", servers[0].Security)
	require.Equal(t, "pw2", servers[0].Password)
	require.Equal(t, "legacy.example.com", servers[0].Address)
	require.Equal(t, 9000, servers[0].Port)
}

func TestParseVmess_DecodesBase64JSONShareLink(t *testing.T) {
	payload := `{"v":"2","ps":"vmess-tag","add":"vm.example.com","port":"443","id":"uuid-abc","aid":0,"net":"ws","type":"none","host":"cdn.example.com","path":"/vm","tls":"tls","sni":"vm.example.com"}`
	encoded := base64.StdEncoding.EncodeToString([]byte(payload))

	p := NewURIListParser(false)
	servers, err := p.Parse([]byte("vmess://"+encoded), ctxFor(model.ModeTolerant))
	require.NoError(t, err)
	require.Len(t, servers, 1)

	s := servers[0]
	require.Equal(t, model.ProtoVmess, s.Type)
	require.Equal(t, "vm.example.com", s.Address)
	require.Equal(t, 443, s.Port)
	require.Equal(t, "uuid-abc", s.UUID)
	require.Equal(t, "vmess-tag", s.Tag)
	require.True(t, s.Transport.TLSEnabled)
	require.Equal(t, "ws", s.Transport.Network)
	require.Equal(t, "/vm", s.Transport.Path)
	require.Equal(t, "cdn.example.com", s.Meta["host"])
}

func TestParseVmess_InvalidBase64Errors(t *testing.T) {
	p := NewURIListParser(false)
	ctx := ctxFor(model.ModeStrict)
	_, err := p.Parse([]byte("vmess://not-valid-base64!!!"), ctx)
	require.Error(t, err)
}

func TestParseWireguard_AddressAndPublicKeyFromQuery(t *testing.T) {
	p := NewURIListParser(false)
	raw := "wireguard://privkey1@wg.example.com:51820?publickey=peerkey1&address=10.0.0.2%2F32#wg"

	servers, err := p.Parse([]byte(raw), ctxFor(model.ModeTolerant))
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.Equal(t, "privkey1", servers[0].PrivateKey)
	require.Equal(t, "peerkey1", servers[0].PeerPublicKey)
	require.Equal(t, []string{"10.0.0.2/32"}, servers[0].LocalAddress)
}
