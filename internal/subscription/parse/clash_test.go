// SPDX-License-Identifier: MIT

package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

func TestClashParser_DecodesKnownProxyTypes(t *testing.T) {
	doc := `
proxies:
  - name: ss-node
    type: ss
    server: ss.example.com
    port: 8388
    cipher: aes-256-gcm
    password: pw1
  - name: vmess-node
    type: vmess
    server: vm.example.com
    port: 443
    uuid: uuid-1
    network: ws
    tls: true
    ws-opts:
      path: /ws
`
	p := NewClashParser()
	servers, err := p.Parse([]byte(doc), ctxFor(model.ModeTolerant))
	require.NoError(t, err)
	require.Len(t, servers, 2)

	require.Equal(t, model.ProtoShadowsocksShort, servers[0].Type)
	require.Equal(t, "aes-256-gcm", servers[0].Security)
	require.Equal(t, "pw1", servers[0].Password)

	require.Equal(t, model.ProtoVmess, servers[1].Type)
	require.Equal(t, "uuid-1", servers[1].UUID)
	require.True(t, servers[1].Transport.TLSEnabled)
	require.Equal(t, "/ws", servers[1].Transport.Path)
}

func TestClashParser_UnknownTypeSkippedNonFatalEvenInStrictMode(t *testing.T) {
	doc := `
proxies:
  - name: weird
    type: not-a-real-protocol
    server: h.example.com
    port: 1
  - name: known
    type: trojan
    server: t.example.com
    port: 443
    password: pw
`
	p := NewClashParser()
	ctx := ctxFor(model.ModeStrict)
	servers, err := p.Parse([]byte(doc), ctx)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.Len(t, ctx.Errors(), 1)
}

func TestClashParser_InvalidYAMLRecordedInTolerantMode(t *testing.T) {
	p := NewClashParser()
	ctx := ctxFor(model.ModeTolerant)
	servers, err := p.Parse([]byte("not: [valid yaml"), ctx)
	require.NoError(t, err)
	require.Empty(t, servers)
	require.Len(t, ctx.Errors(), 1)
	require.Equal(t, model.KindParse, ctx.Errors()[0].Kind)
}

func TestClashParser_GRPCOptsAndPublicKey(t *testing.T) {
	doc := `
proxies:
  - name: grpc-node
    type: vless
    server: g.example.com
    port: 443
    uuid: u1
    grpc-opts:
      grpc-service-name: svc1
  - name: wg-node
    type: wireguard
    server: wg.example.com
    port: 51820
    private-key: priv1
    public-key: pub1
    ip: 10.0.0.5
`
	p := NewClashParser()
	servers, err := p.Parse([]byte(doc), ctxFor(model.ModeTolerant))
	require.NoError(t, err)
	require.Equal(t, "svc1", servers[0].Meta["grpc-service-name"])
	require.Equal(t, "priv1", servers[1].PrivateKey)
	require.Equal(t, "pub1", servers[1].PeerPublicKey)
	require.Equal(t, []string{"10.0.0.5"}, servers[1].LocalAddress)
}
