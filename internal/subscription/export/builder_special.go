// SPDX-License-Identifier: MIT

package export

import "github.com/sboxsync/sboxsync/internal/subscription/model"

// buildWireguard requires address, port, private key, peer public key,
// and at least one local address (spec §4.10, §4.4).
func buildWireguard(s model.ParsedServer) (map[string]any, bool) {
	if s.Address == "" || s.Port == 0 || s.PrivateKey == "" || s.PeerPublicKey == "" || len(s.LocalAddress) == 0 {
		return nil, false
	}
	out := map[string]any{
		"type":            "wireguard",
		"server":          s.Address,
		"server_port":     s.Port,
		"private_key":     s.PrivateKey,
		"peer_public_key": s.PeerPublicKey,
		"local_address":   s.LocalAddress,
	}
	if s.PreSharedKey != "" {
		out["pre_shared_key"] = s.PreSharedKey
	}
	if s.MTU != 0 {
		out["mtu"] = s.MTU
	}
	if s.Keepalive != 0 {
		out["keepalive"] = s.Keepalive
	}
	out["tag"] = tagOrAddress(s)
	return out, true
}

// buildTUIC requires address, port, uuid, and password.
func buildTUIC(s model.ParsedServer) (map[string]any, bool) {
	if s.Address == "" || s.Port == 0 || s.UUID == "" || s.Password == "" {
		return nil, false
	}
	out := map[string]any{
		"type":        "tuic",
		"server":      s.Address,
		"server_port": s.Port,
		"uuid":        s.UUID,
		"password":    s.Password,
	}
	if s.CongestionControl != "" {
		out["congestion_control"] = s.CongestionControl
	}
	if len(s.Transport.ALPN) > 0 {
		out["alpn"] = s.Transport.ALPN
	}
	if s.UDPRelayMode != "" {
		out["udp_relay_mode"] = s.UDPRelayMode
	}
	if s.TLS != nil {
		out["tls"] = s.TLS
	}
	out["tag"] = tagOrAddress(s)
	return out, true
}

// buildShadowTLS requires address, port, password, and a version > 0.
func buildShadowTLS(s model.ParsedServer) (map[string]any, bool) {
	if s.Address == "" || s.Port == 0 || s.Password == "" || s.Version <= 0 {
		return nil, false
	}
	out := map[string]any{
		"type":        "shadowtls",
		"server":      s.Address,
		"server_port": s.Port,
		"password":    s.Password,
		"version":     s.Version,
	}
	if len(s.Handshake) > 0 {
		out["handshake"] = s.Handshake
	}
	if s.TLS != nil {
		out["tls"] = s.TLS
	}
	out["tag"] = tagOrAddress(s)
	return out, true
}

// buildAnyTLS requires address, port, and uuid.
func buildAnyTLS(s model.ParsedServer) (map[string]any, bool) {
	if s.Address == "" || s.Port == 0 || s.UUID == "" {
		return nil, false
	}
	out := map[string]any{
		"type":        "anytls",
		"server":      s.Address,
		"server_port": s.Port,
		"uuid":        s.UUID,
	}
	if s.TLS != nil {
		out["tls"] = s.TLS
	}
	out["tag"] = tagOrAddress(s)
	return out, true
}

// buildTor requires only address and port.
func buildTor(s model.ParsedServer) (map[string]any, bool) {
	if s.Address == "" || s.Port == 0 {
		return nil, false
	}
	return map[string]any{
		"type":        "tor",
		"server":      s.Address,
		"server_port": s.Port,
		"tag":         tagOrAddress(s),
	}, true
}

// buildSSH requires address, port, and username.
func buildSSH(s model.ParsedServer) (map[string]any, bool) {
	if s.Address == "" || s.Port == 0 || s.Username == "" {
		return nil, false
	}
	out := map[string]any{
		"type":        "ssh",
		"server":      s.Address,
		"server_port": s.Port,
		"username":    s.Username,
	}
	if s.Password != "" {
		out["password"] = s.Password
	}
	if s.PrivateKey != "" {
		out["private_key"] = s.PrivateKey
	}
	if s.TLS != nil {
		out["tls"] = s.TLS
	}
	out["tag"] = tagOrAddress(s)
	return out, true
}

// buildHysteria2 requires address, port, and password.
func buildHysteria2(s model.ParsedServer) (map[string]any, bool) {
	if s.Address == "" || s.Port == 0 || s.Password == "" {
		return nil, false
	}
	return map[string]any{
		"type":        "hysteria2",
		"server":      s.Address,
		"server_port": s.Port,
		"password":    s.Password,
		"tag":         tagOrAddress(s),
	}, true
}
