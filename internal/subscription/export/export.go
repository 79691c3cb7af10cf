// SPDX-License-Identifier: MIT

// Package export implements the sing-box exporter (spec §4.10) and the
// export manager that orchestrates middleware auto-configuration around
// it (spec §4.11).
package export

import (
	"github.com/sboxsync/sboxsync/internal/registry"
	"github.com/sboxsync/sboxsync/internal/subscription/model"
	"github.com/sboxsync/sboxsync/internal/subscription/route"
)

// Exporter produces a client configuration document from a server list.
type Exporter interface {
	Export(servers []model.ParsedServer, routeBlock map[string]any, profile *model.FullProfile) (map[string]any, []string)
}

// Constructor builds a stateless Exporter.
type Constructor func() Exporter

// Registry holds the exporter namespace, keyed by dialect (spec §4.1).
var Registry = registry.New[Constructor]("exporter")

func init() {
	Registry.Register("modern", func() Exporter { return SingboxExporter{Dialect: route.ModernRouter{}} })
	Registry.Register("legacy", func() Exporter { return SingboxExporter{Dialect: route.LegacyRouter{}} })
}
