// Package module defines the contract api modules satisfy and a registry of mounted modules
package module

import (
	phttp "scorekeeper/internal/platform/net/http"
)

// Module mounts routes and exposes ports for cross wiring
// kept apart from modkit so a module can export its own ports type without an import cycle
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
