// Package builtin carries the tools shipped with the runtime: memory
// persistence and lightweight device introspection.
package builtin

import (
	"github.com/castor-ai/castor/internal/memory"
	"github.com/castor-ai/castor/internal/tool"
)

const (
	toolsetMemory = "memory"
	toolsetSystem = "system"
)

// RegisterAll wires the builtin handlers into the registry. Registration is
// idempotent; calling it twice replaces the handlers by name.
func RegisterAll(registry *tool.Registry, store memory.Store) {
	registry.Register(&SaveMemory{store: store})
	registry.Register(&RecallMemory{store: store})
	registry.Register(&DeviceInfo{})
	registry.Register(&CurrentTime{})
}
