package jsonrpc

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
)

// Handler processes a JSON-RPC request for one connection and returns a
// result or error.
type Handler func(ctx context.Context, conn *Conn, params json.RawMessage) (any, *Error)

// MethodRegistry maps method names to handlers.
type MethodRegistry struct {
	methods map[string]Handler
}

// NewMethodRegistry creates an empty registry.
func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{methods: make(map[string]Handler)}
}

// Register adds a handler for a method name.
func (r *MethodRegistry) Register(method string, handler Handler) {
	r.methods[method] = handler
}

// Lookup returns the handler for a method, or nil if not found.
func (r *MethodRegistry) Lookup(method string) Handler {
	return r.methods[method]
}

// Methods returns all registered method names, sorted.
func (r *MethodRegistry) Methods() []string {
	return slices.Sorted(maps.Keys(r.methods))
}
