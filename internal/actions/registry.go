// Package actions executes the named actions attached to agent responses.
package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// DeliverFunc sends a persisted response to the platform.
type DeliverFunc func(ctx context.Context, response domain.Memory) error

// Call is the input of a single action.
type Call struct {
	AgentID  string
	Room     domain.Room
	Message  domain.Memory
	Response domain.Memory
	Deliver  DeliverFunc
}

// HandlerFunc runs one named action.
type HandlerFunc func(ctx context.Context, call Call) error

// Registry stores action handlers keyed by upper-case name.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty action registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]HandlerFunc),
	}
}

// Normalize canonicalizes an action name.
func Normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Register adds a handler for an action name.
func (r *Registry) Register(name string, handler HandlerFunc) error {
	name = Normalize(name)
	if name == "" {
		return fmt.Errorf("action name is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler already registered for %s", name)
	}
	r.handlers[name] = handler
	return nil
}

// MustRegister adds a handler or panics.
func (r *Registry) MustRegister(name string, handler HandlerFunc) {
	if err := r.Register(name, handler); err != nil {
		panic(err)
	}
}

// Lookup returns the handler for the action name.
func (r *Registry) Lookup(name string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[Normalize(name)]
	return h, ok
}

// Names lists registered actions, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
