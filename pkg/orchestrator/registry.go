package orchestrator

import (
	"context"
	"fmt"
	"sort"
)

// Handler executes one task body. The message carries the submit-time
// args/kwargs; run exposes the durable task state, most importantly
// the cancelled flag, which handlers check at their checkpoints.
type Handler func(ctx context.Context, msg Message, run *Run) Outcome

// Registry maps task names to handlers. It is built once at worker
// startup and frozen before consumption begins.
type Registry struct {
	handlers map[string]Handler
	frozen   bool
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register binds a handler to a task name. Registering twice, or
// after Freeze, panics: the registry is wired in main and a bad
// wiring should fail startup, not a task.
func (r *Registry) Register(taskName string, handler Handler) {
	if r.frozen {
		panic(fmt.Sprintf("registry is frozen; cannot register %q", taskName))
	}
	if _, ok := r.handlers[taskName]; ok {
		panic(fmt.Sprintf("task %q registered twice", taskName))
	}
	r.handlers[taskName] = handler
}

// Freeze forbids further registration.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Lookup resolves the handler for a task name.
func (r *Registry) Lookup(taskName string) (Handler, bool) {
	h, ok := r.handlers[taskName]
	return h, ok
}

// TaskNames lists the registered names, sorted, for startup logging.
func (r *Registry) TaskNames() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
