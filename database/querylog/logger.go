package querylog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownEngine is returned when a registry has no engine by that name
var ErrUnknownEngine = errors.New("unknown query log engine")

// Engine receives query records
type Engine interface {
	Log(ctx context.Context, q LoggedQuery) error
}

// EngineFunc adapts a function to Engine
type EngineFunc func(ctx context.Context, q LoggedQuery) error

// Log calls f
func (f EngineFunc) Log(ctx context.Context, q LoggedQuery) error {
	return f(ctx, q)
}

// Logger fans records out to a set of engines
type Logger struct {
	engines []Engine
}

// NewLogger creates a logger writing to engines
func NewLogger(engines ...Engine) *Logger {
	l := &Logger{}
	for _, e := range engines {
		if e != nil {
			l.engines = append(l.engines, e)
		}
	}
	return l
}

// Log sends q to every engine. All engines are tried; failures are joined.
func (l *Logger) Log(ctx context.Context, q LoggedQuery) error {
	if l == nil {
		return nil
	}
	var errs []error
	for _, e := range l.engines {
		if err := e.Log(ctx, q); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of engines
func (l *Logger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.engines)
}

// Registry maps engine names to engines. It is built at startup and passed
// to whatever needs to resolve a logger.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register adds or replaces an engine
func (r *Registry) Register(name string, e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = e
}

// Get returns a named engine
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	return e, nil
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Logger builds a logger from the named engines
func (r *Registry) Logger(names ...string) (*Logger, error) {
	engines := make([]Engine, 0, len(names))
	for _, name := range names {
		e, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		engines = append(engines, e)
	}
	return NewLogger(engines...), nil
}
