// File: backend/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Candidate registry. Backend packages register a Candidate from init, the
// way database drivers do; a backend excluded from the build simply never
// registers and is treated as unavailable by the selector.

package backend

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/momentics/threadlayer/api"
)

// LoadOptions are passed to a candidate's loader.
type LoadOptions struct {
	Logger     *slog.Logger
	PinThreads bool
}

// Candidate describes one loadable threading layer.
type Candidate struct {
	// Name is the symbolic layer name.
	Name string
	// Hint is the remediation message shown when the candidate cannot load.
	// Empty means the built-in hint for Name.
	Hint string
	// MinVersion, when positive, enables the interface version pre-check.
	MinVersion int
	// Version reports the runtime interface version of the candidate.
	Version func() (int, error)
	// Load constructs an unlaunched backend.
	Load func(opts LoadOptions) (api.Backend, error)
}

// Registry holds candidates by name.
type Registry struct {
	mu    sync.RWMutex
	cands map[string]Candidate
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{cands: make(map[string]Candidate)}
}

// Register adds or replaces a candidate.
func (r *Registry) Register(c Candidate) {
	if c.Name == "" || c.Load == nil {
		panic("backend: Register requires a name and a loader")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cands[c.Name] = c
}

// Lookup returns the candidate registered under name.
func (r *Registry) Lookup(name string) (Candidate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cands[name]
	return c, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.cands))
	for n := range r.cands {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

var defaultRegistry = NewRegistry()

// Register adds c to the process default registry.
func Register(c Candidate) { defaultRegistry.Register(c) }

// Default returns the process default registry.
func Default() *Registry { return defaultRegistry }
