// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with validated hot-reload propagation.

package control

import (
	"maps"
	"sync"

	"github.com/momentics/threadlayer/api"
)

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
// An update is offered to every listener before it is committed; the first
// listener error rejects the whole update.
type ConfigStore struct {
	updateMu  sync.Mutex // serializes SetConfig
	mu        sync.RWMutex
	config    map[string]any
	listeners []api.ReloadFunc
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: make(map[string]any),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return maps.Clone(cs.config)
}

// Seed sets values without notifying listeners.
func (cs *ConfigStore) Seed(values map[string]any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	maps.Copy(cs.config, values)
}

// SetConfig merges newCfg into the current values, runs the listeners
// synchronously on the merged view and commits it only if all accept.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) error {
	cs.updateMu.Lock()
	defer cs.updateMu.Unlock()

	cs.mu.RLock()
	merged := maps.Clone(cs.config)
	listeners := append([]api.ReloadFunc(nil), cs.listeners...)
	cs.mu.RUnlock()
	maps.Copy(merged, newCfg)

	for _, fn := range listeners {
		if err := fn(maps.Clone(merged)); err != nil {
			return err
		}
	}

	cs.mu.Lock()
	cs.config = merged
	cs.mu.Unlock()
	return nil
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn api.ReloadFunc) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
