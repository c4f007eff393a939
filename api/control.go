// File: api/control.go
// Package api defines Control interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// ReloadFunc validates and applies a merged configuration snapshot.
// Returning an error rejects the whole update.
type ReloadFunc func(cfg map[string]any) error

// Control manages dynamic config and runtime metrics.
type Control interface {
	GetConfig() map[string]any
	SetConfig(cfg map[string]any) error
	Stats() map[string]any
	SetMetric(key string, value any)
	OnReload(fn ReloadFunc)
	RegisterDebugProbe(name string, fn func() any)
}
