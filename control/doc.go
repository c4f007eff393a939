// Package control
// Author: momentics <momentics@gmail.com>
//
// Hot-reload, runtime metrics, configuration control, and debug introspection layer.
// Part of the threadlayer dispatch core.
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads and validated atomic updates
//   - Synchronous reload listeners that may reject an update
//   - Dispatch counters and gauges
//   - State export, debug hooks, and probe registration
package control
