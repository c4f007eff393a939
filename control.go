// File: control.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Control surface wiring: hot-reload of execution parameters, dispatch
// metrics and layer debug probes.

package threadlayer

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/momentics/threadlayer/api"
	"github.com/momentics/threadlayer/backend"
)

// Control keys.
const (
	keyNumThreads = "num_threads"
	keyChunkSize  = "chunk_size"
	keyLayer      = "layer"
	keyPinThreads = "pin_threads"

	metricCalls     = "dispatch.calls"
	metricWorkItems = "dispatch.work_items"
	metricLastNanos = "dispatch.last_ns"
)

// reload applies num_threads and chunk_size from a merged control snapshot.
// Both are validated before either is applied. layer and pin_threads are
// fixed at launch and any other key is unknown.
func (l *Layer) reload(cfg map[string]any) error {
	if err := l.checkFixed(cfg); err != nil {
		return err
	}
	be, err := l.ready()
	if err != nil {
		return err
	}
	threads, err := intSetting(cfg, keyNumThreads)
	if err != nil {
		return err
	}
	chunk, err := intSetting(cfg, keyChunkSize)
	if err != nil {
		return err
	}
	if threads < 1 || threads > l.launched {
		return api.Errorf(api.ErrCodeOutOfRange, "The number of threads must be between 1 and %d", l.launched).
			WithContext("requested", threads)
	}
	if chunk < 0 {
		return api.Errorf(api.ErrCodeOutOfRange, "The parallel chunk size must be non-negative, got %d", chunk)
	}

	if err := be.SetThreadCount(threads); err != nil {
		return err
	}
	return be.SetChunkSize(chunk)
}

func (l *Layer) checkFixed(cfg map[string]any) error {
	var unknown []string
	for k, v := range cfg {
		switch k {
		case keyNumThreads, keyChunkSize:
		case keyLayer:
			s, ok := v.(string)
			if !ok {
				return fixedError(k, l.cfg.Layer, v)
			}
			if mode, err := backend.ParseMode(s); err != nil || string(mode) != l.cfg.Layer {
				return fixedError(k, l.cfg.Layer, v)
			}
		case keyPinThreads:
			if b, ok := v.(bool); !ok || b != l.cfg.PinThreads {
				return fixedError(k, l.cfg.PinThreads, v)
			}
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return api.Errorf(api.ErrCodeConfig, "unknown keys %s", strings.Join(unknown, ", "))
	}
	return nil
}

func fixedError(key string, running, requested any) error {
	return api.Errorf(api.ErrCodeConfig, "%s is fixed at launch", key).
		WithContext("running", running).
		WithContext("requested", requested)
}

func intSetting(cfg map[string]any, key string) (int, error) {
	v, ok := cfg[key]
	if !ok {
		return 0, api.Errorf(api.ErrCodeConfig, "missing %s", key)
	}
	n, err := toInt(v)
	if err != nil {
		return 0, api.Errorf(api.ErrCodeConfig, "invalid %s %v", key, v).Wrap(err)
	}
	return n, nil
}

// toInt accepts the integer shapes produced by Go callers, JSON and TOML
// decoders and text sources.
func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case uint:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int(x), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(x))
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

func (l *Layer) recordDispatch(items int, elapsed time.Duration) {
	l.control.AddMetric(metricCalls, 1)
	l.control.AddMetric(metricWorkItems, int64(items))
	l.control.SetMetric(metricLastNanos, elapsed.Nanoseconds())
}

func (l *Layer) registerProbes() {
	l.control.RegisterDebugProbe("layer.state", func() any {
		return state(l.state.Load()).String()
	})
	l.control.RegisterDebugProbe("layer.name", func() any {
		name, err := l.Name()
		if err != nil {
			return ""
		}
		return name
	})
	l.control.RegisterDebugProbe("layer.num_threads", func() any {
		if !l.Ready() {
			return 0
		}
		return l.be.ThreadCount()
	})
	l.control.RegisterDebugProbe("layer.chunk_size", func() any {
		if !l.Ready() {
			return l.cfg.ChunkSize
		}
		return l.be.ChunkSize()
	})
	l.control.RegisterDebugProbe("layer.launched_threads", func() any {
		if !l.Ready() {
			return 0
		}
		return l.launched
	})
}
