// File: backend/selector.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Backend selection. Resolves a requested mode to an ordered candidate list,
// tries each in turn and returns the first that loads. Failures are collected
// so the final error can list every distinct remediation hint.

package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/momentics/threadlayer/api"
)

// Attempt records why a single candidate could not be used.
type Attempt struct {
	Name string
	Hint string
	Err  error
}

// SelectionError is returned when no candidate of the requested mode loads.
type SelectionError struct {
	Mode     Mode
	Attempts []Attempt
	Hints    []string
}

func (e *SelectionError) Error() string {
	var b strings.Builder
	b.WriteString("No threading layer could be loaded.\nHINT:\n")
	if len(e.Hints) == 1 {
		b.WriteString(e.Hints[0])
	} else {
		b.WriteString("One of:\n")
		b.WriteString(strings.Join(e.Hints, "\nOR\n"))
	}
	return b.String()
}

// Is makes errors.Is(err, api.ErrNoBackend) and api.ErrUnavailable hold.
func (e *SelectionError) Is(target error) bool {
	return target == api.ErrNoBackend || errors.Is(api.ErrUnavailable, target)
}

// Selector picks a backend from a registry.
type Selector struct {
	Registry *Registry
	Platform Platform
	Logger   *slog.Logger
}

// NewSelector returns a selector over the default registry and the current
// platform.
func NewSelector(logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{Registry: Default(), Platform: CurrentPlatform(), Logger: logger}
}

// Select loads the first available candidate for mode. The returned backend
// is constructed but not yet launched.
func (s *Selector) Select(mode Mode, opts LoadOptions) (api.Backend, error) {
	if !mode.IsNamed() && mode != ModeDefault && !mode.IsClass() {
		return nil, api.Errorf(api.ErrCodeConfig, "The threading layer requested '%s' is unknown", string(mode))
	}
	if opts.Logger == nil {
		opts.Logger = s.Logger
	}

	names := s.Platform.Candidates(mode)
	serr := &SelectionError{Mode: mode}
	for _, name := range names {
		b, att := s.try(name, opts)
		if b != nil {
			s.Logger.Debug("threading layer selected", "layer", name, "mode", string(mode))
			return b, nil
		}
		s.Logger.Debug("threading layer unavailable", "layer", name, "error", att.Err)
		serr.Attempts = append(serr.Attempts, att)
		if !slices.Contains(serr.Hints, att.Hint) {
			serr.Hints = append(serr.Hints, att.Hint)
		}
	}
	return nil, serr
}

func (s *Selector) try(name string, opts LoadOptions) (api.Backend, Attempt) {
	att := Attempt{Name: name, Hint: HintFor(name)}
	c, ok := s.Registry.Lookup(name)
	if !ok {
		att.Err = fmt.Errorf("%s: not registered in this build", name)
		return nil, att
	}
	if c.Hint != "" {
		att.Hint = c.Hint
	}
	if c.MinVersion > 0 && c.Version != nil {
		v, err := c.Version()
		if err != nil {
			att.Err = fmt.Errorf("%s: version probe: %w", name, err)
			return nil, att
		}
		if v < c.MinVersion {
			s.Logger.Warn("threading layer disabled: interface version too old",
				"layer", name, "found", v, "required", c.MinVersion)
			att.Err = fmt.Errorf("%s: interface version %d is older than required %d", name, v, c.MinVersion)
			return nil, att
		}
	}
	b, err := c.Load(opts)
	if err != nil {
		att.Err = err
		return nil, att
	}
	if b == nil {
		att.Err = fmt.Errorf("%s: loader returned no backend", name)
		return nil, att
	}
	return b, att
}
