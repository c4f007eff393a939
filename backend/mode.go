// File: backend/mode.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Selection modes, platform safety tables and remediation hints.

package backend

import (
	"runtime"
	"slices"
	"strings"

	"github.com/momentics/threadlayer/api"
)

// Layer names, in default preference order: most specialized first, most
// portable last.
const (
	NameStealing  = "stealing"
	NameTeam      = "team"
	NameWorkqueue = "workqueue"
)

// Mode is a requested selection policy.
type Mode string

const (
	ModeDefault    Mode = "default"
	ModeThreadSafe Mode = "threadsafe"
	ModeForkSafe   Mode = "forksafe"
	ModeSafe       Mode = "safe"
)

// Preference is the fixed order tried in default mode.
var Preference = []string{NameStealing, NameTeam, NameWorkqueue}

var hints = map[string]string{
	NameStealing: "The stealing threading layer is required, try:\n" +
		"$ go build without the threadlayer_nostealing tag",
	NameTeam: "The team threading layer is required, try:\n" +
		"$ go build without the threadlayer_noteam tag",
	NameWorkqueue: "The workqueue threading layer is required, try:\n" +
		"$ import _ \"github.com/momentics/threadlayer/backend/workqueue\"",
}

// HintFor returns the built-in remediation hint for a layer name.
func HintFor(name string) string {
	if h, ok := hints[name]; ok {
		return h
	}
	return "The " + name + " threading layer is required."
}

// ParseMode validates a threading layer request. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch {
	case m == "":
		return ModeDefault, nil
	case m.IsNamed(), m == ModeDefault, m.IsClass():
		return m, nil
	}
	return "", api.Errorf(api.ErrCodeConfig, "The threading layer requested '%s' is unknown", s).
		WithContext("valid", validModes())
}

// IsNamed reports whether m names a specific layer.
func (m Mode) IsNamed() bool { return slices.Contains(Preference, string(m)) }

// IsClass reports whether m is a safety class.
func (m Mode) IsClass() bool {
	return m == ModeThreadSafe || m == ModeForkSafe || m == ModeSafe
}

func validModes() []string {
	return append(slices.Clone(Preference), string(ModeThreadSafe), string(ModeForkSafe), string(ModeSafe), string(ModeDefault))
}

// Platform carries the facts the safety tables depend on.
type Platform struct {
	GOOS string
}

// CurrentPlatform describes the running process.
func CurrentPlatform() Platform { return Platform{GOOS: runtime.GOOS} }

// Candidates returns the ordered candidate names for m.
//
// stealing is thread- and fork-safe everywhere. team is thread-safe but its
// workers pin CPU affinity on Linux, and a child forked from a pinned thread
// inherits that mask, so it is only listed as fork-safe elsewhere. workqueue
// is fork-safe everywhere but not thread-safe.
func (p Platform) Candidates(m Mode) []string {
	switch {
	case m.IsNamed():
		return []string{string(m)}
	case m == ModeSafe:
		return []string{NameStealing}
	case m == ModeThreadSafe:
		return []string{NameStealing, NameTeam}
	case m == ModeForkSafe:
		out := []string{NameStealing}
		if p.GOOS != "linux" {
			out = append(out, NameTeam)
		}
		return append(out, NameWorkqueue)
	default:
		return slices.Clone(Preference)
	}
}
