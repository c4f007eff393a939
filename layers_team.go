//go:build !threadlayer_noteam

// File: layers_team.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package threadlayer

import _ "github.com/momentics/threadlayer/backend/team"
