//go:build !threadlayer_nostealing

// File: layers_stealing.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package threadlayer

import _ "github.com/momentics/threadlayer/backend/stealing"
