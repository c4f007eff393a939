// File: layers.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package threadlayer

// The portable layer is always available.
import _ "github.com/momentics/threadlayer/backend/workqueue"
