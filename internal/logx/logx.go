// Package logx gates debug logging behind a verbosity switch.
// Regular messages go straight to log.Printf with a component tag.
package logx

import (
	"log"
	"os"
	"strings"
	"sync/atomic"
)

var debug atomic.Bool

func init() {
	switch strings.ToLower(os.Getenv("TUNEFOLDER_LOG_LEVEL")) {
	case "debug", "trace":
		debug.Store(true)
	}
}

// SetVerbose enables or disables debug output
func SetVerbose(enabled bool) {
	debug.Store(enabled)
}

// DebugEnabled reports whether debug output is enabled
func DebugEnabled() bool {
	return debug.Load()
}

// Debugf logs a message only when debug output is enabled
func Debugf(format string, args ...interface{}) {
	if debug.Load() {
		log.Printf("[DEBUG] "+format, args...)
	}
}
