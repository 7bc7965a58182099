// Package logger provides a prefixed stdlib logger for driver-level
// diagnostics below the slog pipeline.
package logger

import (
	"fmt"
	"log"
	"os"
)

// New returns a stdlib-backed logger with a component prefix. Timestamps
// are UTC so they line up with digest date keys.
func New(component string) *log.Logger {
	prefix := fmt.Sprintf("[%s] ", component)
	return log.New(os.Stdout, prefix, log.LstdFlags|log.LUTC|log.Lshortfile)
}
