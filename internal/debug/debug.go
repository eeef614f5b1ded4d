// Package debug provides wire-level tracing gated by the LOOM_DEBUG
// environment variable.
package debug

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

var enabled bool

func init() {
	level, err := strconv.ParseInt(os.Getenv("LOOM_DEBUG"), 10, 0)
	if err != nil {
		return
	}
	enabled = level > 0
}

// Enabled reports whether debug mode is on. Invariant violations that
// are tolerated in production become panics when it is.
func Enabled() bool {
	return enabled
}

func Printf(str string, args ...any) {
	if enabled {
		log.Debug().Msgf(str, args...)
	}
}
