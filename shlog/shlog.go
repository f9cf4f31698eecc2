// Package shlog is the collectives engine's structured-logging facade. The
// teacher pairs a generic logging abstraction (logiface) with a zerolog
// backend (logiface-zerolog); this package adopts zerolog directly, since
// the engine has exactly one logging backend and no need for logiface's
// swappable-backend generics -- see DESIGN.md for the full justification.
package shlog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	logger  = zerolog.New(io.Discard).With().Timestamp().Logger()
)

// Init configures the process-wide logger, writing level-filtered,
// structured events to w. Called once from shcoll.Init.
func Init(w io.Writer, level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// InitDefault configures stderr logging at info level -- the default if
// shcoll.Init is never told otherwise.
func InitDefault() { Init(os.Stderr, zerolog.InfoLevel) }

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug emits a debug-level structured event naming a collective op and its
// team, plus arbitrary extra fields. Used at every public collective
// entry/exit in package shcoll; the algorithm packages do not log.
func Debug(op string, pe, nPEs int, fields map[string]any) {
	ev := current().Debug().Str("op", op).Int("pe", pe).Int("n_pes", nPEs)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Send()
}

// Error emits an error-level structured event, used before a collective
// surfaces an error to its caller or triggers GlobalExit.
func Error(op string, pe int, err error, fields map[string]any) {
	ev := current().Error().Str("op", op).Int("pe", pe).Err(err)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Send()
}
