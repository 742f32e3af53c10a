package testlog

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// Start returns a debug-level logger that writes through t.Log. Lines written
// by goroutines that outlive the test are dropped instead of panicking.
func Start(t *testing.T) zerolog.Logger {
	t.Helper()
	w := &writer{out: zerolog.NewTestWriter(t)}
	t.Cleanup(w.close)
	logger := zerolog.New(w).Level(zerolog.DebugLevel).With().Str("test", t.Name()).Logger()
	logger.Info().Msg("start")
	return logger
}

type writer struct {
	mu     sync.Mutex
	out    zerolog.TestWriter
	closed bool
}

func (w *writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return len(p), nil
	}
	return w.out.Write(p)
}

func (w *writer) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}
