package health

import (
	"context"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// Pinger is implemented by connection pools and clients that can verify
// their backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck wraps p.Ping as a check.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// DirWritableCheck fails unless a file can be created in dir.
func DirWritableCheck(dir string) CheckFunc {
	return func(context.Context) error {
		f, err := os.CreateTemp(dir, ".healthz-*")
		if err != nil {
			return errors.Wrapf(err, "write to %s", dir)
		}
		name := f.Name()
		_ = f.Close()
		return os.Remove(name)
	}
}

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("%d goroutines, limit %d", n, threshold)
		}
		return nil
	}
}

// GCPauseCheck fails when the most recent stop-the-world pause exceeded
// threshold.
func GCPauseCheck(threshold time.Duration) CheckFunc {
	return func(context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		if len(stats.Pause) > 0 && stats.Pause[0] > threshold {
			return errors.Errorf("last GC pause %s, limit %s", stats.Pause[0], threshold)
		}
		return nil
	}
}
