package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeResult struct {
	status string
	checks map[string]string
}

func decodeProbe(t *testing.T, body []byte) probeResult {
	t.Helper()
	var res probeResult
	err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "status":
			s, err := d.Str()
			res.status = s
			return err
		case "checks":
			res.checks = map[string]string{}
			return d.ObjBytes(func(d *jx.Decoder, name []byte) error {
				msg, err := d.Str()
				res.checks[string(name)] = msg
				return err
			})
		default:
			return d.Skip()
		}
	})
	require.NoError(t, err)
	return res
}

func serve(h http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

// toggle fails while its flag is set.
type toggle struct{ failing atomic.Bool }

func (tg *toggle) check(context.Context) error {
	if tg.failing.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	var db toggle
	h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(1_000_000))
	h.AddLivenessCheck("db", time.Second, db.check)

	w := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decodeProbe(t, w.Body.Bytes()).status)

	db.failing.Store(true)
	for range DefaultFailureThreshold {
		h.RunOnce(context.Background())
	}

	w = serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	res := decodeProbe(t, w.Body.Bytes())
	assert.Equal(t, "unhealthy", res.status)
	assert.Equal(t, map[string]string{"db": "connection refused"}, res.checks)
}

func TestFailureThreshold(t *testing.T) {
	h := New()
	var db toggle
	db.failing.Store(true)
	h.Add(Check{Name: "db", Kind: Readiness, FailureThreshold: 2, Run: db.check})
	h.SetReady(true)

	h.RunOnce(context.Background())
	assert.True(t, h.IsReady(), "one failure is below the threshold")

	h.RunOnce(context.Background())
	assert.False(t, h.IsReady())

	db.failing.Store(false)
	h.RunOnce(context.Background())
	assert.True(t, h.IsReady(), "a single success recovers")
}

func TestReadyEndpoint_Gate(t *testing.T) {
	h := New()
	h.AddReadinessCheck("store", time.Second, func(context.Context) error { return nil })

	w := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, map[string]string{"_readiness": "service is not ready"}, decodeProbe(t, w.Body.Bytes()).checks)

	h.SetReady(true)
	w = serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestReadinessDoesNotAffectLiveness(t *testing.T) {
	h := New()
	h.Add(Check{Name: "store", Kind: Readiness, FailureThreshold: 1, Run: func(context.Context) error {
		return errors.New("down")
	}})
	h.RunOnce(context.Background())

	assert.Equal(t, http.StatusOK, serve(h.LiveEndpoint).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h.ReadyEndpoint).Code)
}

func TestCheckTimeout(t *testing.T) {
	h := New()
	h.Add(Check{Name: "slow", Kind: Liveness, Timeout: 10 * time.Millisecond, FailureThreshold: 1, Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	h.RunOnce(context.Background())

	res := decodeProbe(t, serve(h.LiveEndpoint).Body.Bytes())
	assert.Equal(t, "context deadline exceeded", res.checks["slow"])
}

func TestStartStop(t *testing.T) {
	h := New()
	var calls atomic.Int32
	h.AddLivenessCheck("count", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 5*time.Millisecond)
	h.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	h.Stop()
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load())

	h.Stop()
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, PingCheck(pinger{})(ctx))
	assert.ErrorContains(t, PingCheck(pinger{err: errors.New("refused")})(ctx), "refused")

	assert.NoError(t, DirWritableCheck(t.TempDir())(ctx))
	assert.Error(t, DirWritableCheck("/nonexistent/catalog-images")(ctx))

	assert.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	assert.Error(t, GoroutineCountCheck(0)(ctx))

	assert.NoError(t, GCPauseCheck(time.Hour)(ctx))
}
