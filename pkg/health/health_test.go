package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingCheck() CheckFunc {
	return func(context.Context) error { return nil }
}

func failingCheck(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func call(t *testing.T, endpoint http.HandlerFunc) (int, statusResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(1_000_000))

	code, body := call(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)

	h.AddLivenessCheck("leak", time.Second, GoroutineCountCheck(0))
	code, body = call(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Checks["leak"], "exceeds threshold 0")
	assert.NotContains(t, body.Checks, "goroutines")
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		ready    bool
		checks   map[string]CheckFunc
		wantCode int
		wantKeys []string
	}{
		{
			name:     "ReadyAndPassing",
			ready:    true,
			checks:   map[string]CheckFunc{"postgres": PingCheck(pinger{}), "redis": passingCheck()},
			wantCode: http.StatusOK,
		},
		{
			name:     "NotReady",
			checks:   map[string]CheckFunc{"postgres": passingCheck()},
			wantCode: http.StatusServiceUnavailable,
			wantKeys: []string{"_readiness"},
		},
		{
			name:  "OneFailing",
			ready: true,
			checks: map[string]CheckFunc{
				"postgres": passingCheck(),
				"redis":    PingCheck(pinger{err: errors.New("connection refused")}),
			},
			wantCode: http.StatusServiceUnavailable,
			wantKeys: []string{"redis"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			for name, fn := range tt.checks {
				h.AddReadinessCheck(name, time.Second, fn)
			}
			h.SetReady(tt.ready)

			code, body := call(t, h.ReadyEndpoint)
			assert.Equal(t, tt.wantCode, code)
			keys := make([]string, 0, len(body.Checks))
			for k := range body.Checks {
				keys = append(keys, k)
			}
			assert.ElementsMatch(t, tt.wantKeys, keys)
		})
	}
}

func TestReadyCheckTimeout(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	failures := h.Ready(context.Background())
	assert.Equal(t, context.DeadlineExceeded.Error(), failures["slow"])
}

func TestSetReadyFalse(t *testing.T) {
	h := New()
	h.SetReady(true)
	assert.Empty(t, h.Ready(context.Background()))

	h.SetReady(false)
	assert.Contains(t, h.Ready(context.Background()), "_readiness")
}
