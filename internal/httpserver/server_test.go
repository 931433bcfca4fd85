package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bestmirror/internal/index"
	"github.com/MrSnakeDoc/bestmirror/internal/logger"
	"github.com/MrSnakeDoc/bestmirror/internal/metrics"
	"github.com/MrSnakeDoc/bestmirror/internal/selector"
)

// fakeRefresher publishes a fixed ranking and records the parameters it was given.
type fakeRefresher struct {
	mu      sync.Mutex
	idx     *index.RankingIndex
	ranking domain.Ranking
	err     error
	calls   []domain.ProbeParams
}

func (f *fakeRefresher) RefreshWith(_ context.Context, params domain.ProbeParams) (index.Snapshot, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params)
	f.mu.Unlock()
	if f.err != nil {
		return index.Snapshot{}, f.err
	}
	return f.idx.Publish(f.ranking, nil), nil
}

func (f *fakeRefresher) Params() domain.ProbeParams { return domain.DefaultProbeParams }

func (f *fakeRefresher) lastCall() (domain.ProbeParams, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return domain.ProbeParams{}, false
	}
	return f.calls[len(f.calls)-1], true
}

type fakeRedis struct {
	err error
	top []string
}

func (f fakeRedis) Ping(context.Context) error { return f.err }

func (f fakeRedis) TopOrigins(_ context.Context, n int64) ([]string, error) {
	if int64(len(f.top)) > n {
		return f.top[:n], nil
	}
	return f.top, nil
}

var testRanking = domain.Ranking{
	{Endpoint: "fast.example", Latency: 0.012},
	{Endpoint: "slow.example", Latency: 0.150},
}

type testEnv struct {
	handler   http.Handler
	idx       *index.RankingIndex
	refresher *fakeRefresher
	trigger   chan struct{}
}

func newTestEnv(t *testing.T, mutate func(*deps.Deps)) testEnv {
	t.Helper()
	idx := index.NewRankingIndex()
	ref := &fakeRefresher{idx: idx, ranking: testRanking}
	trigger := make(chan struct{}, 1)

	d := deps.Deps{
		Logger:        logger.Nop(),
		StartTime:     time.Now(),
		Version:       "test",
		TimeNow:       time.Now,
		Index:         idx,
		Selector:      selector.New(idx),
		Refresher:     ref,
		Metrics:       metrics.New(),
		ReloadTrigger: trigger,
		ReloadBurst:   5,
		ReloadPerMin:  5,
	}
	if mutate != nil {
		mutate(&d)
	}

	return testEnv{
		handler:   NewRouter(d.Logger, d, 5*time.Second),
		idx:       idx,
		refresher: ref,
		trigger:   trigger,
	}
}

func (e testEnv) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestBest_WarmingUp(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/", "/best_server", "/best-endpoint", "/watch?v=abc"} {
		t.Run(path, func(t *testing.T) {
			rec := env.do(http.MethodGet, path)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Contains(t, rec.Body.String(), "Warming up")
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		})
	}
}

func TestBest_EmptyRanking(t *testing.T) {
	env := newTestEnv(t, nil)
	env.idx.Publish(domain.Ranking{}, nil)

	rec := env.do(http.MethodGet, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "No mirror")
}

func TestBest_Redirects(t *testing.T) {
	env := newTestEnv(t, nil)
	env.idx.Publish(testRanking, nil)

	tests := []struct {
		target   string
		location string
	}{
		{target: "/", location: "https://fast.example"},
		{target: "/best_server", location: "https://fast.example"},
		{target: "/best-endpoint", location: "https://fast.example"},
		{target: "/watch?v=dQw4w9WgXcQ", location: "https://fast.example/watch?v=dQw4w9WgXcQ"},
		{target: "/channel/UC123", location: "https://fast.example/channel/UC123"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := env.do(http.MethodGet, tt.target)
			assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

func TestBest_NoRedirect(t *testing.T) {
	env := newTestEnv(t, nil)
	env.idx.Publish(testRanking, nil)

	rec := env.do(http.MethodGet, "/best_server?redirect=false")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://fast.example", rec.Body.String())

	rec = env.do(http.MethodGet, "/?redirect=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRanking_FromCache(t *testing.T) {
	env := newTestEnv(t, nil)
	env.idx.Publish(testRanking, nil)

	rec := env.do(http.MethodGet, "/best_servers")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Less(t, strings.Index(body, "fast.example"), strings.Index(body, "slow.example"))
	var decoded map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, 0.012, decoded["https://fast.example"])

	_, called := env.refresher.lastCall()
	assert.False(t, called, "a plain read must not refresh")
}

func TestRanking_Markdown(t *testing.T) {
	env := newTestEnv(t, nil)
	env.idx.Publish(testRanking, nil)

	rec := env.do(http.MethodGet, "/best-endpoints?format=markdown")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# Best Mirrors")
	assert.Contains(t, rec.Body.String(), "🚀 [https://fast.example]")
}

func TestRanking_WarmingUp(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodGet, "/best_servers")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRanking_RefreshWithOverrides(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/best_servers?refresh=true&count=3&max_retries=2&timeout=0.5")
	require.Equal(t, http.StatusOK, rec.Code)

	params, called := env.refresher.lastCall()
	require.True(t, called)
	assert.Equal(t, domain.ProbeParams{Count: 3, MaxFailures: 2, Timeout: 500 * time.Millisecond}, params)
	assert.True(t, env.idx.Warm())
}

func TestRanking_ReturnMarkdownRefreshes(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/best_servers?return_markdown=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# Best Mirrors")

	params, called := env.refresher.lastCall()
	require.True(t, called)
	assert.Equal(t, domain.DefaultProbeParams, params)
}

func TestRanking_RefreshFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.refresher.err = errors.New("instances list unreachable")

	rec := env.do(http.MethodGet, "/best_servers?refresh=true")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRanking_BadParams(t *testing.T) {
	env := newTestEnv(t, nil)
	env.idx.Publish(testRanking, nil)

	for _, q := range []string{
		"format=xml",
		"refresh=perhaps",
		"count=ten",
		"count=0&refresh=true",
		"max_failures=-1",
		"timeout=0",
		"timeout=NaN",
		"count=101&refresh=true",
		"count=1099511627776&refresh=true",
		"timeout=100000&refresh=true",
		"timeout=10.5",
	} {
		t.Run(q, func(t *testing.T) {
			rec := env.do(http.MethodGet, "/best_servers?"+q)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRanking_RefreshIsRateLimited(t *testing.T) {
	env := newTestEnv(t, func(d *deps.Deps) {
		d.ReloadBurst = 2
		d.ReloadPerMin = 1
	})

	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodGet, "/best_servers?refresh=true")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(http.MethodGet, "/best_servers?refresh=true")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	rec = env.do(http.MethodGet, "/best-endpoints?return_markdown=true")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	env.refresher.mu.Lock()
	calls := len(env.refresher.calls)
	env.refresher.mu.Unlock()
	assert.Equal(t, 2, calls)

	// Cached reads are not throttled.
	for i := 0; i < 5; i++ {
		rec := env.do(http.MethodGet, "/best_servers")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRanking_RefreshCIDRRestricted(t *testing.T) {
	env := newTestEnv(t, func(d *deps.Deps) { d.AllowedCIDRS = []string{"10.0.0.0/8"} })
	env.idx.Publish(testRanking, nil)

	rec := env.do(http.MethodGet, "/best_servers?refresh=true") // httptest uses 192.0.2.1
	assert.Equal(t, http.StatusForbidden, rec.Code)
	_, called := env.refresher.lastCall()
	assert.False(t, called)

	rec = env.do(http.MethodGet, "/best_servers")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReload(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/reload")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// The trigger buffer holds one pending refresh.
	rec = env.do(http.MethodPost, "/reload")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	<-env.trigger
	rec = env.do(http.MethodPost, "/reload")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestReload_CIDRRestricted(t *testing.T) {
	env := newTestEnv(t, func(d *deps.Deps) { d.AllowedCIDRS = []string{"10.0.0.0/8"} })

	rec := env.do(http.MethodPost, "/reload") // httptest uses 192.0.2.1
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	env.idx.Publish(testRanking, nil)
	rec = env.do(http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ready":true,"ranked":2}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code, "liveness does not wait for the first ranking")
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotContains(t, rec.Body.String(), "last_refresh")

	env.idx.Publish(testRanking, nil)
	rec = env.do(http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ranked":2`)
	assert.Contains(t, rec.Body.String(), `"last_refresh"`)
}

func TestInfra(t *testing.T) {
	tests := []struct {
		name         string
		publish      domain.Ranking
		redis        deps.SnapshotMirror
		wantState    string
		wantMirrored string
	}{
		{name: "warming up", wantState: "warming_up"},
		{name: "empty ranking", publish: domain.Ranking{}, wantState: "critical"},
		{name: "optimal without redis", publish: testRanking, wantState: "optimal"},
		{name: "optimal with redis", publish: testRanking, redis: fakeRedis{top: []string{"https://fast.example"}}, wantState: "optimal", wantMirrored: "https://fast.example"},
		{name: "redis down", publish: testRanking, redis: fakeRedis{err: errors.New("refused")}, wantState: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(d *deps.Deps) { d.Redis = tt.redis })
			if tt.publish != nil {
				env.idx.Publish(tt.publish, nil)
			}

			rec := env.do(http.MethodGet, "/infra")
			require.Equal(t, http.StatusOK, rec.Code)

			var resp struct {
				State      string `json:"state"`
				Components map[string]struct {
					Mirrored string `json:"mirrored_best"`
				} `json:"components"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantState, resp.State)
			assert.Equal(t, tt.wantMirrored, resp.Components["redis"].Mirrored)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.idx.Publish(testRanking, nil)
	env.do(http.MethodGet, "/")

	rec := env.do(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bestmirror_redirects_total{outcome="redirect"} 1`)
}
