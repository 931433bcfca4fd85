package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
	"github.com/MrSnakeDoc/bestmirror/internal/index"
	"github.com/MrSnakeDoc/bestmirror/internal/logger"
	"github.com/MrSnakeDoc/bestmirror/internal/metrics"
	"github.com/MrSnakeDoc/bestmirror/internal/selector"
)

// Refresher runs a synchronous refresh cycle on behalf of a request.
type Refresher interface {
	RefreshWith(ctx context.Context, params domain.ProbeParams) (index.Snapshot, error)
	Params() domain.ProbeParams
}

// SnapshotMirror is the Redis copy of the ranking, as seen by /infra.
type SnapshotMirror interface {
	Ping(ctx context.Context) error
	TopOrigins(ctx context.Context, n int64) ([]string, error)
}

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Version       string
	Commit        string
	BuildDate     string
	GoVersion     string
	TimeNow       func() time.Time    // for testing, defaults to time.Now
	AllowedHosts  []string            // Host headers allowed to access the front door
	AllowedCIDRS  []string            // IPs allowed to access reload/readyz/infra/metrics
	TrustProxy    bool                // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Index         *index.RankingIndex // Published ranking
	Selector      *selector.Selector  // Best endpoint picker
	Refresher     Refresher           // Synchronous refresh for ?refresh=true
	Metrics       *metrics.Metrics    // nil disables /metrics output
	Redis         SnapshotMirror      // nil when Redis is disabled
	ReloadTrigger chan struct{}       // Channel to trigger an asynchronous refresh
	ReloadBurst   int                 // POST /reload token bucket size
	ReloadPerMin  int                 // POST /reload refill per minute
}
