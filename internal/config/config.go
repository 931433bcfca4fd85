package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request deadline, covers a synchronous refresh (default: 30s)

	LogLevel       string // "debug" | "info" | "warn" | "error"
	PrettyLog      bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile        string // optional, rotating JSON log file
	LogFileMaxMB   int
	LogFileBackups int
	LogFileMaxAge  int // days

	// Endpoint source
	SourceURL     string        // instances list URL
	SourceFile    string        // optional static YAML list, takes precedence over SourceURL
	SourceTimeout time.Duration // HTTP timeout for the instances list (default: 15s)
	MinHealth     float64       // minimum mean uptime ratio to keep an instance (default: 99)
	SkipList      []string      // hosts never probed

	// Probing
	ProbeCount       int           // probes per endpoint (default: 10)
	ProbeMaxFailures int           // tolerated failures before abort (default: 1)
	ProbeTimeout     time.Duration // per-probe timeout (default: 200ms)
	ProbePort        int           // port probed on every mirror (default: 443)
	ProbeMode        string        // "tcp" (connect round trip) or "https" (HEAD with TLS verification)
	ProbeWorkers     int           // probe pool size, 0 = one worker per endpoint

	RefreshInterval time.Duration // time between refresh cycles (default: 1h)
	CacheFile       string        // JSON ranking artifact, removed on shutdown
	ReportFile      string        // optional markdown report written after each refresh
	WarmStart       bool          // restore the last Redis snapshot before the first refresh

	// Redis (optional, empty RedisAddr disables it)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict POST /reload to these networks
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	ReloadBurst  int      // POST /reload token bucket size
	ReloadPerMin int      // POST /reload refill rate
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("BESTMIRROR_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("BESTMIRROR_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("BESTMIRROR_REQUEST_TIMEOUT", 30*time.Second),

		// Logging
		LogLevel:       getenv("BESTMIRROR_LOG_LEVEL", "info"),
		PrettyLog:      mustBool("BESTMIRROR_PRETTY_LOG", true),
		LogFile:        getenv("BESTMIRROR_LOG_FILE", ""),
		LogFileMaxMB:   getenvInt("BESTMIRROR_LOG_FILE_MAX_MB", 50),
		LogFileBackups: getenvInt("BESTMIRROR_LOG_FILE_BACKUPS", 5),
		LogFileMaxAge:  getenvInt("BESTMIRROR_LOG_FILE_MAX_AGE_DAYS", 14),

		// Source
		SourceURL:     getenv("BESTMIRROR_SOURCE_URL", "https://api.invidious.io/instances.json"),
		SourceFile:    getenv("BESTMIRROR_SOURCE_FILE", ""),
		SourceTimeout: mustDuration("BESTMIRROR_SOURCE_TIMEOUT", 15*time.Second),
		MinHealth:     getenvFloat("BESTMIRROR_MIN_HEALTH", 99.0),
		SkipList:      splitAndTrim(getenv("BESTMIRROR_SKIP_LIST", os.Getenv("SKIP_LIST"))),

		// Probing
		ProbeCount:       getenvInt("BESTMIRROR_PROBE_COUNT", domain.DefaultProbeParams.Count),
		ProbeMaxFailures: getenvInt("BESTMIRROR_PROBE_MAX_FAILURES", domain.DefaultProbeParams.MaxFailures),
		ProbeTimeout:     mustDuration("BESTMIRROR_PROBE_TIMEOUT", domain.DefaultProbeParams.Timeout),
		ProbePort:        getenvInt("BESTMIRROR_PROBE_PORT", 443),
		ProbeMode:        getenv("BESTMIRROR_PROBE_MODE", "tcp"),
		ProbeWorkers:     getenvInt("BESTMIRROR_PROBE_WORKERS", 0),

		RefreshInterval: mustDuration("BESTMIRROR_REFRESH_INTERVAL", time.Hour),
		CacheFile:       getenv("BESTMIRROR_CACHE_FILE", ".cache.json"),
		ReportFile:      getenv("BESTMIRROR_REPORT_FILE", ""),
		WarmStart:       mustBool("BESTMIRROR_WARM_START", false),

		// Redis settings
		RedisAddr:           getenv("BESTMIRROR_REDIS_ADDR", ""),
		RedisUser:           getenv("BESTMIRROR_REDIS_USERNAME", ""),
		RedisPassword:       getenv("BESTMIRROR_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("BESTMIRROR_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("BESTMIRROR_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("BESTMIRROR_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("BESTMIRROR_TRUST_PROXY", false),
		ReloadBurst:  getenvInt("BESTMIRROR_RELOAD_BURST", 3),
		ReloadPerMin: getenvInt("BESTMIRROR_RELOAD_PER_MIN", 6),
	}

	if err := cfg.ProbeParams().Validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: invalid probe settings: %v", err))
	}
	if cfg.RefreshInterval <= 0 {
		panic("❌ FATAL: BESTMIRROR_REFRESH_INTERVAL must be > 0")
	}
	if cfg.ProbePort <= 0 || cfg.ProbePort > 65535 {
		panic(fmt.Sprintf("❌ FATAL: BESTMIRROR_PROBE_PORT out of range: %d", cfg.ProbePort))
	}
	if cfg.ProbeMode != "tcp" && cfg.ProbeMode != "https" {
		panic(fmt.Sprintf("❌ FATAL: BESTMIRROR_PROBE_MODE must be tcp or https, got %q", cfg.ProbeMode))
	}
	if cfg.ProbeWorkers < 0 {
		panic(fmt.Sprintf("❌ FATAL: BESTMIRROR_PROBE_WORKERS must be >= 0, got %d", cfg.ProbeWorkers))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// ProbeParams returns the configured default probe parameters.
func (c *Config) ProbeParams() domain.ProbeParams {
	return domain.ProbeParams{
		Count:       c.ProbeCount,
		MaxFailures: c.ProbeMaxFailures,
		Timeout:     c.ProbeTimeout,
	}
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
