package handlers

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bestmirror/internal/index"
	"github.com/MrSnakeDoc/bestmirror/internal/logger"
	"github.com/MrSnakeDoc/bestmirror/internal/report"
)

const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

// rankingQuery is the parsed query string of the ranking endpoint.
type rankingQuery struct {
	format  string
	refresh bool
	params  domain.ProbeParams
}

// Ranking returns the full current ranking as JSON or markdown.
// With ?refresh=true (or return_markdown=true) it first runs a synchronous
// refresh using the count, max_failures and timeout overrides.
func Ranking(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseRankingQuery(r.URL.Query(), d.Refresher.Params())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var snap index.Snapshot
		if q.refresh {
			d.Logger.Info("manual refresh requested",
				logger.Int("count", q.params.Count),
				logger.Int("max_failures", q.params.MaxFailures),
				logger.Duration("timeout", q.params.Timeout),
				logger.String("remote_ip", r.RemoteAddr))

			snap, err = d.Refresher.RefreshWith(r.Context(), q.params)
			if err != nil {
				d.Logger.Warn("manual refresh failed", logger.Error(err))
				http.Error(w, "refresh failed: "+err.Error(), http.StatusBadGateway)
				return
			}
		} else {
			var ok bool
			snap, ok = d.Index.Read()
			if !ok {
				writeUnavailable(w, d, warmingUpMessage)
				return
			}
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Last-Modified", snap.UpdatedAt.UTC().Format(http.TimeFormat))

		var body []byte
		switch q.format {
		case formatMarkdown:
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			body = []byte(report.Markdown(snap.Ranking))
		default:
			w.Header().Set("Content-Type", "application/json")
			body = report.JSON(snap.Ranking)
		}

		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			d.Logger.Debug("failed to write response", logger.Error(err))
		}
	}
}

func parseRankingQuery(v url.Values, defaults domain.ProbeParams) (rankingQuery, error) {
	q := rankingQuery{format: formatJSON, params: defaults}

	if f := v.Get("format"); f != "" {
		if f != formatJSON && f != formatMarkdown {
			return q, fmt.Errorf("invalid format %q (want json or markdown)", f)
		}
		q.format = f
	}

	refresh, err := boolParam(v, "refresh")
	if err != nil {
		return q, err
	}
	markdown, err := boolParam(v, "return_markdown")
	if err != nil {
		return q, err
	}
	if markdown {
		q.format = formatMarkdown
		refresh = true
	}
	q.refresh = refresh

	if q.params.Count, err = intParam(v, defaults.Count, "count"); err != nil {
		return q, err
	}
	if q.params.MaxFailures, err = intParam(v, defaults.MaxFailures, "max_failures", "max_retries"); err != nil {
		return q, err
	}
	if s := v.Get("timeout"); s != "" {
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(secs) || secs <= 0 || secs > domain.MaxProbeTimeout.Seconds() {
			return q, fmt.Errorf("invalid timeout %q (want seconds in (0, %g])", s, domain.MaxProbeTimeout.Seconds())
		}
		q.params.Timeout = time.Duration(secs * float64(time.Second))
	}

	if err := q.params.Validate(); err != nil {
		return q, err
	}
	return q, nil
}

// WantsRefresh reports whether the request asks the ranking endpoint for a
// synchronous refresh. Malformed values count as no refresh; the handler
// rejects them with 400.
func WantsRefresh(r *http.Request) bool {
	v := r.URL.Query()
	for _, key := range []string{"refresh", "return_markdown"} {
		if b, err := boolParam(v, key); err == nil && b {
			return true
		}
	}
	return false
}

func boolParam(v url.Values, key string) (bool, error) {
	s := v.Get(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, s)
	}
	return b, nil
}

// intParam reads the first present key among names.
func intParam(v url.Values, def int, names ...string) (int, error) {
	for _, name := range names {
		s := v.Get(name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", name, s)
		}
		return n, nil
	}
	return def, nil
}
