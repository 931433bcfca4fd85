package instances

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
	"github.com/MrSnakeDoc/bestmirror/internal/utils"
)

// DefaultURL is the public Invidious instances API.
const DefaultURL = "https://api.invidious.io/instances.json"

// maxBodyBytes caps the instances document; the real one is well under 1 MiB.
const maxBodyBytes = 8 << 20

// Fetcher retrieves and filters the remote instances list.
type Fetcher struct {
	url       string
	minHealth float64
	client    *http.Client
}

// NewFetcher creates a fetcher. An empty url uses DefaultURL.
func NewFetcher(url string, timeout time.Duration, minHealth float64) *Fetcher {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		url:       url,
		minHealth: minHealth,
		client:    &http.Client{Timeout: timeout},
	}
}

// Fetch downloads and decodes the full list.
func (f *Fetcher) Fetch(ctx context.Context) (InstancesList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch instances: %w", err)
	}
	defer utils.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status fetching instances: %s", resp.Status)
	}

	var list InstancesList
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode instances: %w", err)
	}
	return list, nil
}

// Candidates fetches the list and returns the healthy endpoints.
func (f *Fetcher) Candidates(ctx context.Context) ([]domain.Endpoint, error) {
	list, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(list, f.minHealth), nil
}

// Name identifies the source in logs.
func (f *Fetcher) Name() string { return f.url }
