package selector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
	"github.com/MrSnakeDoc/bestmirror/internal/index"
)

// ErrNoneAvailable is returned when no endpoint can be selected.
// Callers should answer with a "retry shortly" message rather than fail hard.
var ErrNoneAvailable = errors.New("no endpoint available")

var (
	errWarmingUp = fmt.Errorf("%w: warming up", ErrNoneAvailable)
	errEmpty     = fmt.Errorf("%w: no endpoint qualified in the last refresh", ErrNoneAvailable)
)

// IsWarmingUp distinguishes "not measured yet" from "nothing qualified".
func IsWarmingUp(err error) bool {
	return errors.Is(err, errWarmingUp)
}

// Selector picks the best endpoint from the published ranking.
type Selector struct {
	index *index.RankingIndex
}

// New creates a selector reading from idx.
func New(idx *index.RankingIndex) *Selector {
	return &Selector{index: idx}
}

// Best returns the lowest-latency endpoint of the current ranking.
func (s *Selector) Best() (domain.Endpoint, error) {
	entry, err := s.BestEntry()
	if err != nil {
		return "", err
	}
	return entry.Endpoint, nil
}

// BestEntry is Best with the measured latency attached.
func (s *Selector) BestEntry() (domain.Entry, error) {
	snap, ok := s.index.Read()
	if !ok {
		return domain.Entry{}, errWarmingUp
	}
	best, ok := snap.Ranking.Best()
	if !ok {
		return domain.Entry{}, errEmpty
	}
	return best, nil
}

// Target builds the redirect URL for ep, carrying over a resource path and query.
// Root paths map to the bare origin.
// Example: Target("yewtu.be", "/watch", "v=abc") -> "https://yewtu.be/watch?v=abc"
func Target(ep domain.Endpoint, path, rawQuery string) string {
	var b strings.Builder
	b.WriteString(ep.Origin())

	if path != "" && path != "/" {
		if !strings.HasPrefix(path, "/") {
			b.WriteByte('/')
		}
		b.WriteString(path)
	}
	if rawQuery != "" {
		if path == "" || path == "/" {
			b.WriteByte('/')
		}
		b.WriteByte('?')
		b.WriteString(rawQuery)
	}
	return b.String()
}
