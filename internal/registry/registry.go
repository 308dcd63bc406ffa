package registry

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vipul43/scout-worker/internal/models"
)

const DefaultTTL = 5 * time.Minute

// CompetitorSource supplies the competitor table the registry flattens
type CompetitorSource interface {
	ListAll(ctx context.Context) ([]models.Competitor, error)
}

// Registry is a TTL-cached flattening of competitor domains. Between reloads
// every call is served from the snapshot, so the store sees at most one
// query per TTL window no matter how often the poller runs. A reload race
// is harmless: both computations read the same table and last writer wins.
type Registry struct {
	source CompetitorSource
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	domains  []models.CompetitorDomain
	loadedAt time.Time
}

// New creates a registry with the given TTL. A zero ttl falls back to
// DefaultTTL.
func New(source CompetitorSource, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// SetClock overrides the time source, used by tests
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Get returns the flattened (competitor, domain) pairs, reloading from the
// store on first call or after the TTL elapses
func (r *Registry) Get(ctx context.Context) ([]models.CompetitorDomain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.domains != nil && r.now().Sub(r.loadedAt) < r.ttl {
		return r.domains, nil
	}

	competitors, err := r.source.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	domains := make([]models.CompetitorDomain, 0, len(competitors))
	for _, c := range competitors {
		for _, d := range c.Domains {
			d = strings.ToLower(strings.TrimSpace(d))
			if d == "" {
				continue
			}
			domains = append(domains, models.CompetitorDomain{
				CompetitorID: c.ID,
				Domain:       d,
			})
		}
	}

	r.domains = domains
	r.loadedAt = r.now()
	return r.domains, nil
}

// DomainSet returns the current snapshot as a domain -> competitorID map
func (r *Registry) DomainSet(ctx context.Context) (map[string]string, error) {
	domains, err := r.Get(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]string, len(domains))
	for _, d := range domains {
		set[d.Domain] = d.CompetitorID
	}
	return set, nil
}

// Invalidate forces the next read to reload, used after a competitor's
// domain list is edited
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.domains = nil
	r.loadedAt = time.Time{}
}
