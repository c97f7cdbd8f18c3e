package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"adminhub/internal/platform/models"
)

type cachedCompany struct {
	company  *models.Company
	cachedAt time.Time
}

// CompanyCache remembers slug lookups for ttl. Misses are cached too, so a
// request storm for an unknown subdomain hits the store once per ttl.
type CompanyCache struct {
	inner CompanyResolver
	store sync.Map // map[slug]*cachedCompany
	ttl   time.Duration
}

// NewCompanyCache wraps inner. A ttl of zero or less disables caching and
// returns inner unchanged.
func NewCompanyCache(inner CompanyResolver, ttl time.Duration) CompanyResolver {
	if ttl <= 0 {
		return inner
	}
	return &CompanyCache{inner: inner, ttl: ttl}
}

func (c *CompanyCache) CompanyBySlug(ctx context.Context, slug string) (*models.Company, error) {
	key := strings.ToLower(slug)
	if val, ok := c.store.Load(key); ok {
		entry := val.(*cachedCompany)
		if time.Since(entry.cachedAt) <= c.ttl {
			return entry.company, nil
		}
		c.store.Delete(key)
	}

	company, err := c.inner.CompanyBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	c.store.Store(key, &cachedCompany{company: company, cachedAt: time.Now()})
	return company, nil
}

// Forget drops every cached entry.
func (c *CompanyCache) Forget() {
	c.store.Range(func(k, _ any) bool {
		c.store.Delete(k)
		return true
	})
}
