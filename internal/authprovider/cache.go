package authprovider

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedDirectory memoizes directory reads for a short TTL. Not-found results
// are cached too; upstream failures are not.
type CachedDirectory struct {
	next  Directory
	store *gocache.Cache
}

type notFoundEntry struct{}

func NewCachedDirectory(next Directory, ttl time.Duration) *CachedDirectory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedDirectory{
		next:  next,
		store: gocache.New(ttl, 2*ttl),
	}
}

func (d *CachedDirectory) ResolveOrganization(ctx context.Context, ref string) (*Organization, error) {
	return cached(d, "org:"+ref, func() (*Organization, error) {
		return d.next.ResolveOrganization(ctx, ref)
	})
}

func (d *CachedDirectory) ListMembers(ctx context.Context, orgID string) ([]Member, error) {
	members, err := cached(d, "members:"+orgID, func() (*[]Member, error) {
		list, err := d.next.ListMembers(ctx, orgID)
		if err != nil {
			return nil, err
		}
		return &list, nil
	})
	if err != nil {
		return nil, err
	}
	return *members, nil
}

func (d *CachedDirectory) GetUser(ctx context.Context, userID string) (*Identity, error) {
	return cached(d, "user:"+userID, func() (*Identity, error) {
		return d.next.GetUser(ctx, userID)
	})
}

// Invalidate drops every cached entry.
func (d *CachedDirectory) Invalidate() {
	d.store.Flush()
}

func cached[T any](d *CachedDirectory, key string, load func() (*T, error)) (*T, error) {
	if value, ok := d.store.Get(key); ok {
		switch v := value.(type) {
		case notFoundEntry:
			return nil, ErrNotFound
		case *T:
			return v, nil
		}
	}

	value, err := load()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			d.store.SetDefault(key, notFoundEntry{})
		}
		return nil, err
	}
	d.store.SetDefault(key, value)
	return value, nil
}

var _ Directory = (*CachedDirectory)(nil)
