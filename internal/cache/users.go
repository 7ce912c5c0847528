package cache

import (
	"context"
	"time"

	"teamreports/internal/core"
)

// UserGetter is the account lookup the authenticator performs per request.
type UserGetter interface {
	GetUser(ctx context.Context, id string) (core.User, error)
}

// Users caches successful account lookups by ID. Errors are never cached,
// so a missing account is looked up again on the next request.
type Users struct {
	next  UserGetter
	cache *LRU[core.User]
}

func NewUsers(next UserGetter, maxSize int, ttl time.Duration) *Users {
	return &Users{next: next, cache: NewLRU[core.User](maxSize, ttl)}
}

func (u *Users) GetUser(ctx context.Context, id string) (core.User, error) {
	if cached, ok := u.cache.Get(id); ok {
		return cached, nil
	}
	user, err := u.next.GetUser(ctx, id)
	if err != nil {
		return core.User{}, err
	}
	u.cache.Set(id, user)
	return user, nil
}

// Invalidate forgets id so the next lookup reaches the store.
func (u *Users) Invalidate(id string) { u.cache.Delete(id) }
