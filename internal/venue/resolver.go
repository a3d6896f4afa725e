package venue

import (
	"context"
	"strings"
	"sync"
)

// ResolveSymbol maps a requested symbol to the name the terminal trades it
// under. An exact match wins; otherwise the first symbol that starts with the
// request (broker suffixes such as "BTCUSDTp"); otherwise the request itself.
func ResolveSymbol(ctx context.Context, s Session, requested string) string {
	symbols, err := s.Symbols(ctx)
	if err != nil {
		return requested
	}
	for _, name := range symbols {
		if name == requested {
			return requested
		}
	}
	for _, name := range symbols {
		if strings.Contains(name, requested) && strings.HasPrefix(name, requested) {
			return name
		}
	}
	return requested
}

// Resolver caches resolutions for one session
type Resolver struct {
	session Session
	mu      sync.Mutex
	cache   map[string]string
}

// NewResolver returns a caching resolver bound to a session
func NewResolver(s Session) *Resolver {
	return &Resolver{session: s, cache: make(map[string]string)}
}

// Resolve returns the cached resolution or asks the terminal. Unchanged
// results are not cached so a symbol listed later is still picked up.
func (r *Resolver) Resolve(ctx context.Context, requested string) string {
	r.mu.Lock()
	if name, ok := r.cache[requested]; ok {
		r.mu.Unlock()
		return name
	}
	r.mu.Unlock()

	name := ResolveSymbol(ctx, r.session, requested)
	if name != requested {
		r.mu.Lock()
		r.cache[requested] = name
		r.mu.Unlock()
	}
	return name
}
