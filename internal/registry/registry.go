// registry.go - Shared cache of derived agent primes.
//
// Prime derivation is deterministic but costs a bounded nonce search, so
// callers that touch the same agents repeatedly (orchestrators, inspectors,
// swarm scopes) share one registry per domain. Unlike the accumulator core,
// the registry is meant to be shared and guards itself with a mutex.

package registry

import (
	"sync"

	"holopass/internal/holo"
)

// Registry caches agent id -> derived prime (base-10 string) for one domain.
type Registry struct {
	mu     sync.Mutex
	domain string
	bound  uint64
	primes map[string]string
}

// New creates a registry for the given domain using the default prime-search
// bound.
func New(domain string) *Registry {
	return NewWithBound(domain, 0)
}

// NewWithBound creates a registry with an explicit nonce-search bound; 0
// selects the default.
func NewWithBound(domain string, bound uint64) *Registry {
	return &Registry{
		domain: domain,
		bound:  bound,
		primes: make(map[string]string),
	}
}

// Register derives (or returns the cached) prime for agentID.
func (r *Registry) Register(agentID string) (string, error) {
	r.mu.Lock()
	if p, ok := r.primes[agentID]; ok {
		r.mu.Unlock()
		return p, nil
	}
	r.mu.Unlock()

	// Derivation is deterministic, so a racing duplicate computes the same
	// value; the lock is not held across the search.
	p, err := holo.DerivePrime(r.domain, agentID, r.bound)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.primes[agentID] = p
	r.mu.Unlock()
	return p, nil
}

// Prime returns the prime for agentID, deriving it on first use.
func (r *Registry) Prime(agentID string) (string, error) {
	return r.Register(agentID)
}

// Len returns the number of cached agents.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.primes)
}

// Domain returns the domain this registry derives within.
func (r *Registry) Domain() string {
	return r.domain
}
