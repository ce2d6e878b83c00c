// rate_limiter.go - Rate limiting for accumulator updates
package main

import (
	"sync"
	"time"
)

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	mu           sync.Mutex
	tokens       int
	maxTokens    int
	refillRate   int
	lastRefill   time.Time
	refillPeriod time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxTokens int, refillRate int, refillPeriod time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:       maxTokens,
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		lastRefill:   time.Now(),
		refillPeriod: refillPeriod,
	}
}

// Allow checks if a request is allowed and consumes a token if so
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	refillCount := int(now.Sub(rl.lastRefill) / rl.refillPeriod)
	if refillCount > 0 {
		rl.tokens += refillCount * rl.refillRate
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now
	}

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// GetTokens returns the current number of available tokens
func (rl *RateLimiter) GetTokens() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.tokens
}

// AgentRateLimiter manages rate limiting per agent id, so one noisy agent
// cannot starve the rest of the session.
type AgentRateLimiter struct {
	mu           sync.Mutex
	limiters     map[string]*RateLimiter
	maxTokens    int
	refillRate   int
	refillPeriod time.Duration
}

// NewAgentRateLimiter creates a new per-agent rate limiter
func NewAgentRateLimiter(maxTokens int, refillRate int, refillPeriod time.Duration) *AgentRateLimiter {
	return &AgentRateLimiter{
		limiters:     make(map[string]*RateLimiter),
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
	}
}

// Allow checks if a request from an agent is allowed
func (arl *AgentRateLimiter) Allow(agentID string) bool {
	arl.mu.Lock()
	limiter, exists := arl.limiters[agentID]
	if !exists {
		limiter = NewRateLimiter(arl.maxTokens, arl.refillRate, arl.refillPeriod)
		arl.limiters[agentID] = limiter
	}
	arl.mu.Unlock()

	return limiter.Allow()
}

// GetTokens returns the current number of available tokens for an agent
func (arl *AgentRateLimiter) GetTokens(agentID string) int {
	arl.mu.Lock()
	limiter, exists := arl.limiters[agentID]
	arl.mu.Unlock()

	if !exists {
		return arl.maxTokens
	}
	return limiter.GetTokens()
}
