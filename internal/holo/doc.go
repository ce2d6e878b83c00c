// Package holo implements a chained, order-sensitive cryptographic accumulator
// ("holographic state") over an RSA-like group.
//
// Overview:
//   - The state is a single group element T that evolves as named agents apply
//     updates: T' = (T^P(agent) * G^H(depth)) mod N
//   - Agent identities are bound through deterministic hash-to-prime derivation,
//     domain-separated so identical agent ids in different domains never collide
//   - Every max_depth transitions the state folds into a hash-chained snapshot,
//     giving tamper evidence without storing history
//   - Parallel branches merge through an order-sensitive cascade; permuting the
//     same primes yields a different result
//
// Security Model:
//   - SHA-256 for all digests, 64-round Miller-Rabin for primality
//   - Optimistic-concurrency rollback protection: mutating calls carry the
//     expected previous state and fail on mismatch, leaving state untouched
//   - Resource guards bound input sizes (4096 bytes) and total group operations
//     per instance (circuit breaker, never auto-reset)
//   - Randomized inert modular exponentiation blurs timing/power signatures of
//     prime derivation and merging; best-effort, not a formal proof
//   - Trusted setup generates the modulus from two random primes whose backing
//     memory is wiped as soon as the product is formed
//
// Usage:
//   - Generate a modulus once with GenerateSafeModulus, then construct an
//     Accumulator per session with New or NewFromConfig
//   - An Accumulator has no internal locking; it must be owned by exactly one
//     goroutine or serialized externally. Independent instances are fully
//     parallel. Stateless helpers (SafePowMod, DerivePrime) are safe anywhere.
//   - All numeric values cross this package's boundary as base-10 ASCII strings;
//     State returns base-16
package holo
