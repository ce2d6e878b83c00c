// jitter.go - Randomized inert computation to blur timing/power side channels.
//
// Before prime derivation and branch merging we burn a random number of small
// modular exponentiations so elapsed time does not cleanly correlate with the
// real workload. Defense-in-depth only; this is not a constant-time proof.

package holo

import (
	"math/big"
	mrand "math/rand/v2"
	"sync/atomic"
)

// JitterConfig bounds the inert work loop. The magnitude is tunable; zero
// values fall back to the defaults.
type JitterConfig struct {
	MinLoops int
	MaxLoops int
}

// DefaultJitter is the range applied when a config leaves the bounds unset.
var DefaultJitter = JitterConfig{MinLoops: 1000, MaxLoops: 5000}

// jitterSink accumulates the dummy results so the compiler cannot prove the
// loop dead and eliminate it.
var jitterSink atomic.Uint64

// injectJitter performs loopCount inert pow-mods with random base and exponent
// over a small fixed modulus. math/rand/v2 is used deliberately: the values
// are not secrets, and its generators do not contend on a shared lock.
func injectJitter(cfg JitterConfig) {
	if cfg.MinLoops <= 0 || cfg.MaxLoops <= cfg.MinLoops {
		cfg = DefaultJitter
	}
	loops := cfg.MinLoops + mrand.IntN(cfg.MaxLoops-cfg.MinLoops)

	dummy := new(big.Int).SetUint64(mrand.Uint64())
	exp := new(big.Int).SetUint64(mrand.Uint64())
	m := big.NewInt(65537)
	for i := 0; i < loops; i++ {
		dummy.Exp(dummy, exp, m)
	}
	jitterSink.Add(dummy.Uint64())
}
