// setup.go - One-shot trusted setup: an RSA-like composite modulus from two
// random primes.
//
// The primes p and q never cross this package's boundary. Candidate entropy
// is drawn into mlocked memguard buffers (no swap, guard pages, wipe on
// destroy) and the big.Int limbs holding p and q are zeroed as soon as n is
// formed: relying on garbage-collection timing would leave the secret words
// in reusable memory. If the system's mlock limit is too low the setup fails
// closed unless HOLOPASS_INSECURE_MEMORY=true, which falls back to ordinary
// memory with best-effort zeroing.

package holo

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/sys/unix"
)

// minMlockKB is the mlock headroom required for setup scratch buffers.
const minMlockKB = 64

var (
	secureMemOnce sync.Once
	secureMemOK   bool
	mlockLimitKB  int64

	insecureMemVar = "HOLOPASS_INSECURE_MEMORY"
	errMlockTooLow = fmt.Errorf("mlock limit below %d KB; raise RLIMIT_MEMLOCK or set %s=true", minMlockKB, insecureMemVar)
)

// initSecureMemory probes the mlock limit once and arms memguard's interrupt
// handler so locked buffers are purged on SIGINT/SIGTERM.
func initSecureMemory() {
	secureMemOnce.Do(func() {
		memguard.CatchInterrupt()
		secureMemOK, mlockLimitKB = checkMlockLimit()
	})
}

// checkMlockLimit queries RLIMIT_MEMLOCK. An unreadable limit is treated as
// sufficient; the kernel will still refuse the mlock if it is not.
func checkMlockLimit() (bool, int64) {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlimit); err != nil {
		return true, -1
	}
	if rlimit.Cur == unix.RLIM_INFINITY {
		return true, -1
	}
	limitKB := int64(rlimit.Cur / 1024)
	return limitKB >= minMlockKB, limitKB
}

// PurgeSecureMemory wipes every memguard-allocated buffer. Call during
// graceful shutdown.
func PurgeSecureMemory() {
	memguard.Purge()
}

// GenerateSafeModulus generates two independent random primes of bitLength/2
// bits, returns n = p*q as a base-10 string, and destroys the primes. Only n
// survives the call.
func GenerateSafeModulus(bitLength int) (string, error) {
	if bitLength < 16 || bitLength%2 != 0 {
		return "", fmt.Errorf("%w: bit length must be an even number >= 16", ErrInvalidNumericFormat)
	}
	initSecureMemory()

	p, err := randomPrime(bitLength / 2)
	if err != nil {
		return "", fmt.Errorf("prime generation failed: %w", err)
	}
	q, err := randomPrime(bitLength / 2)
	if err != nil {
		wipeInt(p)
		return "", fmt.Errorf("prime generation failed: %w", err)
	}

	n := new(big.Int).Mul(p, q)
	wipeInt(p)
	wipeInt(q)

	return n.Text(10), nil
}

// randomPrime draws a random odd candidate with the top two bits set (so the
// product keeps the full bit length) into a locked buffer, then walks forward
// to the next probable prime.
func randomPrime(bits int) (*big.Int, error) {
	byteLen := (bits + 7) / 8

	var candidate *big.Int
	if secureMemOK {
		buf := memguard.NewBufferRandom(byteLen)
		if buf == nil {
			return nil, fmt.Errorf("locked buffer allocation failed")
		}
		defer buf.Destroy()
		buf.Melt()

		b := buf.Bytes()
		b[0] |= 0xC0
		b[byteLen-1] |= 0x01
		candidate = new(big.Int).SetBytes(b)
	} else {
		if os.Getenv(insecureMemVar) != "true" {
			return nil, errMlockTooLow
		}
		b := make([]byte, byteLen)
		if _, err := rand.Read(b); err != nil {
			return nil, err
		}
		b[0] |= 0xC0
		b[byteLen-1] |= 0x01
		candidate = new(big.Int).SetBytes(b)
		for i := range b {
			b[i] = 0
		}
	}

	two := big.NewInt(2)
	for !candidate.ProbablyPrime(millerRabinRounds) {
		candidate.Add(candidate, two)
	}
	return candidate, nil
}

// wipeInt overwrites a big.Int's backing words before release.
func wipeInt(x *big.Int) {
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	x.SetInt64(0)
}
