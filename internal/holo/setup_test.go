package holo

import (
	"errors"
	"math/big"
	"testing"
)

func TestGenerateSafeModulus(t *testing.T) {
	t.Setenv("HOLOPASS_INSECURE_MEMORY", "true")

	t.Run("Exact Bit Length Composite", func(t *testing.T) {
		nStr, err := GenerateSafeModulus(256)
		if err != nil {
			t.Fatalf("GenerateSafeModulus failed: %v", err)
		}
		n, ok := new(big.Int).SetString(nStr, 10)
		if !ok {
			t.Fatalf("modulus %q is not decimal", nStr)
		}
		if n.BitLen() != 256 {
			t.Errorf("modulus has %d bits, want 256", n.BitLen())
		}
		if n.Bit(0) != 1 {
			t.Error("product of two odd primes must be odd")
		}
		if n.ProbablyPrime(16) {
			t.Error("modulus is prime; expected a two-prime composite")
		}
	})

	t.Run("Independent Across Calls", func(t *testing.T) {
		n1, err := GenerateSafeModulus(128)
		if err != nil {
			t.Fatal(err)
		}
		n2, err := GenerateSafeModulus(128)
		if err != nil {
			t.Fatal(err)
		}
		if n1 == n2 {
			t.Error("two setups produced the same modulus")
		}
	})

	t.Run("Rejects Bad Bit Lengths", func(t *testing.T) {
		for _, bits := range []int{0, 8, 15, 257} {
			if _, err := GenerateSafeModulus(bits); !errors.Is(err, ErrInvalidNumericFormat) {
				t.Errorf("bit length %d: expected ErrInvalidNumericFormat, got %v", bits, err)
			}
		}
	})
}

func TestWipeInt(t *testing.T) {
	x := new(big.Int).SetInt64(0xDEADBEEF)
	words := x.Bits()
	wipeInt(x)
	for i, w := range words {
		if w != 0 {
			t.Errorf("word %d not cleared", i)
		}
	}
	if x.Sign() != 0 {
		t.Error("wiped integer is not zero")
	}
}

func TestJitterConfigNormalization(t *testing.T) {
	// Degenerate configs must fall back to defaults instead of panicking.
	injectJitter(JitterConfig{})
	injectJitter(JitterConfig{MinLoops: 5, MaxLoops: 5})
	injectJitter(JitterConfig{MinLoops: 2, MaxLoops: 4})
}
