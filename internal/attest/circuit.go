package attest

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// ChainLinkCircuit proves knowledge of the preimages behind a public
// attestation of a snapshot link. The prover knows the SHA-256 digests of the
// folded fingerprint and of the previous snapshot hash; the verifier sees only
// their MiMC combination.
type ChainLinkCircuit struct {
	// Public inputs
	Attestation frontend.Variable `gnark:",public"`

	// Private inputs
	FinalDigest frontend.Variable
	PrevDigest  frontend.Variable
}

func (c *ChainLinkCircuit) Define(api frontend.API) error {
	hasher, _ := mimc.NewMiMC(api)
	hasher.Write(c.FinalDigest)
	hasher.Write(c.PrevDigest)
	api.AssertIsEqual(c.Attestation, hasher.Sum())
	return nil
}
