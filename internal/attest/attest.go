// attest.go - Groth16 attestations over snapshot chain links.
//
// An attestation lets an auditor confirm that a snapshot record was produced
// by someone who held the folded fingerprint and the previous chain hash,
// without revealing either. The public value is a native MiMC hash of the two
// SHA-256 digests; the proof shows the prover knows preimages that MiMC-hash
// to it inside the circuit.

package attest

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bw6-761/fr/mimc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"holopass/internal/holo"
)

// Attestor holds the compiled circuit and Groth16 key pair.
type Attestor struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// NewAttestor compiles the chain-link circuit and loads or generates the
// Groth16 keys at the given paths.
func NewAttestor(pkPath, vkPath string) (*Attestor, error) {
	var circuit ChainLinkCircuit
	ccs, err := frontend.Compile(ecc.BW6_761.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("circuit compilation failed: %w", err)
	}
	pk, vk, err := SetupOrLoadKeys(ccs, pkPath, vkPath)
	if err != nil {
		return nil, fmt.Errorf("key setup failed: %w", err)
	}
	return &Attestor{ccs: ccs, pk: pk, vk: vk}, nil
}

// digests returns the two SHA-256 digests a record is attested through. Both
// fit the BW6-761 scalar field (256 < 377 bits).
func digests(rec holo.SnapshotRecord) (*big.Int, *big.Int) {
	fd := sha256.Sum256([]byte(rec.FinalT))
	pd := sha256.Sum256([]byte(rec.PrevHash))
	return new(big.Int).SetBytes(fd[:]), new(big.Int).SetBytes(pd[:])
}

// AttestationValue computes the public MiMC attestation for a record,
// returned as a decimal string.
func AttestationValue(rec holo.SnapshotRecord) string {
	fd, pd := digests(rec)
	h := mimcNative.NewMiMC()
	h.Write(fieldBytes(fd))
	h.Write(fieldBytes(pd))
	return new(big.Int).SetBytes(h.Sum(nil)).String()
}

// fieldBytes left-pads a value to the MiMC block size so native and
// in-circuit hashing agree.
func fieldBytes(v *big.Int) []byte {
	b := make([]byte, mimcNative.BlockSize)
	v.FillBytes(b)
	return b
}

// Attest produces the public attestation and a Groth16 proof for a snapshot
// record.
func (a *Attestor) Attest(rec holo.SnapshotRecord) (string, []byte, error) {
	fd, pd := digests(rec)
	attestation := AttestationValue(rec)

	witness := &ChainLinkCircuit{
		Attestation: attestation,
		FinalDigest: fd.String(),
		PrevDigest:  pd.String(),
	}
	w, err := frontend.NewWitness(witness, ecc.BW6_761.ScalarField())
	if err != nil {
		return "", nil, fmt.Errorf("witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(a.ccs, a.pk, w)
	if err != nil {
		return "", nil, fmt.Errorf("proof generation failed: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return "", nil, fmt.Errorf("proof marshaling failed: %w", err)
	}
	return attestation, buf.Bytes(), nil
}

// VerifyAttestation checks a proof against a public attestation value.
func (a *Attestor) VerifyAttestation(attestation string, proofBytes []byte) error {
	witness := &ChainLinkCircuit{Attestation: attestation}
	w, err := frontend.NewWitness(witness, ecc.BW6_761.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("public witness creation failed: %w", err)
	}
	proof := groth16.NewProof(ecc.BW6_761)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("proof unmarshaling failed: %w", err)
	}
	if err := groth16.Verify(proof, a.vk, w); err != nil {
		return fmt.Errorf("proof verification failed: %w", err)
	}
	return nil
}

// SaveProvingKey saves a Groth16 proving key to disk.
func SaveProvingKey(path string, pk groth16.ProvingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = pk.WriteTo(f)
	return err
}

// SaveVerifyingKey saves a Groth16 verifying key to disk.
func SaveVerifyingKey(path string, vk groth16.VerifyingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = vk.WriteTo(f)
	return err
}

// LoadProvingKey loads a Groth16 proving key from disk.
func LoadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BW6_761)
	_, err = pk.ReadFrom(f)
	return pk, err
}

// LoadVerifyingKey loads a Groth16 verifying key from disk.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BW6_761)
	_, err = vk.ReadFrom(f)
	return vk, err
}

// SetupOrLoadKeys loads the Groth16 key pair from disk, generating and
// persisting a fresh pair when either file is missing.
func SetupOrLoadKeys(ccs constraint.ConstraintSystem, pkPath, vkPath string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk, pkErr := LoadProvingKey(pkPath)
	vk, vkErr := LoadVerifyingKey(vkPath)
	if pkErr == nil && vkErr == nil {
		return pk, vk, nil
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, err
	}
	if err := SaveProvingKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := SaveVerifyingKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}
