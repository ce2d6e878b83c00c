// seal.go - Tamper-evident export envelopes for task results.
//
// An envelope binds a payload and its metrics to the fingerprint that was
// current when the result left the system. The seal is a SHA-256 over the
// fingerprint, a payload digest and the canonical metrics encoding; altering
// any of the three invalidates it.

package seal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Version identifies the envelope layout.
const Version = "v1.0"

// Header carries the binding material of an envelope.
type Header struct {
	Version       string `json:"version"`
	TraceT        string `json:"trace_t"`
	IntegritySeal string `json:"integrity_seal"`
}

// Body carries the exported payload and optional run metrics.
type Body struct {
	Payload any               `json:"payload"`
	Metrics map[string]string `json:"metrics,omitempty"`
}

// Envelope is the sealed export unit.
type Envelope struct {
	Header Header `json:"header"`
	Body   Body   `json:"body"`
}

func payloadHash(payload any) (string, error) {
	var raw []byte
	switch v := payload.(type) {
	case string:
		raw = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("payload not sealable: %w", err)
		}
		raw = b
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func computeSeal(traceT string, payload any, metrics map[string]string) (string, error) {
	ph, err := payloadHash(payload)
	if err != nil {
		return "", err
	}
	mj := "{}"
	if metrics != nil {
		b, err := json.Marshal(metrics)
		if err != nil {
			return "", fmt.Errorf("metrics not sealable: %w", err)
		}
		mj = string(b)
	}
	sum := sha256.Sum256([]byte(traceT + "|" + ph + "|" + mj))
	return hex.EncodeToString(sum[:]), nil
}

// Seal wraps a payload in a versioned envelope bound to traceT.
func Seal(traceT string, payload any, metrics map[string]string) (*Envelope, error) {
	s, err := computeSeal(traceT, payload, metrics)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Header: Header{Version: Version, TraceT: traceT, IntegritySeal: s},
		Body:   Body{Payload: payload, Metrics: metrics},
	}, nil
}

// Verify recomputes the seal from the envelope contents and compares it to
// the stored one.
func Verify(e *Envelope) (bool, error) {
	if e.Header.Version != Version {
		return false, fmt.Errorf("unsupported envelope version %q", e.Header.Version)
	}
	s, err := computeSeal(e.Header.TraceT, e.Body.Payload, e.Body.Metrics)
	if err != nil {
		return false, err
	}
	return s == e.Header.IntegritySeal, nil
}
