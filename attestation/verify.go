package attestation

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"hap.dev/hap/frame"
	"hap.dev/hap/keys"
	"hap.dev/hap/profile"
)

// KeySet maps key ids to hex-encoded public keys. This is the verifier
// side of public key distribution.
type KeySet map[string]string

// PublicKeyHex resolves a key id.
func (ks KeySet) PublicKeyHex(kid string) (string, error) {
	pub, ok := ks[kid]
	if !ok {
		return "", newError(KindSignature, "HAP-SIG-404", "unknown key id "+kid)
	}
	return pub, nil
}

// VerifySignature checks the signature over the exact payload bytes
// against a hex-distributed public key. Failure is KindSignature.
func (a *Attestation) VerifySignature(pubHex string) error {
	switch a.Header.Alg {
	case keys.AlgEd25519:
		pub, err := keys.ParsePublicKeyHex(pubHex)
		if err != nil {
			return wrapError(KindSignature, "HAP-SIG-410", "unusable public key", err)
		}
		if !keys.VerifyEd25519(pub, a.payloadBytes, a.Signature) {
			return newError(KindSignature, "HAP-SIG-401", "signature invalid")
		}
		return nil
	case keys.AlgDilithium3:
		raw, err := hex.DecodeString(pubHex)
		if err != nil {
			return wrapError(KindSignature, "HAP-SIG-411", "unusable public key hex", err)
		}
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(raw); err != nil {
			return wrapError(KindSignature, "HAP-SIG-412", "invalid dilithium3 public key", err)
		}
		if !keys.VerifyDilithium3(&pk, a.payloadBytes, a.Signature, "sha256") {
			return newError(KindSignature, "HAP-SIG-401", "signature invalid")
		}
		return nil
	default:
		return newError(KindSignature, "HAP-SIG-402", "unsupported signature algorithm")
	}
}

// CheckExpiry compares the payload expiry to now. An attestation whose
// expires_at equals now is already expired.
func (a *Attestation) CheckExpiry(now time.Time) error {
	if a.Payload.ExpiresAt() <= now.Unix() {
		return newError(KindExpired, "HAP-EXP-001", "attestation expired")
	}
	return nil
}

// VerifyFrameBinding recomputes the expected Frame hash from
// caller-supplied parameters under prof and compares it to the bound
// hash. The executor calls this with its own Frame parameters rather
// than trusting client-supplied hashes.
func (a *Attestation) VerifyFrameBinding(f frame.Frame, prof *profile.Profile) error {
	expected, err := frame.Hash(f, prof)
	if err != nil {
		var verr *frame.ValidationError
		if errors.As(err, &verr) {
			return wrapError(KindValidation, "HAP-FRAME-100", "frame parameters invalid", err)
		}
		return wrapError(KindInternal, "HAP-FRAME-101", "frame hash failure", err)
	}
	if a.Payload.FrameHash() != expected {
		return newError(KindFrameMismatch, "HAP-FRAME-401", "attestation is bound to a different frame")
	}
	return nil
}

// Verify runs the full sequential check: decode, signature, expiry,
// frame binding. Each failure keeps its categorical Kind; the sequence
// short-circuits on the first failure.
func Verify(blob, pubHex string, f frame.Frame, prof *profile.Profile, now time.Time) (*Attestation, error) {
	a, err := DecodeBlob(blob)
	if err != nil {
		return nil, err
	}
	if err := a.VerifySignature(pubHex); err != nil {
		return nil, err
	}
	if err := a.CheckExpiry(now); err != nil {
		return nil, err
	}
	if err := a.VerifyFrameBinding(f, prof); err != nil {
		return nil, err
	}
	return a, nil
}
