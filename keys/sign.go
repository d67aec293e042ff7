package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// Signature algorithm names accepted in attestation headers.
const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

// DigestFor hashes message with the named algorithm. Used by the
// Dilithium3 path, which signs a fixed-size digest of the payload.
func DigestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// SignEd25519 signs the message bytes directly. Ed25519 attestation
// signatures cover the exact payload serialization, not a digest.
func SignEd25519(message []byte, privateKey ed25519.PrivateKey) []byte {
	return ed25519.Sign(privateKey, message)
}

// VerifyEd25519 reports whether sig is a valid signature of message.
func VerifyEd25519(pub ed25519.PublicKey, message, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, message, sig)
}

// SignDilithium3 signs hash(message) with a Dilithium3 private key.
// hashAlg must be one of: sha256, sha512, sha3-256.
func SignDilithium3(message []byte, hashAlg string, privateKey *mode3.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("missing private key")
	}
	digest, err := DigestFor(hashAlg, message)
	if err != nil {
		return nil, err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(privateKey, digest, sig)
	return sig, nil
}

// VerifyDilithium3 reports whether sig is a valid Dilithium3 signature
// of hash(message).
func VerifyDilithium3(pub *mode3.PublicKey, message, sig []byte, hashAlg string) bool {
	if pub == nil || len(sig) != mode3.SignatureSize {
		return false
	}
	digest, err := DigestFor(hashAlg, message)
	if err != nil {
		return false
	}
	return mode3.Verify(pub, digest, sig)
}

// GenerateDilithium3Keypair returns a new Dilithium3 keypair.
func GenerateDilithium3Keypair(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}
