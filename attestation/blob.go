package attestation

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"hap.dev/hap/cidutil"
)

// Attestation is a decoded, immutable {header, payload, signature}
// triple together with its transport encoding. Create one with Sign or
// DecodeBlob; never construct by hand.
type Attestation struct {
	Header    Header
	Payload   Payload
	Signature []byte

	payloadBytes []byte
	blob         string
}

// envelope is the transport JSON layout inside the blob.
type envelope struct {
	Header    Header          `json:"header"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// Blob returns the transport blob: URL-safe base64, padding stripped,
// of the envelope JSON.
func (a *Attestation) Blob() string { return a.blob }

// ID returns the attestation id: the content hash of the encoded blob,
// not of the payload.
func (a *Attestation) ID() string {
	return cidutil.ContentHash([]byte(a.blob))
}

// CID returns a CIDv1 (raw + sha2-256) for the encoded blob, for
// evidence-store addressing.
func (a *Attestation) CID() string {
	return cidutil.CIDv1RawSHA256([]byte(a.blob))
}

// PayloadBytes returns a copy of the exact byte sequence the signature
// covers.
func (a *Attestation) PayloadBytes() []byte {
	return append([]byte(nil), a.payloadBytes...)
}

func encodeEnvelope(h Header, payloadBytes, sig []byte) (string, error) {
	env := envelope{
		Header:    h,
		Payload:   json.RawMessage(payloadBytes),
		Signature: base64.StdEncoding.EncodeToString(sig),
	}
	b, err := json.Marshal(env)
	if err != nil {
		return "", wrapError(KindInternal, "HAP-BLOB-001", "envelope marshal failure", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeBlob decodes a transport blob. Any corruption (bad base64,
// bad JSON, wrong typ, unusable signature) is KindMalformed; a
// malformed attestation is never partially trusted.
func DecodeBlob(blob string) (*Attestation, error) {
	if blob == "" {
		return nil, newError(KindMalformed, "HAP-BLOB-010", "empty blob")
	}
	raw, err := base64.RawURLEncoding.DecodeString(blob)
	if err != nil {
		return nil, wrapError(KindMalformed, "HAP-BLOB-011", "blob is not URL-safe base64", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, wrapError(KindMalformed, "HAP-BLOB-012", "blob is not envelope JSON", err)
	}
	if env.Header.Typ != AttestationType {
		return nil, newError(KindMalformed, "HAP-BLOB-013", "unexpected header typ")
	}
	if env.Header.KID == "" {
		return nil, newError(KindMalformed, "HAP-BLOB-014", "missing header kid")
	}

	payload, err := decodePayload(env.Payload)
	if err != nil {
		return nil, err
	}

	sig, err := base64.StdEncoding.DecodeString(env.Signature)
	if err != nil {
		return nil, wrapError(KindMalformed, "HAP-BLOB-015", "invalid signature base64", err)
	}
	switch env.Header.Alg {
	case "ed25519":
		if len(sig) != ed25519.SignatureSize {
			return nil, newError(KindMalformed, "HAP-BLOB-016", "invalid ed25519 signature length")
		}
	case "dilithium3":
		if len(sig) != mode3.SignatureSize {
			return nil, newError(KindMalformed, "HAP-BLOB-017", "invalid dilithium3 signature length")
		}
	default:
		return nil, newError(KindMalformed, "HAP-BLOB-018", "unsupported header alg")
	}

	return &Attestation{
		Header:       env.Header,
		Payload:      payload,
		Signature:    sig,
		payloadBytes: append([]byte(nil), env.Payload...),
		blob:         blob,
	}, nil
}
