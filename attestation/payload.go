// Package attestation implements the signed core of the protocol: the
// versioned payload union, the Ed25519 signer, the transport blob
// codec, the fenced text-block codec for comment threads, and the
// sequential verifier.
package attestation

import (
	"encoding/json"

	"hap.dev/hap/profile"
)

// AttestationType is the header typ value for all attestations.
const AttestationType = "hap-attestation"

// Header identifies how an attestation was signed.
type Header struct {
	Typ string `json:"typ"`
	Alg string `json:"alg"`
	KID string `json:"kid"`
}

// OwnerScope is one decision owner's {did, domain, environment} claim
// in a v0.2 payload.
type OwnerScope struct {
	DID         string `json:"did"`
	Domain      string `json:"domain"`
	Environment string `json:"environment"`
}

// ResolvedDomain is one domain's entry in a v0.3 payload, binding the
// domain owner to their slice of the disclosure.
type ResolvedDomain struct {
	Domain         string `json:"domain"`
	DID            string `json:"did"`
	Environment    string `json:"environment"`
	DisclosureHash string `json:"disclosure_hash"`
}

// PayloadV02 is the signed body of a v0.2 attestation. Field order here
// fixes the signed JSON serialization; do not reorder.
type PayloadV02 struct {
	ID        string       `json:"id"`
	Version   string       `json:"v"`
	ProfileID string       `json:"profile"`
	FrameHash string       `json:"frame_hash"`
	Gates     []string     `json:"gates"`
	Owners    []string     `json:"owners"`
	Scopes    []OwnerScope `json:"scopes"`
	IssuedAt  int64        `json:"issued_at"`
	ExpiresAt int64        `json:"expires_at"`
}

// PayloadV03 is the signed body of a v0.3 attestation.
type PayloadV03 struct {
	ID        string           `json:"id"`
	Version   string           `json:"v"`
	ProfileID string           `json:"profile"`
	FrameHash string           `json:"frame_hash"`
	Domains   []ResolvedDomain `json:"domains"`
	IssuedAt  int64            `json:"issued_at"`
	ExpiresAt int64            `json:"expires_at"`
}

// Version tag values carried in the payload "v" field.
const (
	VersionTagV02 = "0.2"
	VersionTagV03 = "0.3"
)

// Payload is the versioned payload union: exactly one arm is non-nil.
// Consumers switch exhaustively on Version(); there is no field-presence
// sniffing beyond the tag itself.
type Payload struct {
	V02 *PayloadV02
	V03 *PayloadV03
}

// clone deep-copies the populated arm so defaulting never writes
// through the caller's pointers.
func (p Payload) clone() Payload {
	switch {
	case p.V02 != nil:
		c := *p.V02
		c.Gates = append([]string(nil), p.V02.Gates...)
		c.Owners = append([]string(nil), p.V02.Owners...)
		c.Scopes = append([]OwnerScope(nil), p.V02.Scopes...)
		return Payload{V02: &c}
	case p.V03 != nil:
		c := *p.V03
		c.Domains = append([]ResolvedDomain(nil), p.V03.Domains...)
		return Payload{V03: &c}
	default:
		return Payload{}
	}
}

// Version returns the protocol version of the populated arm.
func (p Payload) Version() profile.Version {
	switch {
	case p.V02 != nil:
		return profile.V02
	case p.V03 != nil:
		return profile.V03
	default:
		return ""
	}
}

// ID returns the payload id regardless of version.
func (p Payload) ID() string {
	switch {
	case p.V02 != nil:
		return p.V02.ID
	case p.V03 != nil:
		return p.V03.ID
	default:
		return ""
	}
}

// ProfileID returns the committed profile id.
func (p Payload) ProfileID() string {
	switch {
	case p.V02 != nil:
		return p.V02.ProfileID
	case p.V03 != nil:
		return p.V03.ProfileID
	default:
		return ""
	}
}

// FrameHash returns the bound Frame hash.
func (p Payload) FrameHash() string {
	switch {
	case p.V02 != nil:
		return p.V02.FrameHash
	case p.V03 != nil:
		return p.V03.FrameHash
	default:
		return ""
	}
}

// IssuedAt returns the issue time (unix seconds).
func (p Payload) IssuedAt() int64 {
	switch {
	case p.V02 != nil:
		return p.V02.IssuedAt
	case p.V03 != nil:
		return p.V03.IssuedAt
	default:
		return 0
	}
}

// ExpiresAt returns the expiry time (unix seconds).
func (p Payload) ExpiresAt() int64 {
	switch {
	case p.V02 != nil:
		return p.V02.ExpiresAt
	case p.V03 != nil:
		return p.V03.ExpiresAt
	default:
		return 0
	}
}

// MarshalJSON serializes the populated arm. The signed bytes are
// exactly this serialization with no extraneous whitespace.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch {
	case p.V02 != nil:
		return json.Marshal(p.V02)
	case p.V03 != nil:
		return json.Marshal(p.V03)
	default:
		return nil, newError(KindInternal, "HAP-PAY-001", "empty payload union")
	}
}

// decodePayload parses raw payload JSON into the tagged union by
// inspecting the "v" field.
func decodePayload(raw []byte) (Payload, error) {
	var tag struct {
		Version string `json:"v"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return Payload{}, wrapError(KindMalformed, "HAP-PAY-010", "payload is not valid JSON", err)
	}
	switch tag.Version {
	case VersionTagV02:
		var p PayloadV02
		if err := json.Unmarshal(raw, &p); err != nil {
			return Payload{}, wrapError(KindMalformed, "HAP-PAY-011", "invalid v0.2 payload", err)
		}
		return Payload{V02: &p}, nil
	case VersionTagV03:
		var p PayloadV03
		if err := json.Unmarshal(raw, &p); err != nil {
			return Payload{}, wrapError(KindMalformed, "HAP-PAY-012", "invalid v0.3 payload", err)
		}
		return Payload{V03: &p}, nil
	default:
		return Payload{}, newError(KindMalformed, "HAP-PAY-013", "unsupported payload version tag")
	}
}
