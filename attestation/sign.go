package attestation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hap.dev/hap/cidutil"
	"hap.dev/hap/keys"
	"hap.dev/hap/profile"
)

// Signer is the server-side signing authority surface. Key material is
// acquired once (see keys.ProcessAuthority) and held read-only; Sign is
// safe for concurrent use.
type Signer struct {
	Authority *keys.Authority

	// Clock overrides time.Now in tests. Nil means time.Now.
	Clock func() time.Time
}

// NewSigner returns a Signer backed by auth.
func NewSigner(auth *keys.Authority) *Signer {
	return &Signer{Authority: auth}
}

func (s *Signer) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Sign validates p against prof, fills defaults (payload id, validity
// window) on a private copy, signs the exact payload JSON with Ed25519,
// and returns the assembled attestation. The caller's payload is never
// modified. Signing is refused when the validity window would exceed
// the profile's max TTL.
func (s *Signer) Sign(p Payload, prof *profile.Profile) (*Attestation, error) {
	if s.Authority == nil {
		return nil, newError(KindInternal, "HAP-SIGN-001", "signer has no authority")
	}
	if p.Version() == "" {
		return nil, newError(KindValidation, "HAP-VAL-100", "payload union is empty")
	}
	if p.Version() != prof.Version {
		return nil, newError(KindValidation, "HAP-VAL-102",
			fmt.Sprintf("payload version %s does not match profile %s", p.Version(), prof.ID))
	}

	p = p.clone()
	now := s.now().Unix()
	applyDefaults(p, now, prof)

	if violations := validatePayload(p, prof); len(violations) > 0 {
		return nil, newError(KindValidation, "HAP-VAL-101",
			"invalid payload: "+strings.Join(violations, "; "))
	}

	payloadBytes, err := p.MarshalJSON()
	if err != nil {
		return nil, err
	}
	sig := s.Authority.Sign(payloadBytes)
	header := Header{Typ: AttestationType, Alg: keys.AlgEd25519, KID: s.Authority.KID()}

	blob, err := encodeEnvelope(header, payloadBytes, sig)
	if err != nil {
		return nil, err
	}
	return &Attestation{
		Header:       header,
		Payload:      p,
		Signature:    sig,
		payloadBytes: payloadBytes,
		blob:         blob,
	}, nil
}

func applyDefaults(p Payload, now int64, prof *profile.Profile) {
	switch {
	case p.V02 != nil:
		if p.V02.ID == "" {
			p.V02.ID = uuid.NewString()
		}
		if p.V02.Version == "" {
			p.V02.Version = VersionTagV02
		}
		if p.V02.IssuedAt == 0 {
			p.V02.IssuedAt = now
		}
		if p.V02.ExpiresAt == 0 {
			p.V02.ExpiresAt = p.V02.IssuedAt + int64(prof.TTLDefault.Seconds())
		}
	case p.V03 != nil:
		if p.V03.ID == "" {
			p.V03.ID = uuid.NewString()
		}
		if p.V03.Version == "" {
			p.V03.Version = VersionTagV03
		}
		if p.V03.IssuedAt == 0 {
			p.V03.IssuedAt = now
		}
		if p.V03.ExpiresAt == 0 {
			p.V03.ExpiresAt = p.V03.IssuedAt + int64(prof.TTLDefault.Seconds())
		}
	}
}

// validatePayload collects every violation so the caller can fix the
// whole payload in one pass.
func validatePayload(p Payload, prof *profile.Profile) []string {
	var violations []string

	if p.ProfileID() != prof.ID {
		violations = append(violations, fmt.Sprintf("profile: payload says %q, signing under %q", p.ProfileID(), prof.ID))
	}
	if !cidutil.IsContentHash(p.FrameHash()) {
		violations = append(violations, "frame_hash: malformed")
	}
	issued, expires := p.IssuedAt(), p.ExpiresAt()
	if expires <= issued {
		violations = append(violations, "expires_at: must be after issued_at")
	} else if time.Duration(expires-issued)*time.Second > prof.TTLMax {
		violations = append(violations, fmt.Sprintf("expires_at: validity window exceeds profile max TTL %s", prof.TTLMax))
	}

	switch {
	case p.V02 != nil:
		if p.V02.Version != VersionTagV02 {
			violations = append(violations, fmt.Sprintf("v: expected %q, got %q", VersionTagV02, p.V02.Version))
		}
		if len(p.V02.Owners) == 0 {
			violations = append(violations, "owners: at least one decision owner is required")
		}
		if len(p.V02.Scopes) == 0 {
			violations = append(violations, "scopes: at least one scope is required")
		}
		for i, sc := range p.V02.Scopes {
			if sc.DID == "" || sc.Domain == "" || sc.Environment == "" {
				violations = append(violations, fmt.Sprintf("scopes[%d]: did, domain, and environment are all required", i))
			}
		}
	case p.V03 != nil:
		if p.V03.Version != VersionTagV03 {
			violations = append(violations, fmt.Sprintf("v: expected %q, got %q", VersionTagV03, p.V03.Version))
		}
		if len(p.V03.Domains) == 0 {
			violations = append(violations, "domains: at least one resolved domain is required")
		}
		for i, d := range p.V03.Domains {
			if d.Domain == "" || d.DID == "" || d.Environment == "" {
				violations = append(violations, fmt.Sprintf("domains[%d]: domain, did, and environment are all required", i))
			}
			if !cidutil.IsContentHash(d.DisclosureHash) {
				violations = append(violations, fmt.Sprintf("domains[%d]: disclosure_hash malformed", i))
			}
		}
	}
	return violations
}
