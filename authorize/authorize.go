// Package authorize is the executor side of the protocol. It composes
// the attestation verifier and the scope satisfier into one decision,
// and returns only structural facts: the executor never sees reviewed
// content, only hashes of it ("blind execution").
package authorize

import (
	"fmt"
	"time"

	"hap.dev/hap/attestation"
	"hap.dev/hap/frame"
	"hap.dev/hap/profile"
	"hap.dev/hap/scope"
)

// Authorization is the minimal structural record handed to the
// execution backend. Fields that were only ever hashed, never disclosed
// in the clear, are deliberately absent.
type Authorization struct {
	AttestationIDs []string
	ProfileID      string
	FrameHash      string

	// Scopes is populated for v0.2 profiles, Domains for v0.3.
	Scopes  []profile.Scope
	Domains []string

	// Validity window: the intersection of all contributing
	// attestations' windows, unix seconds.
	NotBefore int64
	NotAfter  int64
}

// Authorize verifies every supplied attestation blob against the
// caller's own Frame parameters, checks the committed profile id, and
// checks scope coverage for the execution path named in the Frame.
//
// The executor recomputes the Frame hash itself from f; it never trusts
// a client-supplied hash. Every error keeps its categorical type:
// profile.ErrUnknownProfile / ErrUnknownExecutionPath,
// attestation Kinds, or *scope.InsufficientError.
func Authorize(blobs []string, keySet attestation.KeySet, f frame.Frame, expectedProfile string, now time.Time) (*Authorization, error) {
	prof, err := profile.Lookup(expectedProfile)
	if err != nil {
		return nil, err
	}
	req, err := prof.PathRequirement(f.Path)
	if err != nil {
		return nil, err
	}

	frameHash, err := frame.Hash(f, prof)
	if err != nil {
		return nil, err
	}

	auth := &Authorization{ProfileID: prof.ID, FrameHash: frameHash}
	var coveredScopes []profile.Scope
	var coveredDomains []string
	seenDomain := make(map[string]bool)
	seenScope := make(map[profile.Scope]bool)

	for _, blob := range blobs {
		a, err := attestation.DecodeBlob(blob)
		if err != nil {
			return nil, err
		}
		if a.Payload.ProfileID() != expectedProfile {
			return nil, fmt.Errorf("%w: attestation committed to profile %q, expected %q",
				profile.ErrUnknownProfile, a.Payload.ProfileID(), expectedProfile)
		}
		pubHex, err := keySet.PublicKeyHex(a.Header.KID)
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

		auth.AttestationIDs = append(auth.AttestationIDs, a.ID())
		switch {
		case a.Payload.V02 != nil:
			for _, sc := range a.Payload.V02.Scopes {
				s := profile.Scope{Domain: sc.Domain, Environment: sc.Environment}
				if !seenScope[s] {
					seenScope[s] = true
					coveredScopes = append(coveredScopes, s)
				}
			}
		case a.Payload.V03 != nil:
			for _, d := range a.Payload.V03.Domains {
				if !seenDomain[d.Domain] {
					seenDomain[d.Domain] = true
					coveredDomains = append(coveredDomains, d.Domain)
				}
			}
		}
		issued, expires := a.Payload.IssuedAt(), a.Payload.ExpiresAt()
		if auth.NotBefore == 0 || issued > auth.NotBefore {
			auth.NotBefore = issued
		}
		if auth.NotAfter == 0 || expires < auth.NotAfter {
			auth.NotAfter = expires
		}
	}

	switch prof.Version {
	case profile.V02:
		if err := scope.CheckScopes(req, coveredScopes); err != nil {
			return nil, err
		}
		auth.Scopes = coveredScopes
	case profile.V03:
		if err := scope.CheckDomains(req, coveredDomains); err != nil {
			return nil, err
		}
		auth.Domains = coveredDomains
	}
	return auth, nil
}
