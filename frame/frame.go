// Package frame canonicalizes the Frame: the exact, hashed description
// of the action a reviewer authorizes. Canonical bytes are a
// newline-joined sequence of key=value lines in the owning Profile's
// fixed field order, so two equivalent Frames always serialize
// byte-identically regardless of how they were constructed.
package frame

import (
	"fmt"
	"strings"

	"hap.dev/hap/cidutil"
	"hap.dev/hap/profile"
)

// Frame holds the raw field values for one deployment action.
// DisclosureHash is only meaningful for v0.2 profiles; v0.3 binds
// disclosure hashes per domain inside the attestation payload instead.
type Frame struct {
	Repo           string
	SHA            string
	Env            string
	Profile        string
	Path           string
	DisclosureHash string
}

// ValidationError reports every malformed or missing field, not just
// the first, so a caller can fix the whole Frame in one pass.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "frame: invalid"
	}
	return "frame: invalid: " + strings.Join(e.Violations, "; ")
}

func (f Frame) value(name string) (string, bool) {
	switch name {
	case profile.FieldRepo:
		return f.Repo, true
	case profile.FieldSHA:
		return f.SHA, true
	case profile.FieldEnv:
		return f.Env, true
	case profile.FieldProfile:
		return f.Profile, true
	case profile.FieldPath:
		return f.Path, true
	case profile.FieldDisclosureHash:
		return f.DisclosureHash, true
	default:
		return "", false
	}
}

// Canonicalize validates every field against p and returns the
// canonical byte string. The profile's field order is authoritative;
// the order fields were supplied in never matters.
func Canonicalize(f Frame, p *profile.Profile) ([]byte, error) {
	var violations []string
	lines := make([]string, 0, len(p.FrameFields))

	for _, spec := range p.FrameFields {
		v, ok := f.value(spec.Name)
		if !ok || v == "" {
			violations = append(violations, fmt.Sprintf("%s: missing", spec.Name))
			continue
		}
		if strings.ContainsAny(v, "\n\r") {
			violations = append(violations, fmt.Sprintf("%s: must not contain line breaks", spec.Name))
			continue
		}
		if !spec.Matches(v) {
			violations = append(violations, fmt.Sprintf("%s: malformed value %q", spec.Name, v))
			continue
		}
		lines = append(lines, spec.Name+"="+v)
	}

	// A populated field the profile does not define is as much an error
	// as a missing one; it would silently vanish from the hash.
	if f.DisclosureHash != "" {
		if _, ok := p.Field(profile.FieldDisclosureHash); !ok {
			violations = append(violations, "disclosure_hash: not a field of profile "+p.ID)
		}
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return []byte(strings.Join(lines, "\n")), nil
}

// Hash returns the protocol content hash of the canonical Frame bytes.
func Hash(f Frame, p *profile.Profile) (string, error) {
	canonical, err := Canonicalize(f, p)
	if err != nil {
		return "", err
	}
	return cidutil.ContentHash(canonical), nil
}
