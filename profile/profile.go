// Package profile defines the static schema catalogue for the
// deployment-authorization protocol. A Profile is pure data: field
// layouts and validation patterns for the Frame, the disclosure schema,
// the execution-path requirement map, and TTL policy. Profiles are
// defined at build time, looked up by id, and never mutated.
package profile

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// Version identifies the protocol generation a Profile belongs to.
type Version string

const (
	V02 Version = "v0.2"
	V03 Version = "v0.3"
)

var (
	ErrUnknownProfile       = errors.New("profile: unknown profile")
	ErrUnknownExecutionPath = errors.New("profile: unknown execution path")
)

// FieldSpec validates one Frame field. Exactly one of Pattern or
// Allowed is set.
type FieldSpec struct {
	Name    string
	Pattern *regexp.Regexp
	Allowed []string
}

// Matches reports whether value satisfies the spec.
func (f FieldSpec) Matches(value string) bool {
	if f.Pattern != nil {
		return f.Pattern.MatchString(value)
	}
	for _, a := range f.Allowed {
		if value == a {
			return true
		}
	}
	return false
}

// DomainFieldSpec bounds one per-domain disclosure field.
type DomainFieldSpec struct {
	Name   string
	MinLen int
	MaxLen int
}

// Scope is a {domain, environment} pair required by a v0.2 execution path.
type Scope struct {
	Domain      string `json:"domain"`
	Environment string `json:"environment"`
}

func (s Scope) String() string {
	return s.Domain + "@" + s.Environment
}

// PathRequirement describes what attesters an execution path needs.
//
// v0.2 profiles populate Scopes; v0.3 profiles populate Domains.
// Substitutions maps a required domain to the domains whose
// attestations may stand in for it. The mapping is asymmetric and
// explicit: listing security under release_management does not make
// release_management satisfy security.
type PathRequirement struct {
	Domains       []string
	Scopes        []Scope
	Substitutions map[string][]string
}

// SatisfiedBy reports whether covered satisfies the required domain,
// directly or through a declared substitution.
func (r PathRequirement) SatisfiedBy(required, covered string) bool {
	if required == covered {
		return true
	}
	for _, sub := range r.Substitutions[required] {
		if covered == sub {
			return true
		}
	}
	return false
}

// Profile is one immutable protocol schema.
type Profile struct {
	ID      string
	Version Version

	// FrameFields is the fixed canonical field order. Canonical Frame
	// serialization always follows this order, never supply order.
	FrameFields []FieldSpec

	// SharedDisclosureFields names the v0.2 shared disclosure keys.
	SharedDisclosureFields []string

	// DomainDisclosureFields defines the per-domain disclosure schema.
	DomainDisclosureFields []DomainFieldSpec

	ExecutionPaths map[string]PathRequirement

	TTLDefault time.Duration
	TTLMax     time.Duration
}

// FieldOrder returns the canonical Frame field names in order.
func (p *Profile) FieldOrder() []string {
	names := make([]string, 0, len(p.FrameFields))
	for _, f := range p.FrameFields {
		names = append(names, f.Name)
	}
	return names
}

// Field returns the spec for a named Frame field.
func (p *Profile) Field(name string) (FieldSpec, bool) {
	for _, f := range p.FrameFields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// DomainField returns the spec for a named per-domain disclosure field.
func (p *Profile) DomainField(name string) (DomainFieldSpec, bool) {
	for _, f := range p.DomainDisclosureFields {
		if f.Name == name {
			return f, true
		}
	}
	return DomainFieldSpec{}, false
}

// PathRequirement resolves an execution path id.
func (p *Profile) PathRequirement(path string) (PathRequirement, error) {
	req, ok := p.ExecutionPaths[path]
	if !ok {
		return PathRequirement{}, fmt.Errorf("%w: %q in profile %q", ErrUnknownExecutionPath, path, p.ID)
	}
	return req, nil
}

// Lookup returns the registered Profile for id.
func Lookup(id string) (*Profile, error) {
	p, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, id)
	}
	return p, nil
}

// IDs returns all registered profile ids, for diagnostics.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
