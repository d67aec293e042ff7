// Package scope decides whether the attestations collected for one
// commit cover what the chosen execution path requires. Substitutions
// (security standing in for release_management) come from the Profile's
// path requirement data, so the satisfier itself has no hardcoded
// domain knowledge.
package scope

import (
	"fmt"
	"strings"

	"hap.dev/hap/profile"
)

// Requirement names one unmet requirement. Environment is empty for
// v0.3 domain requirements.
type Requirement struct {
	Domain      string
	Environment string
}

func (r Requirement) String() string {
	if r.Environment == "" {
		return r.Domain
	}
	return r.Domain + "@" + r.Environment
}

// InsufficientError reports exactly which requirements are still
// uncovered, so the caller can say who still needs to attest.
type InsufficientError struct {
	Missing []Requirement
}

func (e *InsufficientError) Error() string {
	if e == nil || len(e.Missing) == 0 {
		return "scope: insufficient coverage"
	}
	names := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		names = append(names, m.String())
	}
	return fmt.Sprintf("scope: insufficient coverage, missing %s", strings.Join(names, ", "))
}

// CheckDomains checks v0.3 coverage: the set of domains attested so far
// against the path's required domain set. An empty covered set is
// always insufficient, never vacuously valid.
func CheckDomains(req profile.PathRequirement, covered []string) error {
	if len(covered) == 0 {
		return &InsufficientError{Missing: domainRequirements(req)}
	}
	var missing []Requirement
	for _, required := range req.Domains {
		if !anyDomainSatisfies(req, required, covered) {
			missing = append(missing, Requirement{Domain: required})
		}
	}
	if len(missing) > 0 {
		return &InsufficientError{Missing: missing}
	}
	return nil
}

// CheckScopes checks v0.2 coverage: collected {domain, environment}
// scope pairs against the path's required pairs. A substitution only
// applies within the same environment.
func CheckScopes(req profile.PathRequirement, covered []profile.Scope) error {
	if len(covered) == 0 {
		return &InsufficientError{Missing: scopeRequirements(req)}
	}
	var missing []Requirement
	for _, required := range req.Scopes {
		if !anyScopeSatisfies(req, required, covered) {
			missing = append(missing, Requirement{Domain: required.Domain, Environment: required.Environment})
		}
	}
	if len(missing) > 0 {
		return &InsufficientError{Missing: missing}
	}
	return nil
}

func anyDomainSatisfies(req profile.PathRequirement, required string, covered []string) bool {
	for _, c := range covered {
		if req.SatisfiedBy(required, c) {
			return true
		}
	}
	return false
}

func anyScopeSatisfies(req profile.PathRequirement, required profile.Scope, covered []profile.Scope) bool {
	for _, c := range covered {
		if c.Environment != required.Environment {
			continue
		}
		if req.SatisfiedBy(required.Domain, c.Domain) {
			return true
		}
	}
	return false
}

func domainRequirements(req profile.PathRequirement) []Requirement {
	out := make([]Requirement, 0, len(req.Domains))
	for _, d := range req.Domains {
		out = append(out, Requirement{Domain: d})
	}
	return out
}

func scopeRequirements(req profile.PathRequirement) []Requirement {
	out := make([]Requirement, 0, len(req.Scopes))
	for _, s := range req.Scopes {
		out = append(out, Requirement{Domain: s.Domain, Environment: s.Environment})
	}
	return out
}
