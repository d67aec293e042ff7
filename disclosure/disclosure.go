// Package disclosure canonicalizes what was shown to a reviewer.
//
// v0.2 hashes one aggregate document: shared fields (repo, sha, sorted
// changed-path set, sorted risk-flag set) plus a domain map of
// problem/objective/tradeoffs text. v0.3 hashes each domain's
// structured fields independently, so one domain owner's slice never
// moves another domain's hash.
//
// Canonical bytes are compact JSON with lexicographically sorted object
// keys; object construction order never affects the hash.
package disclosure

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"hap.dev/hap/cidutil"
	"hap.dev/hap/profile"
)

// DomainContent is one domain's v0.2 free-text disclosure.
type DomainContent struct {
	Problem   string `json:"problem"`
	Objective string `json:"objective"`
	Tradeoffs string `json:"tradeoffs"`
}

// Disclosure is the v0.2 aggregate reviewed content.
type Disclosure struct {
	Repo      string
	SHA       string
	Paths     []string
	RiskFlags []string
	Domains   map[string]DomainContent
}

// ValidationError reports every violation found in a disclosure, not
// just the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "disclosure: invalid"
	}
	return "disclosure: invalid: " + strings.Join(e.Violations, "; ")
}

// Canonicalize validates a v0.2 disclosure against p and returns its
// canonical bytes.
func Canonicalize(d Disclosure, p *profile.Profile) ([]byte, error) {
	if p.Version != profile.V02 {
		return nil, fmt.Errorf("disclosure: aggregate canonicalization requires a v0.2 profile, got %s", p.ID)
	}

	var violations []string
	if d.Repo == "" {
		violations = append(violations, "repo: missing")
	}
	if d.SHA == "" {
		violations = append(violations, "sha: missing")
	}

	paths, pviol := normalizePathSet(d.Paths)
	violations = append(violations, pviol...)
	sort.Strings(paths)

	flags := dedupeSorted(d.RiskFlags)

	if len(d.Domains) == 0 {
		violations = append(violations, "domains: at least one domain is required")
	}
	domains := make(map[string]map[string]string, len(d.Domains))
	for name, content := range d.Domains {
		if name == "" {
			violations = append(violations, "domains: empty domain name")
			continue
		}
		fields := map[string]string{
			"problem":   content.Problem,
			"objective": content.Objective,
			"tradeoffs": content.Tradeoffs,
		}
		violations = append(violations, checkDomainFields(name, fields, p)...)
		domains[name] = fields
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	// Maps marshal with sorted keys, which is exactly the canonical
	// ordering rule; slices were sorted above.
	doc := map[string]any{
		"domains":    domains,
		"paths":      paths,
		"repo":       d.Repo,
		"risk_flags": flags,
		"sha":        d.SHA,
	}
	return json.Marshal(doc)
}

// Hash returns the protocol content hash of a v0.2 disclosure.
func Hash(d Disclosure, p *profile.Profile) (string, error) {
	canonical, err := Canonicalize(d, p)
	if err != nil {
		return "", err
	}
	return cidutil.ContentHash(canonical), nil
}

// CanonicalizeDomain validates one domain's v0.3 structured fields
// against p and returns that domain's canonical bytes. Adding or
// removing another domain's content cannot change this result.
func CanonicalizeDomain(domain string, fields map[string]string, p *profile.Profile) ([]byte, error) {
	if p.Version != profile.V03 {
		return nil, fmt.Errorf("disclosure: per-domain canonicalization requires a v0.3 profile, got %s", p.ID)
	}
	if domain == "" {
		return nil, &ValidationError{Violations: []string{"domain: missing"}}
	}
	if violations := checkDomainFields(domain, fields, p); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	doc := map[string]any{
		"domain": domain,
		"fields": fields,
	}
	return json.Marshal(doc)
}

// HashDomain returns the protocol content hash of one domain's v0.3
// disclosure.
func HashDomain(domain string, fields map[string]string, p *profile.Profile) (string, error) {
	canonical, err := CanonicalizeDomain(domain, fields, p)
	if err != nil {
		return "", err
	}
	return cidutil.ContentHash(canonical), nil
}

func checkDomainFields(domain string, fields map[string]string, p *profile.Profile) []string {
	var violations []string
	for _, spec := range p.DomainDisclosureFields {
		v, ok := fields[spec.Name]
		if !ok || len(v) < spec.MinLen {
			violations = append(violations, fmt.Sprintf("%s.%s: missing or too short", domain, spec.Name))
			continue
		}
		if len(v) > spec.MaxLen {
			violations = append(violations, fmt.Sprintf("%s.%s: exceeds %d bytes", domain, spec.Name, spec.MaxLen))
		}
	}
	for name := range fields {
		if _, ok := p.DomainField(name); !ok {
			violations = append(violations, fmt.Sprintf("%s.%s: not a field of profile %s", domain, name, p.ID))
		}
	}
	return violations
}

func dedupeSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
