package disclosure

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"hap.dev/hap/profile"
)

// DecisionFile is the external JSON document supplying v0.3 disclosure
// content, keyed by domain:
//
//	{
//	  "engineering": {"diff_summary": "...", "test_status": "...", "rollback_plan": "..."},
//	  "security": {...}
//	}
//
// It is untrusted input and gets the same validation as any other
// disclosure.
type DecisionFile map[string]map[string]string

// LoadDecisionFile reads and validates a decision file against p.
func LoadDecisionFile(path string, p *profile.Profile) (DecisionFile, error) {
	if path == "" {
		return nil, errors.New("disclosure: empty decision file path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDecisionFile(b, p)
}

// ParseDecisionFile parses and validates decision-file bytes against p.
func ParseDecisionFile(data []byte, p *profile.Profile) (DecisionFile, error) {
	var df DecisionFile
	if err := json.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("disclosure: decision file is not valid JSON: %w", err)
	}
	if err := df.Validate(p); err != nil {
		return nil, err
	}
	return df, nil
}

// Validate checks every domain slice and reports all violations.
func (df DecisionFile) Validate(p *profile.Profile) error {
	if p.Version != profile.V03 {
		return fmt.Errorf("disclosure: decision files require a v0.3 profile, got %s", p.ID)
	}
	var violations []string
	if len(df) == 0 {
		violations = append(violations, "decision file: no domains")
	}
	for _, domain := range df.DomainNames() {
		if domain == "" {
			violations = append(violations, "decision file: empty domain name")
			continue
		}
		violations = append(violations, checkDomainFields(domain, df[domain], p)...)
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// DomainNames returns the file's domains in sorted order.
func (df DecisionFile) DomainNames() []string {
	names := make([]string, 0, len(df))
	for name := range df {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DomainHashes returns the per-domain disclosure hash for every domain
// in the file, keyed by domain.
func (df DecisionFile) DomainHashes(p *profile.Profile) (map[string]string, error) {
	hashes := make(map[string]string, len(df))
	for _, domain := range df.DomainNames() {
		h, err := HashDomain(domain, df[domain], p)
		if err != nil {
			return nil, err
		}
		hashes[domain] = h
	}
	return hashes, nil
}
