// Package sdg implements Signal Detection Guides: a fixed catalogue of
// rules evaluated against a review context before signing. Structural
// rules (domain sets, hash equality, path equality) may block; semantic
// rules (free-text heuristics) only ever warn, because a heuristic is
// never unambiguous enough to block on. Evaluation is a pure function
// of its inputs.
package sdg

import (
	"fmt"

	"hap.dev/hap/profile"
)

// Context is everything a rule may look at. All fields are
// already-resolved inputs; rules never reach for the network.
type Context struct {
	// AffectedDomains are the review domains the change touches.
	AffectedDomains []string

	// DeclaredScopes are the owner-declared {domain, environment} pairs.
	DeclaredScopes []profile.Scope

	// FrameHashes are the frame hashes bound by the attestations
	// collected so far.
	FrameHashes []string

	// SelectedPath is the execution path chosen for this run;
	// DeclaredPath is the one the review declared.
	SelectedPath string
	DeclaredPath string

	// Objective and DiffSummary are free text, only ever compared
	// heuristically.
	Objective   string
	DiffSummary string
}

// PredicateKind separates what a predicate is allowed to inspect.
type PredicateKind int

const (
	// Structural predicates depend only on domain sets, hash equality,
	// and path equality.
	Structural PredicateKind = iota
	// Semantic predicates compare free text heuristically.
	Semantic
)

// Predicate is one detection check inside a rule.
type Predicate struct {
	Kind     PredicateKind
	Describe string
	Detect   func(Context) bool
}

// Rule is one Signal Detection Guide. A rule fires if any of its
// predicates detects.
type Rule struct {
	ID          string
	StopTrigger bool
	Predicates  []Predicate
}

// NewRule builds a rule, enforcing the hard invariant that a
// stop-trigger rule carries only structural predicates.
func NewRule(id string, stopTrigger bool, predicates ...Predicate) (Rule, error) {
	if id == "" {
		return Rule{}, fmt.Errorf("sdg: rule id is required")
	}
	if len(predicates) == 0 {
		return Rule{}, fmt.Errorf("sdg: rule %s has no predicates", id)
	}
	if stopTrigger {
		for _, p := range predicates {
			if p.Kind != Structural {
				return Rule{}, fmt.Errorf("sdg: rule %s: stop-trigger rules must be structural only", id)
			}
		}
	}
	return Rule{ID: id, StopTrigger: stopTrigger, Predicates: predicates}, nil
}

// Finding is one fired rule.
type Finding struct {
	RuleID      string
	StopTrigger bool
	Reason      string
}

// Result partitions fired rules into hard stops and warnings.
type Result struct {
	HardStops []Finding
	Warnings  []Finding
}

// Blocked reports whether any hard stop fired.
func (r Result) Blocked() bool { return len(r.HardStops) > 0 }

// Evaluate runs rules in order against ctx. A rule fires when any of
// its predicates detects; the first detecting predicate names the
// reason.
func Evaluate(rules []Rule, ctx Context) Result {
	var res Result
	for _, rule := range rules {
		for _, p := range rule.Predicates {
			if !p.Detect(ctx) {
				continue
			}
			f := Finding{RuleID: rule.ID, StopTrigger: rule.StopTrigger, Reason: p.Describe}
			if rule.StopTrigger {
				res.HardStops = append(res.HardStops, f)
			} else {
				res.Warnings = append(res.Warnings, f)
			}
			break
		}
	}
	return res
}
