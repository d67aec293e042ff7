package sdg

import (
	"strings"
)

// Catalogue returns the built-in rule set, in evaluation order.
func Catalogue() []Rule {
	return []Rule{
		uncoveredDomainRule,
		frameDivergenceRule,
		pathMismatchRule,
		objectiveOverlapRule,
	}
}

func mustRule(id string, stopTrigger bool, predicates ...Predicate) Rule {
	r, err := NewRule(id, stopTrigger, predicates...)
	if err != nil {
		panic(err)
	}
	return r
}

// SDG-001: a change touches a domain no declared owner scope covers.
var uncoveredDomainRule = mustRule("SDG-001", true, Predicate{
	Kind:     Structural,
	Describe: "an affected domain has no declared owner scope",
	Detect: func(ctx Context) bool {
		if len(ctx.AffectedDomains) == 0 {
			return false
		}
		declared := make(map[string]bool, len(ctx.DeclaredScopes))
		for _, sc := range ctx.DeclaredScopes {
			declared[sc.Domain] = true
		}
		for _, d := range ctx.AffectedDomains {
			if !declared[d] {
				return true
			}
		}
		return false
	},
})

// SDG-002: collected attestations are not all bound to one frame.
var frameDivergenceRule = mustRule("SDG-002", true, Predicate{
	Kind:     Structural,
	Describe: "collected attestations bind more than one frame hash",
	Detect: func(ctx Context) bool {
		return len(ctx.FrameHashes) > 1
	},
})

// SDG-003: the execution path being run is not the one reviewed.
var pathMismatchRule = mustRule("SDG-003", true, Predicate{
	Kind:     Structural,
	Describe: "selected execution path differs from the declared one",
	Detect: func(ctx Context) bool {
		return ctx.DeclaredPath != "" && ctx.SelectedPath != ctx.DeclaredPath
	},
})

// SDG-101: the stated objective shares no meaningful terms with the
// diff summary. A term-overlap heuristic can be wrong, so this rule can
// only ever warn.
var objectiveOverlapRule = mustRule("SDG-101", false, Predicate{
	Kind:     Semantic,
	Describe: "stated objective shares no terms with the diff summary",
	Detect: func(ctx Context) bool {
		if ctx.Objective == "" || ctx.DiffSummary == "" {
			return false
		}
		objective := termSet(ctx.Objective)
		if len(objective) == 0 {
			return false
		}
		for term := range termSet(ctx.DiffSummary) {
			if objective[term] {
				return false
			}
		}
		return true
	},
})

// termSet lowercases text and keeps words of four or more letters, the
// cheapest thing that ignores articles and glue words.
func termSet(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(w) >= 4 {
			terms[w] = true
		}
	}
	return terms
}
