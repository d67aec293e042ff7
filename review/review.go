// Package review aggregates attestations out of a comment thread. The
// thread arrives as an externally-fetched list of raw comment texts;
// aggregation is a pure function of that list and is order-independent:
// the same commit sha always resolves to the same coverage set no
// matter when each comment arrived.
package review

import (
	"sort"

	"hap.dev/hap/attestation"
	"hap.dev/hap/profile"
)

// Exclusion records one comment that carried a block but did not make
// it into the coverage set.
type Exclusion struct {
	Comment int
	Reason  string
}

// Collected is the aggregation result for one commit.
type Collected struct {
	// Attestations holds the decoded, deduplicated attestations sorted
	// by attestation id.
	Attestations []*attestation.Attestation

	// Blocks holds the text block each attestation arrived in, aligned
	// with Attestations.
	Blocks []*attestation.Block

	Exclusions []Exclusion
}

// Collect scans comments for attestation text blocks bound to sha.
// Comments without a valid block are ignored; blocks for other commits
// and undecodable blobs are recorded as exclusions. Duplicate
// attestations (same id) collapse to one entry.
func Collect(comments []string, sha string) Collected {
	type entry struct {
		att   *attestation.Attestation
		block *attestation.Block
	}
	byID := make(map[string]entry)
	var out Collected

	for i, text := range comments {
		block := attestation.FindBlock(text)
		if block == nil {
			continue
		}
		if block.SHA() != sha {
			out.Exclusions = append(out.Exclusions, Exclusion{Comment: i, Reason: "block is for a different commit"})
			continue
		}
		att, err := attestation.DecodeBlob(block.Blob())
		if err != nil {
			out.Exclusions = append(out.Exclusions, Exclusion{Comment: i, Reason: "blob undecodable: " + err.Error()})
			continue
		}
		if block.FrameHash() != att.Payload.FrameHash() {
			out.Exclusions = append(out.Exclusions, Exclusion{Comment: i, Reason: "block frame_hash disagrees with payload"})
			continue
		}
		byID[att.ID()] = entry{att: att, block: block}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out.Attestations = append(out.Attestations, byID[id].att)
		out.Blocks = append(out.Blocks, byID[id].block)
	}
	return out
}

// Domains returns the sorted set of domains covered by the collected
// v0.3 attestations.
func (c Collected) Domains() []string {
	seen := make(map[string]bool)
	for _, a := range c.Attestations {
		if a.Payload.V03 == nil {
			continue
		}
		for _, d := range a.Payload.V03.Domains {
			seen[d.Domain] = true
		}
	}
	return sortedKeys(seen)
}

// Scopes returns the deduplicated {domain, environment} pairs covered
// by the collected v0.2 attestations, sorted.
func (c Collected) Scopes() []profile.Scope {
	seen := make(map[profile.Scope]bool)
	for _, a := range c.Attestations {
		if a.Payload.V02 == nil {
			continue
		}
		for _, sc := range a.Payload.V02.Scopes {
			seen[profile.Scope{Domain: sc.Domain, Environment: sc.Environment}] = true
		}
	}
	out := make([]profile.Scope, 0, len(seen))
	for sc := range seen {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Domain != out[j].Domain {
			return out[i].Domain < out[j].Domain
		}
		return out[i].Environment < out[j].Environment
	})
	return out
}

// FrameHashes returns the sorted set of frame hashes the collected
// attestations are bound to. More than one hash means reviewers did not
// all attest to the same frame.
func (c Collected) FrameHashes() []string {
	seen := make(map[string]bool)
	for _, a := range c.Attestations {
		seen[a.Payload.FrameHash()] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
