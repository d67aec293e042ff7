package attestation

import (
	"strings"

	"hap.dev/hap/frame"
	"hap.dev/hap/profile"
)

// Text-block fence lines. This fenced key=value format is the one wire
// format requiring bit-exact compatibility across implementations.
const (
	BlockBegin = "---BEGIN HAP_ATTESTATION v=1---"
	BlockEnd   = "---END HAP_ATTESTATION---"
)

var (
	blockKeysV02 = []string{"profile", "role", "env", "path", "sha", "frame_hash", "disclosure_hash", "blob"}
	blockKeysV03 = []string{"profile", "domain", "env", "path", "sha", "frame_hash", "domain_disclosure_hash", "blob"}
)

// Block is one parsed attestation text block.
type Block struct {
	Version profile.Version
	Fields  map[string]string
}

// Blob returns the embedded transport blob.
func (b *Block) Blob() string { return b.Fields["blob"] }

// SHA returns the commit sha the block declares.
func (b *Block) SHA() string { return b.Fields["sha"] }

// FrameHash returns the frame hash the block declares.
func (b *Block) FrameHash() string { return b.Fields["frame_hash"] }

// Domain returns the covered domain: the "domain" key for v0.3 blocks,
// the "role" key for v0.2.
func (b *Block) Domain() string {
	if b.Version == profile.V03 {
		return b.Fields["domain"]
	}
	return b.Fields["role"]
}

// Keys returns the block's field names in canonical render order.
func (b *Block) Keys() []string {
	if b.Version == profile.V03 {
		return append([]string(nil), blockKeysV03...)
	}
	return append([]string(nil), blockKeysV02...)
}

// EncodeBlock renders the version-appropriate text block for embedding
// in a comment. domain selects which covered domain the block speaks
// for; empty means the payload's first.
func EncodeBlock(a *Attestation, f frame.Frame, domain string) (string, error) {
	fields := map[string]string{
		"profile":    a.Payload.ProfileID(),
		"env":        f.Env,
		"path":       f.Path,
		"sha":        f.SHA,
		"frame_hash": a.Payload.FrameHash(),
		"blob":       a.Blob(),
	}

	var order []string
	switch {
	case a.Payload.V02 != nil:
		role, err := pickScopeDomain(a.Payload.V02.Scopes, domain)
		if err != nil {
			return "", err
		}
		fields["role"] = role
		fields["disclosure_hash"] = f.DisclosureHash
		order = blockKeysV02
	case a.Payload.V03 != nil:
		rd, err := pickResolvedDomain(a.Payload.V03.Domains, domain)
		if err != nil {
			return "", err
		}
		fields["domain"] = rd.Domain
		fields["domain_disclosure_hash"] = rd.DisclosureHash
		order = blockKeysV03
	default:
		return "", newError(KindInternal, "HAP-BLOCK-001", "empty payload union")
	}

	var sb strings.Builder
	sb.WriteString(BlockBegin)
	sb.WriteString("\n")
	for _, k := range order {
		v := fields[k]
		if v == "" {
			return "", newError(KindValidation, "HAP-BLOCK-002", "missing block field "+k)
		}
		if strings.ContainsAny(v, "\n\r") {
			return "", newError(KindValidation, "HAP-BLOCK-003", "block field "+k+" must not contain line breaks")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(v)
		sb.WriteString("\n")
	}
	sb.WriteString(BlockEnd)
	return sb.String(), nil
}

func pickScopeDomain(scopes []OwnerScope, domain string) (string, error) {
	if len(scopes) == 0 {
		return "", newError(KindValidation, "HAP-BLOCK-010", "payload has no scopes")
	}
	if domain == "" {
		return scopes[0].Domain, nil
	}
	for _, sc := range scopes {
		if sc.Domain == domain {
			return sc.Domain, nil
		}
	}
	return "", newError(KindValidation, "HAP-BLOCK-011", "payload has no scope for domain "+domain)
}

func pickResolvedDomain(domains []ResolvedDomain, domain string) (ResolvedDomain, error) {
	if len(domains) == 0 {
		return ResolvedDomain{}, newError(KindValidation, "HAP-BLOCK-012", "payload has no resolved domains")
	}
	if domain == "" {
		return domains[0], nil
	}
	for _, rd := range domains {
		if rd.Domain == domain {
			return rd, nil
		}
	}
	return ResolvedDomain{}, newError(KindValidation, "HAP-BLOCK-013", "payload does not cover domain "+domain)
}

// FindBlock locates the first fence pair in arbitrary comment text and
// parses it. It returns nil when no block is present or the block is
// structurally invalid (duplicate key, missing required key, broken
// fence): ordinary comments are the common case, so absence is a normal
// outcome, not an error.
//
// The scan tolerates CRLF line endings, since comment hosts rewrite
// whitespace; everything else is strict.
func FindBlock(text string) *Block {
	lines := strings.Split(text, "\n")
	begin := -1
	for i, line := range lines {
		if strings.TrimSuffix(line, "\r") == BlockBegin {
			begin = i
			break
		}
	}
	if begin < 0 {
		return nil
	}
	end := -1
	for i := begin + 1; i < len(lines); i++ {
		if strings.TrimSuffix(lines[i], "\r") == BlockEnd {
			end = i
			break
		}
	}
	if end < 0 {
		return nil
	}

	fields := make(map[string]string, end-begin-1)
	for _, raw := range lines[begin+1 : end] {
		line := strings.TrimSuffix(raw, "\r")
		if line == "" {
			return nil
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" || value == "" {
			return nil
		}
		if _, dup := fields[key]; dup {
			return nil
		}
		fields[key] = value
	}

	// The block declares its version structurally: v0.3 blocks carry a
	// domain key, v0.2 blocks carry a role key.
	var version profile.Version
	var required []string
	switch {
	case fields["domain"] != "":
		version, required = profile.V03, blockKeysV03
	case fields["role"] != "":
		version, required = profile.V02, blockKeysV02
	default:
		return nil
	}
	for _, k := range required {
		if fields[k] == "" {
			return nil
		}
	}
	return &Block{Version: version, Fields: fields}
}
