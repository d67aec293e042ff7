package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"hap.dev/hap/attestation"
	"hap.dev/hap/authorize"
	"hap.dev/hap/disclosure"
	"hap.dev/hap/evidence"
	"hap.dev/hap/frame"
	"hap.dev/hap/keys"
	"hap.dev/hap/profile"
	"hap.dev/hap/review"
	"hap.dev/hap/sdg"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "attest":
		return cmdAttest(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "authorize":
		return cmdAuthorize(args[1:], out, errOut)
	case "frame-hash":
		return cmdFrameHash(args[1:], out, errOut)
	case "disclosure-hash":
		return cmdDisclosureHash(args[1:], out, errOut)
	case "block":
		return cmdBlock(args[1:], out, errOut)
	case "collect":
		return cmdCollect(args[1:], out, errOut)
	case "sdg":
		return cmdSDG(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "evidence":
		return cmdEvidence(args[1:], out, errOut)
	case "profiles":
		return cmdProfiles(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "hap: deployment authorization attestations")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  hap frame-hash --repo <org/name> --sha <40hex> --env <env> --profile <id> --path <path> [--disclosure-hash sha256:<64hex>] [--canonical]")
	fmt.Fprintln(w, "  hap disclosure-hash --profile <id> (--file <disclosure.json> | --decision-file <decisions.json> [--domain <d>])")
	fmt.Fprintln(w, "  hap attest --profile <id> <frame flags> [--seed-hex <64hex> | --signer <kid> [--signer-role <role>] | --key-file <path>]")
	fmt.Fprintln(w, "             v0.2: [--gate <g> ...] --scope <did>=<domain>@<env> ...")
	fmt.Fprintln(w, "             v0.3: --domain <name>=<did>@<env> ... --decision-file <decisions.json>")
	fmt.Fprintln(w, "  hap verify --blob <b64> | --blob-file <path>  --pub-hex <64hex> <frame flags> [--at <RFC3339>]")
	fmt.Fprintln(w, "  hap authorize --blob <b64>|--blob-file <path> ... --pub <kid>=<64hex> ... <frame flags> [--at <RFC3339>]")
	fmt.Fprintln(w, "  hap block encode --blob <b64>|--blob-file <path> <frame flags> [--domain <d>]")
	fmt.Fprintln(w, "  hap block parse [<file>]")
	fmt.Fprintln(w, "  hap collect --sha <40hex> <comment-file> ...")
	fmt.Fprintln(w, "  hap sdg --affected <d,d> --scope <domain>@<env> ... --frame-hash <h> ... --selected-path <p> --declared-path <p> [--objective <text>] [--diff-summary <text>]")
	fmt.Fprintln(w, "  hap key init --kid <kid> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  hap key derive --from <kid> --role <role> [--force]")
	fmt.Fprintln(w, "  hap key list")
	fmt.Fprintln(w, "  hap key export --kid <kid> [--role <role>]")
	fmt.Fprintln(w, "  hap evidence put|get|has (--dir <path> | --config <file>) <arg>")
	fmt.Fprintln(w, "  hap profiles")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Frame flags: --repo --sha --env --profile --path [--disclosure-hash]")
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - --seed-hex must be 32 bytes (64 hex chars) ed25519 seed")
	fmt.Fprintln(w, "  - attest without a signer flag signs with the process key (kid \"sp\"),")
	fmt.Fprintln(w, "    generating and storing it on first use")
	fmt.Fprintln(w, "  - key material lives under ~/.hap/keys/<kid> (0600 seed files)")
	fmt.Fprintln(w, "  - attest writes the transport blob to stdout (no trailing newline)")
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// frameFlags binds the shared frame flags onto fs.
type frameFlags struct {
	repo           string
	sha            string
	env            string
	profileID      string
	path           string
	disclosureHash string
}

func (ff *frameFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&ff.repo, "repo", "", "Repository as org/name")
	fs.StringVar(&ff.sha, "sha", "", "Commit sha (40 hex chars)")
	fs.StringVar(&ff.env, "env", "", "Target environment")
	fs.StringVar(&ff.profileID, "profile", "", "Profile id (e.g. deploy-gate@0.2)")
	fs.StringVar(&ff.path, "path", "", "Execution path")
	fs.StringVar(&ff.disclosureHash, "disclosure-hash", "", "Disclosure hash sha256:<64hex> (v0.2 frames)")
}

func (ff *frameFlags) frame() frame.Frame {
	return frame.Frame{
		Repo:           ff.repo,
		SHA:            ff.sha,
		Env:            ff.env,
		Profile:        ff.profileID,
		Path:           ff.path,
		DisclosureHash: ff.disclosureHash,
	}
}

func (ff *frameFlags) lookup(errOut io.Writer) (*profile.Profile, bool) {
	if ff.profileID == "" {
		fmt.Fprintln(errOut, "missing --profile")
		return nil, false
	}
	p, err := profile.Lookup(ff.profileID)
	if err != nil {
		fmt.Fprintf(errOut, "profile: %v\n", err)
		return nil, false
	}
	return p, true
}

func parseAt(at string, errOut io.Writer) (time.Time, bool) {
	if at == "" {
		return time.Now(), true
	}
	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --at (expected RFC3339): %v\n", err)
		return time.Time{}, false
	}
	return t, true
}

func cmdFrameHash(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("frame-hash", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var ff frameFlags
	var canonical bool
	ff.register(fs)
	fs.BoolVar(&canonical, "canonical", false, "Print the canonical frame serialization instead of its hash")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	p, ok := ff.lookup(errOut)
	if !ok {
		return 2
	}
	if canonical {
		b, err := frame.Canonicalize(ff.frame(), p)
		if err != nil {
			fmt.Fprintf(errOut, "frame: %v\n", err)
			return 1
		}
		_, _ = out.Write(b)
		_, _ = fmt.Fprintln(out)
		return 0
	}
	h, err := frame.Hash(ff.frame(), p)
	if err != nil {
		fmt.Fprintf(errOut, "frame: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, h)
	return 0
}

// fileDisclosure is the on-disk JSON shape accepted by disclosure-hash.
type fileDisclosure struct {
	Repo      string                       `json:"repo"`
	SHA       string                       `json:"sha"`
	Paths     []string                     `json:"paths"`
	RiskFlags []string                     `json:"risk_flags"`
	Domains   map[string]fileDomainContent `json:"domains"`
}

type fileDomainContent struct {
	Problem   string `json:"problem"`
	Objective string `json:"objective"`
	Tradeoffs string `json:"tradeoffs"`
}

func cmdDisclosureHash(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("disclosure-hash", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var profileID string
	var file string
	var decisionFile string
	var domain string
	fs.StringVar(&profileID, "profile", "", "Profile id")
	fs.StringVar(&file, "file", "", "Disclosure JSON file (v0.2 profiles)")
	fs.StringVar(&decisionFile, "decision-file", "", "Decision file (v0.3 profiles)")
	fs.StringVar(&domain, "domain", "", "With --decision-file: hash only this domain")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if profileID == "" {
		fmt.Fprintln(errOut, "missing --profile")
		return 2
	}
	p, err := profile.Lookup(profileID)
	if err != nil {
		fmt.Fprintf(errOut, "profile: %v\n", err)
		return 2
	}

	switch {
	case file != "" && decisionFile != "":
		fmt.Fprintln(errOut, "conflicting flags: --file cannot be combined with --decision-file")
		return 2
	case file != "":
		b, rerr := os.ReadFile(file)
		if rerr != nil {
			fmt.Fprintf(errOut, "read disclosure: %v\n", rerr)
			return 1
		}
		var fd fileDisclosure
		if uerr := json.Unmarshal(b, &fd); uerr != nil {
			fmt.Fprintf(errOut, "parse disclosure: %v\n", uerr)
			return 1
		}
		d := disclosure.Disclosure{
			Repo:      fd.Repo,
			SHA:       fd.SHA,
			Paths:     fd.Paths,
			RiskFlags: fd.RiskFlags,
		}
		if len(fd.Domains) > 0 {
			d.Domains = make(map[string]disclosure.DomainContent, len(fd.Domains))
			for name, c := range fd.Domains {
				d.Domains[name] = disclosure.DomainContent{Problem: c.Problem, Objective: c.Objective, Tradeoffs: c.Tradeoffs}
			}
		}
		h, herr := disclosure.Hash(d, p)
		if herr != nil {
			fmt.Fprintf(errOut, "disclosure: %v\n", herr)
			return 1
		}
		_, _ = fmt.Fprintln(out, h)
		return 0
	case decisionFile != "":
		df, lerr := disclosure.LoadDecisionFile(decisionFile, p)
		if lerr != nil {
			fmt.Fprintf(errOut, "decision file: %v\n", lerr)
			return 1
		}
		hashes, herr := df.DomainHashes(p)
		if herr != nil {
			fmt.Fprintf(errOut, "decision file: %v\n", herr)
			return 1
		}
		if domain != "" {
			h, ok := hashes[domain]
			if !ok {
				fmt.Fprintf(errOut, "domain %q not present in decision file\n", domain)
				return 1
			}
			_, _ = fmt.Fprintln(out, h)
			return 0
		}
		for _, name := range df.DomainNames() {
			_, _ = fmt.Fprintf(out, "%s %s\n", name, hashes[name])
		}
		return 0
	default:
		fmt.Fprintln(errOut, "missing input: use --file or --decision-file")
		return 2
	}
}

func loadSignerAuthority(kid, seedHex, signer, signerRole, keyFile string, errOut io.Writer) (*keys.Authority, bool) {
	if seedHex == "" && signer == "" && keyFile == "" {
		// No signer selected: fall back to the process-wide authority,
		// creating and persisting its key on first use.
		auth, err := keys.ProcessAuthority()
		if err != nil {
			fmt.Fprintf(errOut, "process authority: %v\n", err)
			return nil, false
		}
		if kid != "" && kid != auth.KID() {
			fmt.Fprintln(errOut, "conflicting signer flags: --kid requires --seed-hex, --signer, or --key-file")
			return nil, false
		}
		return auth, true
	}
	if seedHex != "" && (signer != "" || keyFile != "") {
		fmt.Fprintln(errOut, "conflicting signer flags: --seed-hex cannot be combined with --signer or --key-file")
		return nil, false
	}
	if signer != "" && keyFile != "" {
		fmt.Fprintln(errOut, "conflicting signer flags: --signer cannot be combined with --key-file")
		return nil, false
	}
	ks, err := keys.Open("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return nil, false
	}
	seed, err := ks.LoadSeed(seedHex, signer, signerRole, keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "invalid signer: %v\n", err)
		return nil, false
	}
	if kid == "" {
		kid = signer
	}
	if kid == "" {
		kid = keys.ProcessAuthorityKID
	}
	auth, err := keys.NewAuthority(kid, seed)
	if err != nil {
		fmt.Fprintf(errOut, "authority: %v\n", err)
		return nil, false
	}
	return auth, true
}

// parseScope parses "<did>=<domain>@<env>".
func parseScope(s string) (did, domain, env string, err error) {
	did, rest, ok := strings.Cut(s, "=")
	if !ok || did == "" {
		return "", "", "", fmt.Errorf("expected <did>=<domain>@<env>, got %q", s)
	}
	domain, env, ok = strings.Cut(rest, "@")
	if !ok || domain == "" || env == "" {
		return "", "", "", fmt.Errorf("expected <did>=<domain>@<env>, got %q", s)
	}
	return did, domain, env, nil
}

func cmdAttest(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("attest", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var ff frameFlags
	var seedHex, signer, signerRole, keyFile, kid string
	var gates, scopes, domains stringList
	var decisionFile string
	var ttl time.Duration
	ff.register(fs)
	fs.StringVar(&seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars")
	fs.StringVar(&signer, "signer", "", "Use a stored key by kid (from 'hap key init')")
	fs.StringVar(&signerRole, "signer-role", "", "When using --signer, use a derived role key")
	fs.StringVar(&keyFile, "key-file", "", "Path to a seed file (hex) created by 'hap key init/derive'")
	fs.StringVar(&kid, "kid", "", "Key id recorded in the header (defaults to --signer)")
	fs.Var(&gates, "gate", "Gate name the review passed (repeatable, v0.2)")
	fs.Var(&scopes, "scope", "Owner scope as <did>=<domain>@<env> (repeatable, v0.2)")
	fs.Var(&domains, "domain", "Resolved domain as <name>=<did>@<env> (repeatable, v0.3)")
	fs.StringVar(&decisionFile, "decision-file", "", "Decision file for per-domain disclosure hashes (v0.3)")
	fs.DurationVar(&ttl, "ttl", 0, "Validity window (defaults to the profile's TTL)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	p, ok := ff.lookup(errOut)
	if !ok {
		return 2
	}
	auth, ok := loadSignerAuthority(kid, seedHex, signer, signerRole, keyFile, errOut)
	if !ok {
		return 2
	}

	frameHash, err := frame.Hash(ff.frame(), p)
	if err != nil {
		fmt.Fprintf(errOut, "frame: %v\n", err)
		return 1
	}

	var payload attestation.Payload
	switch p.Version {
	case profile.V02:
		if len(scopes) == 0 {
			fmt.Fprintln(errOut, "missing --scope (at least one <did>=<domain>@<env>)")
			return 2
		}
		body := &attestation.PayloadV02{
			ProfileID: p.ID,
			FrameHash: frameHash,
			Gates:     gates,
		}
		seenOwner := make(map[string]bool)
		for _, s := range scopes {
			did, domain, env, perr := parseScope(s)
			if perr != nil {
				fmt.Fprintf(errOut, "invalid --scope: %v\n", perr)
				return 2
			}
			body.Scopes = append(body.Scopes, attestation.OwnerScope{DID: did, Domain: domain, Environment: env})
			if !seenOwner[did] {
				seenOwner[did] = true
				body.Owners = append(body.Owners, did)
			}
		}
		payload = attestation.Payload{V02: body}
	case profile.V03:
		if len(domains) == 0 {
			fmt.Fprintln(errOut, "missing --domain (at least one <name>=<did>@<env>)")
			return 2
		}
		if decisionFile == "" {
			fmt.Fprintln(errOut, "missing --decision-file")
			return 2
		}
		df, lerr := disclosure.LoadDecisionFile(decisionFile, p)
		if lerr != nil {
			fmt.Fprintf(errOut, "decision file: %v\n", lerr)
			return 1
		}
		hashes, herr := df.DomainHashes(p)
		if herr != nil {
			fmt.Fprintf(errOut, "decision file: %v\n", herr)
			return 1
		}
		body := &attestation.PayloadV03{
			ProfileID: p.ID,
			FrameHash: frameHash,
		}
		for _, s := range domains {
			name, did, env, perr := parseScope(s)
			if perr != nil {
				fmt.Fprintf(errOut, "invalid --domain: %v\n", perr)
				return 2
			}
			h, present := hashes[name]
			if !present {
				fmt.Fprintf(errOut, "domain %q not present in decision file\n", name)
				return 1
			}
			body.Domains = append(body.Domains, attestation.ResolvedDomain{
				Domain:         name,
				DID:            did,
				Environment:    env,
				DisclosureHash: h,
			})
		}
		payload = attestation.Payload{V03: body}
	}

	s := attestation.NewSigner(auth)
	if ttl > 0 {
		now := time.Now().Unix()
		switch p.Version {
		case profile.V02:
			payload.V02.IssuedAt = now
			payload.V02.ExpiresAt = now + int64(ttl.Seconds())
		case profile.V03:
			payload.V03.IssuedAt = now
			payload.V03.ExpiresAt = now + int64(ttl.Seconds())
		}
	}
	att, err := s.Sign(payload, p)
	if err != nil {
		fmt.Fprintf(errOut, "sign: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "Attestation-ID: %s\n", att.ID())
	fmt.Fprintf(errOut, "Public-Key: %s\n", auth.PublicKeyHex())
	_, _ = io.WriteString(out, att.Blob())
	return 0
}

func readBlob(blob, blobFile string, errOut io.Writer) (string, bool) {
	switch {
	case blob != "" && blobFile != "":
		fmt.Fprintln(errOut, "conflicting flags: --blob cannot be combined with --blob-file")
		return "", false
	case blob != "":
		return blob, true
	case blobFile != "":
		b, err := os.ReadFile(blobFile)
		if err != nil {
			fmt.Fprintf(errOut, "read blob: %v\n", err)
			return "", false
		}
		return strings.TrimSpace(string(b)), true
	default:
		fmt.Fprintln(errOut, "missing --blob or --blob-file")
		return "", false
	}
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var ff frameFlags
	var blob, blobFile, pubHex, at string
	ff.register(fs)
	fs.StringVar(&blob, "blob", "", "Transport blob")
	fs.StringVar(&blobFile, "blob-file", "", "File holding a transport blob")
	fs.StringVar(&pubHex, "pub-hex", "", "Signer public key as 64 hex chars")
	fs.StringVar(&at, "at", "", "Verification time as RFC3339 (defaults to now)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	p, ok := ff.lookup(errOut)
	if !ok {
		return 2
	}
	b, ok := readBlob(blob, blobFile, errOut)
	if !ok {
		return 2
	}
	if pubHex == "" {
		fmt.Fprintln(errOut, "missing --pub-hex")
		return 2
	}
	now, ok := parseAt(at, errOut)
	if !ok {
		return 2
	}

	att, err := attestation.Verify(b, pubHex, ff.frame(), p, now)
	if err != nil {
		fmt.Fprintf(errOut, "verify: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "OK %s\n", att.ID())
	return 0
}

func cmdAuthorize(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("authorize", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var ff frameFlags
	var blobs, blobFiles, pubs stringList
	var at string
	ff.register(fs)
	fs.Var(&blobs, "blob", "Transport blob (repeatable)")
	fs.Var(&blobFiles, "blob-file", "File holding a transport blob (repeatable)")
	fs.Var(&pubs, "pub", "Trusted key as <kid>=<64hex> (repeatable)")
	fs.StringVar(&at, "at", "", "Authorization time as RFC3339 (defaults to now)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if _, ok := ff.lookup(errOut); !ok {
		return 2
	}
	if len(blobs) == 0 && len(blobFiles) == 0 {
		fmt.Fprintln(errOut, "missing --blob or --blob-file")
		return 2
	}
	if len(pubs) == 0 {
		fmt.Fprintln(errOut, "missing --pub")
		return 2
	}
	now, ok := parseAt(at, errOut)
	if !ok {
		return 2
	}

	all := append([]string(nil), blobs...)
	for _, f := range blobFiles {
		b, err := os.ReadFile(f)
		if err != nil {
			fmt.Fprintf(errOut, "read blob %s: %v\n", f, err)
			return 1
		}
		all = append(all, strings.TrimSpace(string(b)))
	}

	keySet := make(attestation.KeySet, len(pubs))
	for _, kv := range pubs {
		kid, hex, okCut := strings.Cut(kv, "=")
		if !okCut || kid == "" || hex == "" {
			fmt.Fprintf(errOut, "invalid --pub (expected <kid>=<64hex>): %q\n", kv)
			return 2
		}
		keySet[kid] = hex
	}

	auth, err := authorize.Authorize(all, keySet, ff.frame(), ff.profileID, now)
	if err != nil {
		fmt.Fprintf(errOut, "denied: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(auth); err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	return 0
}

func cmdBlock(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: hap block <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: encode, parse")
		return 2
	}
	switch args[0] {
	case "encode":
		return cmdBlockEncode(args[1:], out, errOut)
	case "parse":
		return cmdBlockParse(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown block subcommand: %s\n", args[0])
		return 2
	}
}

func cmdBlockEncode(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("block encode", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var ff frameFlags
	var blob, blobFile, domain string
	ff.register(fs)
	fs.StringVar(&blob, "blob", "", "Transport blob")
	fs.StringVar(&blobFile, "blob-file", "", "File holding a transport blob")
	fs.StringVar(&domain, "domain", "", "Domain to render (required when the payload covers several)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	b, ok := readBlob(blob, blobFile, errOut)
	if !ok {
		return 2
	}
	att, err := attestation.DecodeBlob(b)
	if err != nil {
		fmt.Fprintf(errOut, "blob: %v\n", err)
		return 1
	}
	text, err := attestation.EncodeBlock(att, ff.frame(), domain)
	if err != nil {
		fmt.Fprintf(errOut, "encode block: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, text)
	return 0
}

func cmdBlockParse(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("block parse", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var text []byte
	var err error
	switch fs.NArg() {
	case 0:
		text, err = io.ReadAll(os.Stdin)
	case 1:
		text, err = os.ReadFile(fs.Arg(0))
	default:
		fmt.Fprintln(errOut, "usage: hap block parse [<file>]")
		return 2
	}
	if err != nil {
		fmt.Fprintf(errOut, "read: %v\n", err)
		return 1
	}

	block := attestation.FindBlock(string(text))
	if block == nil {
		fmt.Fprintln(errOut, "no attestation block found")
		return 1
	}
	for _, key := range block.Keys() {
		fmt.Fprintf(out, "%s=%s\n", key, block.Fields[key])
	}
	return 0
}

func cmdCollect(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var sha string
	fs.StringVar(&sha, "sha", "", "Commit sha the thread is about")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if sha == "" {
		fmt.Fprintln(errOut, "missing --sha")
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: hap collect --sha <40hex> <comment-file> ...")
		return 2
	}

	comments := make([]string, 0, fs.NArg())
	for _, f := range fs.Args() {
		b, err := os.ReadFile(f)
		if err != nil {
			fmt.Fprintf(errOut, "read comment %s: %v\n", f, err)
			return 1
		}
		comments = append(comments, string(b))
	}

	c := review.Collect(comments, sha)
	for _, a := range c.Attestations {
		fmt.Fprintln(out, a.ID())
	}
	for _, d := range c.Domains() {
		fmt.Fprintf(out, "domain: %s\n", d)
	}
	for _, s := range c.Scopes() {
		fmt.Fprintf(out, "scope: %s\n", s.String())
	}
	for _, h := range c.FrameHashes() {
		fmt.Fprintf(out, "frame: %s\n", h)
	}
	for _, ex := range c.Exclusions {
		fmt.Fprintf(errOut, "excluded %s: %s\n", fs.Arg(ex.Comment), ex.Reason)
	}
	return 0
}

func cmdSDG(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("sdg", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var affected string
	var scopes, frameHashes stringList
	var selectedPath, declaredPath, objective, diffSummary string
	fs.StringVar(&affected, "affected", "", "Comma-separated affected domains")
	fs.Var(&scopes, "scope", "Declared scope as <domain>@<env> (repeatable)")
	fs.Var(&frameHashes, "frame-hash", "Frame hash bound by a collected attestation (repeatable)")
	fs.StringVar(&selectedPath, "selected-path", "", "Execution path selected for this run")
	fs.StringVar(&declaredPath, "declared-path", "", "Execution path the review declared")
	fs.StringVar(&objective, "objective", "", "Disclosure objective text")
	fs.StringVar(&diffSummary, "diff-summary", "", "Disclosure diff summary text")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx := sdg.Context{
		SelectedPath: selectedPath,
		DeclaredPath: declaredPath,
		Objective:    objective,
		DiffSummary:  diffSummary,
	}
	if affected != "" {
		for _, d := range strings.Split(affected, ",") {
			if d = strings.TrimSpace(d); d != "" {
				ctx.AffectedDomains = append(ctx.AffectedDomains, d)
			}
		}
	}
	for _, s := range scopes {
		domain, env, ok := strings.Cut(s, "@")
		if !ok || domain == "" || env == "" {
			fmt.Fprintf(errOut, "invalid --scope (expected <domain>@<env>): %q\n", s)
			return 2
		}
		ctx.DeclaredScopes = append(ctx.DeclaredScopes, profile.Scope{Domain: domain, Environment: env})
	}
	ctx.FrameHashes = frameHashes

	res := sdg.Evaluate(sdg.Catalogue(), ctx)
	for _, f := range res.HardStops {
		fmt.Fprintf(out, "STOP %s: %s\n", f.RuleID, f.Reason)
	}
	for _, f := range res.Warnings {
		fmt.Fprintf(out, "WARN %s: %s\n", f.RuleID, f.Reason)
	}
	if res.Blocked() {
		return 1
	}
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "export":
		return cmdKeyExport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "hap key: local key management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  hap key init --kid <kid> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  hap key derive --from <kid> --role <role> [--force]")
	fmt.Fprintln(w, "  hap key list")
	fmt.Fprintln(w, "  hap key export --kid <kid> [--role <role>]")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var kid, seedHex string
	var force bool
	fs.StringVar(&kid, "kid", "", "Key id (directory under ~/.hap/keys)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible demos)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if kid == "" {
		fmt.Fprintln(errOut, "missing --kid")
		return 2
	}
	if err := keys.CheckKID(kid); err != nil {
		fmt.Fprintf(errOut, "invalid --kid: %v\n", err)
		return 2
	}
	ks, err := keys.Open("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}

	var seed []byte
	if seedHex != "" {
		seed, err = keys.ParseSeedHex(seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	pubHex, path, err := ks.InitRootKey(kid, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created root key: %s\n", pubHex)
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from, role string
	var force bool
	fs.StringVar(&from, "from", "", "Root key id")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. engineering, security)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" {
		fmt.Fprintln(errOut, "missing --from")
		return 2
	}
	if role == "" {
		fmt.Fprintln(errOut, "missing --role")
		return 2
	}
	if err := keys.CheckKID(from); err != nil {
		fmt.Fprintf(errOut, "invalid --from: %v\n", err)
		return 2
	}
	if err := keys.CheckRole(role); err != nil {
		fmt.Fprintf(errOut, "invalid --role: %v\n", err)
		return 2
	}
	ks, err := keys.Open("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	pubHex, path, err := ks.DeriveRoleKey(from, role, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive role key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created role key: %s\n", pubHex)
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var kid, role string
	fs.StringVar(&kid, "kid", "", "Key id")
	fs.StringVar(&role, "role", "", "Optional role (if set, exports the derived role key)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if kid == "" {
		fmt.Fprintln(errOut, "missing --kid")
		return 2
	}
	if err := keys.CheckKID(kid); err != nil {
		fmt.Fprintf(errOut, "invalid --kid: %v\n", err)
		return 2
	}
	if role != "" {
		if err := keys.CheckRole(role); err != nil {
			fmt.Fprintf(errOut, "invalid --role: %v\n", err)
			return 2
		}
	}
	ks, err := keys.Open("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	pubHex, err := ks.PublicKeyHex(kid, role)
	if err != nil {
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, pubHex)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := keys.Open("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.List()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\n", e.KID)
		for _, r := range e.Roles {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return 0
}

func cmdEvidence(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: hap evidence <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: put, get, has")
		return 2
	}
	sub := args[0]

	fs := flag.NewFlagSet("evidence "+sub, flag.ContinueOnError)
	fs.SetOutput(errOut)
	var dir, config string
	fs.StringVar(&dir, "dir", "", "Evidence directory (localfs backend)")
	fs.StringVar(&config, "config", "", "Evidence config file (overrides --dir)")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(errOut, "usage: hap evidence %s (--dir <path> | --config <file>) <arg>\n", sub)
		return 2
	}

	var store evidence.Store
	var closeFn func() error
	var err error
	switch {
	case config != "":
		var cfg evidence.Config
		cfg, err = evidence.LoadConfig(config)
		if err == nil {
			store, closeFn, err = cfg.Open()
		}
	case dir != "":
		store, err = evidence.NewFSStore(dir)
	default:
		err = fmt.Errorf("either --dir or --config is required")
	}
	if err != nil {
		fmt.Fprintf(errOut, "evidence: %v\n", err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	switch sub {
	case "put":
		b, rerr := os.ReadFile(fs.Arg(0))
		if rerr != nil {
			fmt.Fprintf(errOut, "read: %v\n", rerr)
			return 1
		}
		id, perr := store.Put(b)
		if perr != nil {
			fmt.Fprintf(errOut, "put: %v\n", perr)
			return 1
		}
		_, _ = fmt.Fprintln(out, id.String())
		return 0
	case "get":
		id, derr := cid.Decode(fs.Arg(0))
		if derr != nil {
			fmt.Fprintf(errOut, "invalid cid: %v\n", derr)
			return 2
		}
		b, gerr := store.Get(id)
		if gerr != nil {
			fmt.Fprintf(errOut, "get: %v\n", gerr)
			return 1
		}
		_, _ = out.Write(b)
		return 0
	case "has":
		id, derr := cid.Decode(fs.Arg(0))
		if derr != nil {
			fmt.Fprintf(errOut, "invalid cid: %v\n", derr)
			return 2
		}
		_, _ = fmt.Fprintln(out, store.Has(id))
		return 0
	default:
		fmt.Fprintf(errOut, "unknown evidence subcommand: %s\n", sub)
		return 2
	}
}

func cmdProfiles(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("profiles", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	for _, id := range profile.IDs() {
		_, _ = fmt.Fprintln(out, id)
	}
	return 0
}
