package review

import (
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hap.dev/hap/attestation"
	"hap.dev/hap/cidutil"
	"hap.dev/hap/frame"
	"hap.dev/hap/keys"
	"hap.dev/hap/profile"
)

const testSHA = "0123456789abcdef0123456789abcdef01234567"

var testNow = time.Unix(1760000000, 0)

func testSigner(t *testing.T, kid string, fill byte) *attestation.Signer {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = fill
	}
	auth, err := keys.NewAuthority(kid, seed)
	require.NoError(t, err)
	s := attestation.NewSigner(auth)
	s.Clock = func() time.Time { return testNow }
	return s
}

func signedComment(t *testing.T, kid string, fill byte, domain string) (*attestation.Attestation, string) {
	t.Helper()
	p, err := profile.Lookup(profile.DeployGateV02)
	require.NoError(t, err)
	f := frame.Frame{
		Repo:           "acme/app",
		SHA:            testSHA,
		Env:            "prod",
		Profile:        profile.DeployGateV02,
		Path:           profile.PathDeployProdCanary,
		DisclosureHash: cidutil.ContentHash([]byte("disclosure")),
	}
	frameHash, err := frame.Hash(f, p)
	require.NoError(t, err)

	payload := attestation.Payload{V02: &attestation.PayloadV02{
		ProfileID: profile.DeployGateV02,
		FrameHash: frameHash,
		Owners:    []string{"did:key:" + kid},
		Scopes: []attestation.OwnerScope{
			{DID: "did:key:" + kid, Domain: domain, Environment: "prod"},
		},
	}}
	att, err := testSigner(t, kid, fill).Sign(payload, p)
	require.NoError(t, err)

	block, err := attestation.EncodeBlock(att, f, "")
	require.NoError(t, err)
	return att, "Reviewed, looks fine.\n\n" + block + "\n"
}

func TestCollectGathersAndSorts(t *testing.T) {
	a1, c1 := signedComment(t, "eng", 0xA1, profile.DomainEngineering)
	a2, c2 := signedComment(t, "sec", 0xB2, profile.DomainSecurity)

	got := Collect([]string{"no block here", c1, c2}, testSHA)
	require.Len(t, got.Attestations, 2)
	require.Empty(t, got.Exclusions)

	ids := []string{got.Attestations[0].ID(), got.Attestations[1].ID()}
	require.ElementsMatch(t, ids, []string{a1.ID(), a2.ID()})
	require.True(t, ids[0] < ids[1])

	require.Equal(t, []profile.Scope{
		{Domain: profile.DomainEngineering, Environment: "prod"},
		{Domain: profile.DomainSecurity, Environment: "prod"},
	}, got.Scopes())
	require.Len(t, got.FrameHashes(), 1)
}

func TestCollectOrderIndependent(t *testing.T) {
	_, c1 := signedComment(t, "eng", 0xA1, profile.DomainEngineering)
	_, c2 := signedComment(t, "sec", 0xB2, profile.DomainSecurity)

	forward := Collect([]string{c1, c2}, testSHA)
	backward := Collect([]string{c2, c1}, testSHA)

	require.Equal(t, len(forward.Attestations), len(backward.Attestations))
	for i := range forward.Attestations {
		require.Equal(t, forward.Attestations[i].ID(), backward.Attestations[i].ID())
	}
}

func TestCollectDeduplicates(t *testing.T) {
	_, c1 := signedComment(t, "eng", 0xA1, profile.DomainEngineering)

	got := Collect([]string{c1, c1, c1}, testSHA)
	require.Len(t, got.Attestations, 1)
	require.Empty(t, got.Exclusions)
}

func TestCollectExcludesOtherCommit(t *testing.T) {
	_, c1 := signedComment(t, "eng", 0xA1, profile.DomainEngineering)

	got := Collect([]string{c1}, strings.Repeat("f", 40))
	require.Empty(t, got.Attestations)
	require.Len(t, got.Exclusions, 1)
	require.Equal(t, 0, got.Exclusions[0].Comment)
	require.Contains(t, got.Exclusions[0].Reason, "different commit")
}

func TestCollectExcludesUndecodableBlob(t *testing.T) {
	_, c1 := signedComment(t, "eng", 0xA1, profile.DomainEngineering)
	corrupted := strings.Replace(c1, "blob=", "blob=XX", 1)

	got := Collect([]string{corrupted}, testSHA)
	require.Empty(t, got.Attestations)
	require.Len(t, got.Exclusions, 1)
	require.Contains(t, got.Exclusions[0].Reason, "undecodable")
}

func TestCollectExcludesFrameHashDisagreement(t *testing.T) {
	_, c1 := signedComment(t, "eng", 0xA1, profile.DomainEngineering)
	lied := strings.Replace(c1, "frame_hash=sha256:", "frame_hash=sha256:0000", 1)

	got := Collect([]string{lied}, testSHA)
	require.Empty(t, got.Attestations)
	require.Len(t, got.Exclusions, 1)
	require.Contains(t, got.Exclusions[0].Reason, "disagrees")
}
