package authorize

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hap.dev/hap/attestation"
	"hap.dev/hap/cidutil"
	"hap.dev/hap/frame"
	"hap.dev/hap/keys"
	"hap.dev/hap/profile"
	"hap.dev/hap/scope"
)

const testSHA = "0123456789abcdef0123456789abcdef01234567"

var testNow = time.Unix(1760000000, 0)

type signerFixture struct {
	signer *attestation.Signer
	pubHex string
}

func newSignerFixture(t *testing.T, kid string, fill byte) signerFixture {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = fill
	}
	auth, err := keys.NewAuthority(kid, seed)
	require.NoError(t, err)
	s := attestation.NewSigner(auth)
	s.Clock = func() time.Time { return testNow }
	return signerFixture{signer: s, pubHex: auth.PublicKeyHex()}
}

func frameV02(t *testing.T) (frame.Frame, string) {
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
	h, err := frame.Hash(f, p)
	require.NoError(t, err)
	return f, h
}

func blobV02(t *testing.T, fx signerFixture, frameHash, did, domain string) string {
	t.Helper()
	p, err := profile.Lookup(profile.DeployGateV02)
	require.NoError(t, err)
	att, err := fx.signer.Sign(attestation.Payload{V02: &attestation.PayloadV02{
		ProfileID: profile.DeployGateV02,
		FrameHash: frameHash,
		Owners:    []string{did},
		Scopes: []attestation.OwnerScope{
			{DID: did, Domain: domain, Environment: "prod"},
		},
	}}, p)
	require.NoError(t, err)
	return att.Blob()
}

func TestAuthorizeV02WithSubstitution(t *testing.T) {
	f, frameHash := frameV02(t)
	eng := newSignerFixture(t, "eng", 0xA1)
	sec := newSignerFixture(t, "sec", 0xB2)
	keySet := attestation.KeySet{"eng": eng.pubHex, "sec": sec.pubHex}

	blobs := []string{
		blobV02(t, eng, frameHash, "did:key:alice", profile.DomainEngineering),
		blobV02(t, sec, frameHash, "did:key:bob", profile.DomainSecurity),
	}

	// deploy-prod-canary wants engineering+release_management; security
	// substitutes for release_management.
	auth, err := Authorize(blobs, keySet, f, profile.DeployGateV02, testNow)
	require.NoError(t, err)
	require.Equal(t, profile.DeployGateV02, auth.ProfileID)
	require.Equal(t, frameHash, auth.FrameHash)
	require.Len(t, auth.AttestationIDs, 2)
	require.ElementsMatch(t, auth.Scopes, []profile.Scope{
		{Domain: profile.DomainEngineering, Environment: "prod"},
		{Domain: profile.DomainSecurity, Environment: "prod"},
	})
	require.Equal(t, testNow.Unix(), auth.NotBefore)
	require.Equal(t, testNow.Add(24*time.Hour).Unix(), auth.NotAfter)
}

func TestAuthorizeV02InsufficientCoverage(t *testing.T) {
	f, frameHash := frameV02(t)
	eng := newSignerFixture(t, "eng", 0xA1)
	keySet := attestation.KeySet{"eng": eng.pubHex}

	blobs := []string{blobV02(t, eng, frameHash, "did:key:alice", profile.DomainEngineering)}

	_, err := Authorize(blobs, keySet, f, profile.DeployGateV02, testNow)
	var ierr *scope.InsufficientError
	require.ErrorAs(t, err, &ierr)
	require.Equal(t, []scope.Requirement{
		{Domain: profile.DomainReleaseManagement, Environment: "prod"},
	}, ierr.Missing)
}

func TestAuthorizeRejectsUnknownKID(t *testing.T) {
	f, frameHash := frameV02(t)
	eng := newSignerFixture(t, "eng", 0xA1)

	blobs := []string{blobV02(t, eng, frameHash, "did:key:alice", profile.DomainEngineering)}

	_, err := Authorize(blobs, attestation.KeySet{}, f, profile.DeployGateV02, testNow)
	require.True(t, attestation.IsKind(err, attestation.KindSignature))
}

func TestAuthorizeRejectsExpired(t *testing.T) {
	f, frameHash := frameV02(t)
	eng := newSignerFixture(t, "eng", 0xA1)
	keySet := attestation.KeySet{"eng": eng.pubHex}

	blobs := []string{blobV02(t, eng, frameHash, "did:key:alice", profile.DomainEngineering)}

	late := testNow.Add(25 * time.Hour)
	_, err := Authorize(blobs, keySet, f, profile.DeployGateV02, late)
	require.True(t, attestation.IsKind(err, attestation.KindExpired))
}

func TestAuthorizeRejectsForeignFrame(t *testing.T) {
	f, _ := frameV02(t)
	eng := newSignerFixture(t, "eng", 0xA1)
	keySet := attestation.KeySet{"eng": eng.pubHex}

	// Attestation bound to a different frame (staging instead of prod).
	p, err := profile.Lookup(profile.DeployGateV02)
	require.NoError(t, err)
	other := f
	other.Env = "staging"
	otherHash, err := frame.Hash(other, p)
	require.NoError(t, err)

	blobs := []string{blobV02(t, eng, otherHash, "did:key:alice", profile.DomainEngineering)}

	_, err = Authorize(blobs, keySet, f, profile.DeployGateV02, testNow)
	require.True(t, attestation.IsKind(err, attestation.KindFrameMismatch))
}

func TestAuthorizeRejectsUnknownProfile(t *testing.T) {
	f, _ := frameV02(t)
	_, err := Authorize(nil, attestation.KeySet{}, f, "deploy-gate@9.9", testNow)
	require.ErrorIs(t, err, profile.ErrUnknownProfile)
}

func TestAuthorizeRejectsProfileMismatch(t *testing.T) {
	_, frameHash := frameV02(t)
	eng := newSignerFixture(t, "eng", 0xA1)
	keySet := attestation.KeySet{"eng": eng.pubHex}

	blob := blobV02(t, eng, frameHash, "did:key:alice", profile.DomainEngineering)

	// The executor expects v0.3 but the attestation committed to v0.2.
	f3 := frame.Frame{
		Repo:    "acme/app",
		SHA:     testSHA,
		Env:     "prod",
		Profile: profile.DeployGateV03,
		Path:    profile.PathDeployProdCanary,
	}
	_, err := Authorize([]string{blob}, keySet, f3, profile.DeployGateV03, testNow)
	require.ErrorIs(t, err, profile.ErrUnknownProfile)
}

func TestAuthorizeV03(t *testing.T) {
	p, err := profile.Lookup(profile.DeployGateV03)
	require.NoError(t, err)
	f := frame.Frame{
		Repo:    "acme/app",
		SHA:     testSHA,
		Env:     "prod",
		Profile: profile.DeployGateV03,
		Path:    profile.PathDeployProdCanary,
	}
	frameHash, err := frame.Hash(f, p)
	require.NoError(t, err)

	eng := newSignerFixture(t, "eng", 0xA1)
	keySet := attestation.KeySet{"eng": eng.pubHex}

	att, err := eng.signer.Sign(attestation.Payload{V03: &attestation.PayloadV03{
		ProfileID: profile.DeployGateV03,
		FrameHash: frameHash,
		Domains: []attestation.ResolvedDomain{
			{
				Domain:         profile.DomainEngineering,
				DID:            "did:key:alice",
				Environment:    "prod",
				DisclosureHash: cidutil.ContentHash([]byte("eng slice")),
			},
			{
				Domain:         profile.DomainSecurity,
				DID:            "did:key:bob",
				Environment:    "prod",
				DisclosureHash: cidutil.ContentHash([]byte("sec slice")),
			},
		},
	}}, p)
	require.NoError(t, err)

	auth, err := Authorize([]string{att.Blob()}, keySet, f, profile.DeployGateV03, testNow)
	require.NoError(t, err)
	require.ElementsMatch(t, auth.Domains, []string{profile.DomainEngineering, profile.DomainSecurity})
	require.Empty(t, auth.Scopes)
}

func TestAuthorizeWindowIntersection(t *testing.T) {
	f, frameHash := frameV02(t)
	eng := newSignerFixture(t, "eng", 0xA1)
	sec := newSignerFixture(t, "sec", 0xB2)
	keySet := attestation.KeySet{"eng": eng.pubHex, "sec": sec.pubHex}

	p, err := profile.Lookup(profile.DeployGateV02)
	require.NoError(t, err)

	// The second attestation was issued later with a shorter tail.
	laterNow := testNow.Add(2 * time.Hour)
	sec.signer.Clock = func() time.Time { return laterNow }
	shortAtt, err := sec.signer.Sign(attestation.Payload{V02: &attestation.PayloadV02{
		ProfileID: profile.DeployGateV02,
		FrameHash: frameHash,
		Owners:    []string{"did:key:bob"},
		Scopes: []attestation.OwnerScope{
			{DID: "did:key:bob", Domain: profile.DomainSecurity, Environment: "prod"},
		},
		IssuedAt:  laterNow.Unix(),
		ExpiresAt: laterNow.Add(6 * time.Hour).Unix(),
	}}, p)
	require.NoError(t, err)

	blobs := []string{
		blobV02(t, eng, frameHash, "did:key:alice", profile.DomainEngineering),
		shortAtt.Blob(),
	}
	auth, err := Authorize(blobs, keySet, f, profile.DeployGateV02, laterNow)
	require.NoError(t, err)
	require.Equal(t, laterNow.Unix(), auth.NotBefore)
	require.Equal(t, laterNow.Add(6*time.Hour).Unix(), auth.NotAfter)
}
