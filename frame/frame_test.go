package frame

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"hap.dev/hap/cidutil"
	"hap.dev/hap/profile"
)

const (
	testSHA            = "0123456789abcdef0123456789abcdef01234567"
	testDisclosureHash = "sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
)

func mustProfile(t *testing.T, id string) *profile.Profile {
	t.Helper()
	p, err := profile.Lookup(id)
	require.NoError(t, err)
	return p
}

func validFrameV02() Frame {
	return Frame{
		Repo:           "acme/app",
		SHA:            testSHA,
		Env:            "prod",
		Profile:        profile.DeployGateV02,
		Path:           profile.PathDeployProdCanary,
		DisclosureHash: testDisclosureHash,
	}
}

func validFrameV03() Frame {
	return Frame{
		Repo:    "acme/app",
		SHA:     testSHA,
		Env:     "prod",
		Profile: profile.DeployGateV03,
		Path:    profile.PathDeployProdCanary,
	}
}

func TestCanonicalizeV02ExactBytes(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	got, err := Canonicalize(validFrameV02(), p)
	require.NoError(t, err)

	want := strings.Join([]string{
		"repo=acme/app",
		"sha=" + testSHA,
		"env=prod",
		"profile=deploy-gate@0.2",
		"path=deploy-prod-canary",
		"disclosure_hash=" + testDisclosureHash,
	}, "\n")
	require.Equal(t, want, string(got))
}

func TestCanonicalizeV03ExactBytes(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV03)
	got, err := Canonicalize(validFrameV03(), p)
	require.NoError(t, err)

	want := strings.Join([]string{
		"repo=acme/app",
		"sha=" + testSHA,
		"env=prod",
		"profile=deploy-gate@0.3",
		"path=deploy-prod-canary",
	}, "\n")
	require.Equal(t, want, string(got))
}

// Pinned vectors: any implementation hashing these frames must produce
// these exact values.
func TestHashConformanceVectors(t *testing.T) {
	v02, err := Hash(validFrameV02(), mustProfile(t, profile.DeployGateV02))
	require.NoError(t, err)
	require.Equal(t, "sha256:3fe6a3a2d3c39298db9472ca529f44950c2b8f57d2ec4b5c334739157251220d", v02)

	v03, err := Hash(validFrameV03(), mustProfile(t, profile.DeployGateV03))
	require.NoError(t, err)
	require.Equal(t, "sha256:e64faa3e3beb51b0c84f59e12ea7290f68c67e60979cdc9e386a5dc89397f2d1", v03)
}

func TestHashDeterministic(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	a, err := Hash(validFrameV02(), p)
	require.NoError(t, err)
	b, err := Hash(validFrameV02(), p)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.True(t, cidutil.IsContentHash(a))
}

func TestHashChangesWithAnyField(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	base, err := Hash(validFrameV02(), p)
	require.NoError(t, err)

	changed := validFrameV02()
	changed.Env = "staging"
	other, err := Hash(changed, p)
	require.NoError(t, err)
	require.NotEqual(t, base, other)
}

func TestCanonicalizeReportsAllViolations(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	f := validFrameV02()
	f.SHA = "not-a-sha"
	f.Env = ""
	f.DisclosureHash = "sha256:short"

	_, err := Canonicalize(f, p)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 3)
	require.Contains(t, err.Error(), "sha")
	require.Contains(t, err.Error(), "env")
	require.Contains(t, err.Error(), "disclosure_hash")
}

func TestCanonicalizeRejectsLineBreaks(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	f := validFrameV02()
	f.Repo = "acme/app\nextra=1"

	_, err := Canonicalize(f, p)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCanonicalizeRejectsForeignDisclosureHash(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV03)
	f := validFrameV03()
	f.DisclosureHash = testDisclosureHash

	_, err := Canonicalize(f, p)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, err.Error(), "disclosure_hash")
}

func TestCanonicalizeRejectsWrongPath(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	f := validFrameV02()
	f.Path = "deploy-yolo"

	_, err := Canonicalize(f, p)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
