package disclosure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"hap.dev/hap/cidutil"
	"hap.dev/hap/profile"
)

func mustProfile(t *testing.T, id string) *profile.Profile {
	t.Helper()
	p, err := profile.Lookup(id)
	require.NoError(t, err)
	return p
}

func validDisclosure() Disclosure {
	return Disclosure{
		Repo:      "acme/app",
		SHA:       "0123456789abcdef0123456789abcdef01234567",
		Paths:     []string{"src/main.go", "src/handler.go"},
		RiskFlags: []string{"touches-auth"},
		Domains: map[string]DomainContent{
			"engineering": {
				Problem:   "login latency regressed",
				Objective: "cut p99 login latency in half",
				Tradeoffs: "adds a cache with a short staleness window",
			},
		},
	}
}

func TestHashDeterministicUnderReordering(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)

	a := validDisclosure()
	b := validDisclosure()
	// Same set, different supply order and a duplicate.
	b.Paths = []string{"src/handler.go", "src/main.go", "src/main.go"}
	b.RiskFlags = []string{"touches-auth", "touches-auth"}

	ha, err := Hash(a, p)
	require.NoError(t, err)
	hb, err := Hash(b, p)
	require.NoError(t, err)
	require.Equal(t, ha, hb)
	require.True(t, cidutil.IsContentHash(ha))
}

func TestHashSensitiveToContent(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	base, err := Hash(validDisclosure(), p)
	require.NoError(t, err)

	changed := validDisclosure()
	dc := changed.Domains["engineering"]
	dc.Objective = "a different objective entirely"
	changed.Domains["engineering"] = dc

	other, err := Hash(changed, p)
	require.NoError(t, err)
	require.NotEqual(t, base, other)
}

func TestCanonicalizeNormalizesPaths(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	a := validDisclosure()
	b := validDisclosure()
	b.Paths = []string{"./src/main.go", "src//handler.go"}

	ca, err := Canonicalize(a, p)
	require.NoError(t, err)
	cb, err := Canonicalize(b, p)
	require.NoError(t, err)
	require.Equal(t, ca, cb)
}

func TestCanonicalizeReportsAllViolations(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	d := validDisclosure()
	d.Repo = ""
	d.Paths = []string{"../escape"}
	d.Domains["engineering"] = DomainContent{Problem: "p", Objective: "", Tradeoffs: "t"}

	_, err := Canonicalize(d, p)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.GreaterOrEqual(t, len(verr.Violations), 3)
	require.Contains(t, err.Error(), "repo")
	require.Contains(t, err.Error(), "paths")
	require.Contains(t, err.Error(), "objective")
}

func TestCanonicalizeRequiresV02Profile(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV03)
	_, err := Canonicalize(validDisclosure(), p)
	require.Error(t, err)
}

func TestCanonicalizeRejectsOversizedField(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	d := validDisclosure()
	dc := d.Domains["engineering"]
	dc.Problem = strings.Repeat("x", 4001)
	d.Domains["engineering"] = dc

	_, err := Canonicalize(d, p)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestHashDomainIndependence(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV03)
	eng := map[string]string{
		"diff_summary":  "reworked the login handler",
		"test_status":   "unit and integration suites green",
		"rollback_plan": "revert the release tag",
	}
	h1, err := HashDomain("engineering", eng, p)
	require.NoError(t, err)
	require.True(t, cidutil.IsContentHash(h1))

	// The same fields under a different domain key hash differently.
	h2, err := HashDomain("security", eng, p)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)

	// Recomputing is stable.
	h3, err := HashDomain("engineering", eng, p)
	require.NoError(t, err)
	require.Equal(t, h1, h3)
}

func TestHashDomainValidatesFields(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV03)

	_, err := HashDomain("engineering", map[string]string{
		"diff_summary": "something",
	}, p)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = HashDomain("engineering", map[string]string{
		"diff_summary":  "a",
		"test_status":   "b",
		"rollback_plan": "c",
		"extra_field":   "not in the profile",
	}, p)
	require.ErrorAs(t, err, &verr)
	require.Contains(t, err.Error(), "extra_field")
}
