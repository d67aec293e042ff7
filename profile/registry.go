package profile

import (
	"regexp"
	"time"
)

// Profile ids of the built-in schema generations.
const (
	DeployGateV02 = "deploy-gate@0.2"
	DeployGateV03 = "deploy-gate@0.3"
)

// Frame field names. The per-profile order is what matters for
// canonicalization; these constants just prevent typos.
const (
	FieldRepo           = "repo"
	FieldSHA            = "sha"
	FieldEnv            = "env"
	FieldProfile        = "profile"
	FieldPath           = "path"
	FieldDisclosureHash = "disclosure_hash"
)

// Review domains.
const (
	DomainEngineering       = "engineering"
	DomainReleaseManagement = "release_management"
	DomainSecurity          = "security"
)

// Execution path ids shared by both built-in profiles.
const (
	PathDeployStaging    = "deploy-staging"
	PathDeployProdCanary = "deploy-prod-canary"
	PathDeployProdFull   = "deploy-prod-full"
)

var (
	repoPattern           = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*/[A-Za-z0-9._-]+$`)
	shaPattern            = regexp.MustCompile(`^[0-9a-f]{40}$`)
	disclosureHashPattern = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)
)

// A security attestation may satisfy a release_management requirement.
// The exception is named and one-directional.
var standardSubstitutions = map[string][]string{
	DomainReleaseManagement: {DomainSecurity},
}

var registry = map[string]*Profile{
	DeployGateV02: {
		ID:      DeployGateV02,
		Version: V02,
		FrameFields: []FieldSpec{
			{Name: FieldRepo, Pattern: repoPattern},
			{Name: FieldSHA, Pattern: shaPattern},
			{Name: FieldEnv, Allowed: []string{"prod", "staging"}},
			{Name: FieldProfile, Allowed: []string{DeployGateV02}},
			{Name: FieldPath, Allowed: []string{PathDeployStaging, PathDeployProdCanary, PathDeployProdFull}},
			{Name: FieldDisclosureHash, Pattern: disclosureHashPattern},
		},
		SharedDisclosureFields: []string{"repo", "sha", "paths", "risk_flags"},
		DomainDisclosureFields: []DomainFieldSpec{
			{Name: "problem", MinLen: 1, MaxLen: 4000},
			{Name: "objective", MinLen: 1, MaxLen: 4000},
			{Name: "tradeoffs", MinLen: 1, MaxLen: 4000},
		},
		ExecutionPaths: map[string]PathRequirement{
			PathDeployStaging: {
				Scopes:        []Scope{{Domain: DomainEngineering, Environment: "staging"}},
				Substitutions: standardSubstitutions,
			},
			PathDeployProdCanary: {
				Scopes: []Scope{
					{Domain: DomainEngineering, Environment: "prod"},
					{Domain: DomainReleaseManagement, Environment: "prod"},
				},
				Substitutions: standardSubstitutions,
			},
			PathDeployProdFull: {
				Scopes: []Scope{
					{Domain: DomainEngineering, Environment: "prod"},
					{Domain: DomainReleaseManagement, Environment: "prod"},
					{Domain: DomainSecurity, Environment: "prod"},
				},
				Substitutions: standardSubstitutions,
			},
		},
		TTLDefault: 24 * time.Hour,
		TTLMax:     72 * time.Hour,
	},
	DeployGateV03: {
		ID:      DeployGateV03,
		Version: V03,
		FrameFields: []FieldSpec{
			{Name: FieldRepo, Pattern: repoPattern},
			{Name: FieldSHA, Pattern: shaPattern},
			{Name: FieldEnv, Allowed: []string{"prod", "staging"}},
			{Name: FieldProfile, Allowed: []string{DeployGateV03}},
			{Name: FieldPath, Allowed: []string{PathDeployStaging, PathDeployProdCanary, PathDeployProdFull}},
		},
		DomainDisclosureFields: []DomainFieldSpec{
			{Name: "diff_summary", MinLen: 1, MaxLen: 4000},
			{Name: "test_status", MinLen: 1, MaxLen: 4000},
			{Name: "rollback_plan", MinLen: 1, MaxLen: 4000},
		},
		ExecutionPaths: map[string]PathRequirement{
			PathDeployStaging: {
				Domains:       []string{DomainEngineering},
				Substitutions: standardSubstitutions,
			},
			PathDeployProdCanary: {
				Domains:       []string{DomainEngineering, DomainReleaseManagement},
				Substitutions: standardSubstitutions,
			},
			PathDeployProdFull: {
				Domains:       []string{DomainEngineering, DomainReleaseManagement, DomainSecurity},
				Substitutions: standardSubstitutions,
			},
		},
		TTLDefault: 24 * time.Hour,
		TTLMax:     72 * time.Hour,
	},
}
