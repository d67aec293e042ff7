package attestation

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"hap.dev/hap/profile"
)

func TestBlobRoundTripExact(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	_, frameHash := testFrameV02(t)
	s := testSigner(t, "eng", 0xA1)

	att, err := s.Sign(testPayloadV02(frameHash), p)
	require.NoError(t, err)

	decoded, err := DecodeBlob(att.Blob())
	require.NoError(t, err)

	require.Equal(t, att.ID(), decoded.ID())
	require.Equal(t, att.Header, decoded.Header)
	require.Equal(t, att.PayloadBytes(), decoded.PayloadBytes())
	require.Equal(t, att.Signature, decoded.Signature)
	require.Equal(t, att.Blob(), decoded.Blob())

	// The decoded attestation re-verifies against the original key, so
	// the signature still covers the exact bytes that travelled.
	require.NoError(t, decoded.VerifySignature(s.Authority.PublicKeyHex()))
}

func TestBlobRoundTripV03(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV03)
	_, frameHash := testFrameV03(t)
	s := testSigner(t, "sec", 0xB2)

	att, err := s.Sign(testPayloadV03(frameHash), p)
	require.NoError(t, err)

	decoded, err := DecodeBlob(att.Blob())
	require.NoError(t, err)
	require.NotNil(t, decoded.Payload.V03)
	require.Equal(t, att.Payload.V03.Domains, decoded.Payload.V03.Domains)
}

func TestBlobIsURLSafe(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	_, frameHash := testFrameV02(t)
	s := testSigner(t, "eng", 0xA1)

	att, err := s.Sign(testPayloadV02(frameHash), p)
	require.NoError(t, err)

	require.NotContains(t, att.Blob(), "+")
	require.NotContains(t, att.Blob(), "/")
	require.NotContains(t, att.Blob(), "=")
	_, err = base64.RawURLEncoding.DecodeString(att.Blob())
	require.NoError(t, err)
}

func TestDecodeBlobMalformed(t *testing.T) {
	cases := []struct {
		name string
		blob string
	}{
		{"empty", ""},
		{"not base64", "!!!not-base64!!!"},
		{"not json", base64.RawURLEncoding.EncodeToString([]byte("not json"))},
		{"wrong typ", base64.RawURLEncoding.EncodeToString([]byte(`{"header":{"typ":"jwt","alg":"ed25519","kid":"k"},"payload":{},"signature":""}`))},
		{"missing kid", base64.RawURLEncoding.EncodeToString([]byte(`{"header":{"typ":"hap-attestation","alg":"ed25519"},"payload":{},"signature":""}`))},
		{"bad version tag", base64.RawURLEncoding.EncodeToString([]byte(`{"header":{"typ":"hap-attestation","alg":"ed25519","kid":"k"},"payload":{"v":"0.9"},"signature":""}`))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeBlob(tc.blob)
			require.Error(t, err)
			require.True(t, IsKind(err, KindMalformed), "kind for %s: %v", tc.name, err)
		})
	}
}

func TestDecodeBlobChecksSignatureLength(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	_, frameHash := testFrameV02(t)
	s := testSigner(t, "eng", 0xA1)

	att, err := s.Sign(testPayloadV02(frameHash), p)
	require.NoError(t, err)

	// Re-encode the envelope with a truncated signature.
	truncated, err := encodeEnvelope(att.Header, att.PayloadBytes(), att.Signature[:10])
	require.NoError(t, err)
	_, err = DecodeBlob(truncated)
	require.True(t, IsKind(err, KindMalformed))
	require.Equal(t, "HAP-BLOB-016", RuleID(err))
}

func TestTamperedPayloadFailsSignature(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	_, frameHash := testFrameV02(t)
	s := testSigner(t, "eng", 0xA1)

	att, err := s.Sign(testPayloadV02(frameHash), p)
	require.NoError(t, err)

	// Flip one byte of the payload, keep the original signature.
	tampered := att.PayloadBytes()
	tampered[len(tampered)/2] ^= 0x01
	blob, err := encodeEnvelope(att.Header, tampered, att.Signature)
	require.NoError(t, err)

	decoded, err := DecodeBlob(blob)
	if err != nil {
		// The flip may have broken the JSON itself; that is also a
		// hard rejection.
		require.True(t, IsKind(err, KindMalformed))
		return
	}
	err = decoded.VerifySignature(s.Authority.PublicKeyHex())
	require.True(t, IsKind(err, KindSignature))
	require.Equal(t, "HAP-SIG-401", RuleID(err))
}

func TestAttestationIDIsHashOfBlob(t *testing.T) {
	p := mustProfile(t, profile.DeployGateV02)
	_, frameHash := testFrameV02(t)
	s := testSigner(t, "eng", 0xA1)

	a1, err := s.Sign(testPayloadV02(frameHash), p)
	require.NoError(t, err)
	a2, err := s.Sign(testPayloadV02(frameHash), p)
	require.NoError(t, err)

	// Fresh payload ids mean fresh blobs mean fresh attestation ids.
	require.NotEqual(t, a1.ID(), a2.ID())
	require.NotEmpty(t, a1.CID())
}
