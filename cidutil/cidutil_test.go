package cidutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentHashFormat(t *testing.T) {
	h := ContentHash([]byte("hello"))
	require.True(t, IsContentHash(h))
	require.Len(t, h, len(ContentHashPrefix)+64)
}

func TestContentHashEmptyInput(t *testing.T) {
	// sha256 of the empty string is a fixed, well-known value.
	require.Equal(t,
		"sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		ContentHash(nil))
}

func TestIsContentHashRejectsNearMisses(t *testing.T) {
	for _, s := range []string{
		"",
		"sha256:",
		"sha256:abc",
		"sha512:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		"sha256:E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855",
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		"sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855x",
	} {
		require.False(t, IsContentHash(s), "accepted %q", s)
	}
}

func TestCIDv1HelpersAgree(t *testing.T) {
	data := []byte("evidence bytes")
	str := CIDv1RawSHA256(data)
	require.NotEmpty(t, str)

	id, err := CIDv1RawSHA256CID(data)
	require.NoError(t, err)
	require.Equal(t, str, id.String())

	other, err := CIDv1RawSHA256CID([]byte("different bytes"))
	require.NoError(t, err)
	require.NotEqual(t, id, other)
}
