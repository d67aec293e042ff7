package disclosure

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"src/main.go", "src/main.go"},
		{"./src/main.go", "src/main.go"},
		{"src//main.go", "src/main.go"},
		{"src///deep////main.go", "src/deep/main.go"},
		{"src/pkg/", "src/pkg"},
		{"./a//b/", "a/b"},
	}
	for _, tc := range cases {
		got, err := NormalizePath(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestNormalizePathIdempotent(t *testing.T) {
	for _, in := range []string{"./src//main.go", "a/b/c/", "deep//nested/x"} {
		once, err := NormalizePath(in)
		require.NoError(t, err)
		twice, err := NormalizePath(once)
		require.NoError(t, err)
		require.Equal(t, once, twice)
	}
}

func TestNormalizePathRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"../secrets",
		"a/../b",
		"src/..",
		"./",
		"a/b\nc",
	} {
		_, err := NormalizePath(in)
		require.Error(t, err, "accepted %q", in)
	}
}
