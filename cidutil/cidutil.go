// Package cidutil provides the content-address helpers shared by the
// protocol core: the `sha256:<hex>` content hash used for Frame,
// Disclosure, and attestation identities, and IPFS-compatible CIDv1
// derivation used by the evidence store.
package cidutil

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ContentHashPrefix is the scheme prefix for protocol content hashes.
const ContentHashPrefix = "sha256:"

var contentHashPattern = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

// ContentHash returns the protocol content hash of data:
// "sha256:" followed by 64 lowercase hex characters.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return ContentHashPrefix + hex.EncodeToString(sum[:])
}

// IsContentHash reports whether s is a well-formed protocol content hash.
func IsContentHash(s string) bool {
	return contentHashPattern.MatchString(s)
}

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1 length,
		// this should be unreachable.
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
