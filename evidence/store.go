// Package evidence stores the canonical bytes an attestation refers to
// (disclosure documents and encoded attestation blobs) in an immutable,
// content-addressed way. Anything a hash in a payload points at can be
// parked here and re-fetched byte-exactly for audit.
package evidence

import (
	"errors"

	"github.com/ipfs/go-cid"
)

var (
	ErrNotFound    = errors.New("evidence: not found")
	ErrInvalidCID  = errors.New("evidence: invalid cid")
	ErrCIDMismatch = errors.New("evidence: cid mismatch")
	ErrImmutable   = errors.New("evidence: immutable object mismatch")
)

// Store is the content-addressed evidence interface.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable.
// - CIDs MUST be derived from the bytes written; callers supply
//   canonical bytes.
// - Get MUST return ErrNotFound when the CID is absent.
type Store interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// IsNotFound reports whether err is the store's not-found condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
