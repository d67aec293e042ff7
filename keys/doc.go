// Package keys provides key material for the signing authority ("SP"):
// Ed25519 seeds stored on the local filesystem, deterministic
// role-derived subkeys, digest selection for the post-quantum signature
// option, and a lazily-initialized process-wide signing authority.
//
// The filesystem store is a local-first convenience. The pure
// primitives (seed parsing, role derivation, public-key formatting)
// are the stable surface.
package keys
