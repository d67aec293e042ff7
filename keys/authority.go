package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// Authority holds the signing authority's key material. It is
// constructed once and read-only thereafter; Sign is safe for
// concurrent use.
type Authority struct {
	kid  string
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewAuthority builds an Authority from an Ed25519 seed.
func NewAuthority(kid string, seed []byte) (*Authority, error) {
	if err := CheckKID(kid); err != nil {
		return nil, err
	}
	if _, err := ParseSeedHex(hex.EncodeToString(seed)); err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Authority{
		kid:  kid,
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// KID returns the authority's key id.
func (a *Authority) KID() string { return a.kid }

// Sign signs message bytes with the authority's Ed25519 key.
func (a *Authority) Sign(message []byte) []byte {
	return SignEd25519(message, a.priv)
}

// PublicKey returns the raw Ed25519 public key.
func (a *Authority) PublicKey() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), a.pub...)
}

// PublicKeyHex returns the distribution form of the public key.
func (a *Authority) PublicKeyHex() string {
	return hex.EncodeToString(a.pub)
}

// ProcessAuthorityKID is the key id under which the process-wide
// authority stores its root seed.
const ProcessAuthorityKID = "sp"

var (
	processOnce sync.Once
	processAuth *Authority
	processErr  error
)

// ProcessAuthority returns the lazily-initialized process-wide signing
// authority. The first caller loads the seed from the default key store
// (generating and persisting a fresh one if absent); subsequent callers
// reuse the same Authority. Safe to call concurrently.
func ProcessAuthority() (*Authority, error) {
	processOnce.Do(func() {
		processAuth, processErr = loadOrCreateProcessAuthority()
	})
	return processAuth, processErr
}

func loadOrCreateProcessAuthority() (*Authority, error) {
	ks, err := Open("")
	if err != nil {
		return nil, err
	}
	seed, err := ks.LoadSeed("", ProcessAuthorityKID, "", "")
	if err != nil {
		seed = make([]byte, ed25519.SeedSize)
		if _, rerr := rand.Read(seed); rerr != nil {
			return nil, rerr
		}
		if _, _, werr := ks.InitRootKey(ProcessAuthorityKID, seed, false); werr != nil {
			// Lost a concurrent init race: fall back to the stored seed.
			seed, err = ks.LoadSeed("", ProcessAuthorityKID, "", "")
			if err != nil {
				return nil, werr
			}
		}
	}
	return NewAuthority(ProcessAuthorityKID, seed)
}
