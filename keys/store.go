package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore is a local filesystem store for Ed25519 seeds.
//
// Layout: <dir>/<kid>/root.key holds the hex seed; role subkeys live
// under <dir>/<kid>/roles/<role>.key. Private key files are 0600.
type KeyStore struct {
	Directory string
}

// KeyEntry describes one stored identity and its derived roles.
type KeyEntry struct {
	KID   string
	Roles []string
}

// DefaultDirectory is where the store lives unless overridden.
func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".hap", "keys"), nil
}

// Open returns a KeyStore rooted at directory, or the default location
// when directory is empty.
func Open(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

// CheckKID validates a key id: nonempty, [A-Za-z0-9_-] only.
func CheckKID(kid string) error {
	if kid == "" {
		return errors.New("key id cannot be empty")
	}
	for _, char := range kid {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in key id", char)
	}
	return nil
}

// CheckRole validates a role name with the same alphabet as key ids.
func CheckRole(role string) error {
	if role == "" {
		return errors.New("role cannot be empty")
	}
	for _, char := range role {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in role", char)
	}
	return nil
}

func (ks *KeyStore) rootKeyPath(kid string) string {
	return filepath.Join(ks.Directory, kid, "root.key")
}

func (ks *KeyStore) roleKeyPath(kid, role string) string {
	return filepath.Join(ks.Directory, kid, "roles", role+".key")
}

func (ks *KeyStore) saveSeed(filePath string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadSeed(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(strings.TrimSpace(string(data)))
}

// InitRootKey stores seed as the root key for kid and returns the hex
// public key and the file written.
func (ks *KeyStore) InitRootKey(kid string, seed []byte, overwrite bool) (pubHex string, filePath string, err error) {
	if err := CheckKID(kid); err != nil {
		return "", "", err
	}
	filePath = ks.rootKeyPath(kid)
	if err := ks.saveSeed(filePath, seed, overwrite); err != nil {
		return "", "", err
	}
	return PublicKeyHexFromSeed(seed), filePath, nil
}

// DeriveRoleKey derives and stores a role subkey from kid's root seed.
func (ks *KeyStore) DeriveRoleKey(kid, role string, overwrite bool) (pubHex string, filePath string, err error) {
	if err := CheckKID(kid); err != nil {
		return "", "", err
	}
	if err := CheckRole(role); err != nil {
		return "", "", err
	}
	rootSeed, err := ks.loadSeed(ks.rootKeyPath(kid))
	if err != nil {
		return "", "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return "", "", err
	}
	filePath = ks.roleKeyPath(kid, role)
	if err := ks.saveSeed(filePath, roleSeed, overwrite); err != nil {
		return "", "", err
	}
	return PublicKeyHexFromSeed(roleSeed), filePath, nil
}

// LoadSeed resolves a seed for signing: explicit hex, explicit file, or
// a stored kid (optionally a role subkey), in that precedence order.
func (ks *KeyStore) LoadSeed(seedHex, kid, role, keyFile string) ([]byte, error) {
	if seedHex != "" {
		return ParseSeedHex(seedHex)
	}
	if keyFile != "" {
		return ks.loadSeed(keyFile)
	}
	if kid != "" {
		if err := CheckKID(kid); err != nil {
			return nil, err
		}
		if role == "" {
			return ks.loadSeed(ks.rootKeyPath(kid))
		}
		if err := CheckRole(role); err != nil {
			return nil, err
		}
		return ks.loadSeed(ks.roleKeyPath(kid, role))
	}
	return nil, errors.New("no signer provided")
}

// PublicKeyHex returns the distribution-form public key for kid
// (role subkey when role is nonempty).
func (ks *KeyStore) PublicKeyHex(kid, role string) (string, error) {
	if err := CheckKID(kid); err != nil {
		return "", err
	}
	var seed []byte
	var err error
	if role == "" {
		seed, err = ks.loadSeed(ks.rootKeyPath(kid))
	} else {
		if err := CheckRole(role); err != nil {
			return "", err
		}
		seed, err = ks.loadSeed(ks.roleKeyPath(kid, role))
	}
	if err != nil {
		return "", err
	}
	return PublicKeyHexFromSeed(seed), nil
}

// List returns every stored identity with its derived roles, sorted.
func (ks *KeyStore) List() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var kids []string
	for _, entry := range entries {
		if entry.IsDir() {
			kids = append(kids, entry.Name())
		}
	}
	sort.Strings(kids)

	var result []KeyEntry
	for _, kid := range kids {
		rolesDir := filepath.Join(ks.Directory, kid, "roles")
		roleEntries, rerr := os.ReadDir(rolesDir)
		var roles []string
		if rerr == nil {
			for _, roleEntry := range roleEntries {
				if roleEntry.IsDir() {
					continue
				}
				if strings.HasSuffix(roleEntry.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(roleEntry.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		result = append(result, KeyEntry{KID: kid, Roles: roles})
	}
	return result, nil
}
