// Package keys implements the password-protected keystore: named Ed25519
// keypairs encrypted at rest under an Argon2id-derived key, unlockable for the
// duration of a single signing operation.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Errors.
var (
	ErrNotInitialized   = errors.New("keystore not initialized, create a key first with `pchain-client keys create`")
	ErrAlreadySetUp     = errors.New("keystore already set up")
	ErrKeyExists        = errors.New("keypair name already exists")
	ErrKeyNotFound      = errors.New("keypair not found")
	ErrKeyPairMismatch  = errors.New("public key does not match private key")
	ErrWrongPassword    = errors.New("wrong password")
	ErrDecryptionFailed = errors.New("decryption failed: wrong password or corrupted entry")
)

const storeFileName = "keystore.json"

// b64 is the fixed reversible text encoding for keys and addresses crossing
// the CLI boundary: URL-safe Base64 without padding.
var b64 = base64.RawURLEncoding

// EncodeText renders a key or address in the canonical text encoding.
func EncodeText(b []byte) string { return b64.EncodeToString(b) }

// Entry is one encrypted keypair record. The public key is stored in the
// clear so listing never requires the password; the private key exists only
// inside the ciphertext.
type Entry struct {
	Name       string    `json:"name"`
	PublicKey  string    `json:"public_key"`
	Ciphertext string    `json:"ciphertext"`
	Salt       string    `json:"salt"`
	Nonce      string    `json:"nonce"`
	KDF        KDFParams `json:"kdf"`
}

// policy records whether the keystore is password protected, plus a verifier
// so a wrong password is rejected before it can seal new entries under the
// wrong key. An unprotected keystore still runs the same sealing path with an
// empty password.
type policy struct {
	Protected bool      `json:"protected"`
	Salt      string    `json:"salt"`
	Verifier  string    `json:"verifier"`
	KDF       KDFParams `json:"kdf"`
}

type storeFile struct {
	Policy  policy  `json:"policy"`
	Entries []Entry `json:"entries"`
}

// Store is a keystore backed by a single JSON file under the config dir.
type Store struct {
	path string
}

// Open returns a Store rooted at dir. The file is read lazily per operation;
// no state is cached across calls.
func Open(dir string) *Store {
	return &Store{path: filepath.Join(dir, storeFileName)}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Initialized reports whether Setup has been run.
func (s *Store) Initialized() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Setup creates the keystore file and records the password policy. An empty
// password opts out of protection but keys are still sealed (under the
// empty-password-derived key), keeping a single code path.
func (s *Store) Setup(password []byte) error {
	if s.Initialized() {
		return ErrAlreadySetUp
	}

	p := DefaultKDFParams()
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating policy salt: %w", err)
	}

	sf := storeFile{
		Policy: policy{
			Protected: len(password) > 0,
			Salt:      b64.EncodeToString(salt),
			Verifier:  b64.EncodeToString(deriveKey(password, salt, p)),
			KDF:       p,
		},
	}
	return s.write(&sf)
}

// Protected reports whether a non-empty password was chosen at setup time.
// Callers use this to decide whether to prompt.
func (s *Store) Protected() (bool, error) {
	sf, err := s.load()
	if err != nil {
		return false, err
	}
	return sf.Policy.Protected, nil
}

// Generate creates a fresh Ed25519 keypair, seals the private key under the
// password and persists it. If name is empty a unique generated name is
// assigned. Returns the entry name and the public key (the account address).
func (s *Store) Generate(name string, password []byte) (string, ed25519.PublicKey, error) {
	sf, err := s.load()
	if err != nil {
		return "", nil, err
	}
	if err := sf.checkPassword(password); err != nil {
		return "", nil, err
	}

	if name == "" {
		name = generatedName(sf.Entries)
	} else if sf.find(name) != nil {
		return "", nil, fmt.Errorf("%w: %q", ErrKeyExists, name)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, fmt.Errorf("generating keypair: %w", err)
	}
	defer zero(priv)

	if err := sf.append(name, pub, priv, password); err != nil {
		return "", nil, err
	}
	return name, pub, s.write(sf)
}

// Import verifies an externally supplied (private, public) pair and persists
// it like a generated one. The private key may be the 32-byte seed or the full
// 64-byte expanded form; the public key must be derivable from it.
func (s *Store) Import(name, privateB64, publicB64 string, password []byte) (ed25519.PublicKey, error) {
	sf, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := sf.checkPassword(password); err != nil {
		return nil, err
	}
	if sf.find(name) != nil {
		return nil, fmt.Errorf("%w: %q", ErrKeyExists, name)
	}

	priv, pub, err := decodeKeypair(privateB64, publicB64)
	if err != nil {
		return nil, err
	}
	defer zero(priv)

	if err := sf.append(name, pub, priv, password); err != nil {
		return nil, err
	}
	return pub, s.write(sf)
}

// List enumerates stored names and public keys. Never requires the password.
func (s *Store) List() ([]Entry, error) {
	sf, err := s.load()
	if err != nil {
		return nil, err
	}
	return sf.Entries, nil
}

// Unlock decrypts the named entry and reconstructs the keypair in memory.
// The caller must call Keypair.Destroy as soon as the signing operation is
// done.
func (s *Store) Unlock(name string, password []byte) (*Keypair, error) {
	sf, err := s.load()
	if err != nil {
		return nil, err
	}
	e := sf.find(name)
	if e == nil {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, name)
	}

	ciphertext, err := b64.DecodeString(e.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", name, err)
	}
	salt, err := b64.DecodeString(e.Salt)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", name, err)
	}
	nonce, err := b64.DecodeString(e.Nonce)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", name, err)
	}

	// Cost parameters come from the entry, never from current defaults.
	priv, err := open(ciphertext, password, salt, nonce, e.KDF)
	if err != nil {
		return nil, err
	}
	if len(priv) != ed25519.PrivateKeySize {
		zero(priv)
		return nil, ErrDecryptionFailed
	}

	kp := &Keypair{
		Name:    name,
		Public:  ed25519.PublicKey(priv[32:]),
		private: ed25519.PrivateKey(priv),
	}
	return kp, nil
}

// --- store file helpers ---

func (sf *storeFile) find(name string) *Entry {
	for i := range sf.Entries {
		if sf.Entries[i].Name == name {
			return &sf.Entries[i]
		}
	}
	return nil
}

// checkPassword verifies the password against the policy verifier so a wrong
// password fails fast and can never seal new entries under the wrong key.
func (sf *storeFile) checkPassword(password []byte) error {
	salt, err := b64.DecodeString(sf.Policy.Salt)
	if err != nil {
		return fmt.Errorf("keystore policy: %w", err)
	}
	want, err := b64.DecodeString(sf.Policy.Verifier)
	if err != nil {
		return fmt.Errorf("keystore policy: %w", err)
	}
	got := deriveKey(password, salt, sf.Policy.KDF)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrWrongPassword
	}
	return nil
}

func (sf *storeFile) append(name string, pub ed25519.PublicKey, priv ed25519.PrivateKey, password []byte) error {
	ciphertext, salt, nonce, err := seal(priv, password, DefaultKDFParams())
	if err != nil {
		return fmt.Errorf("sealing %q: %w", name, err)
	}
	sf.Entries = append(sf.Entries, Entry{
		Name:       name,
		PublicKey:  b64.EncodeToString(pub),
		Ciphertext: b64.EncodeToString(ciphertext),
		Salt:       b64.EncodeToString(salt),
		Nonce:      b64.EncodeToString(nonce),
		KDF:        DefaultKDFParams(),
	})
	return nil
}

func (s *Store) load() (*storeFile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("reading keystore %s: %w", s.path, err)
	}
	var sf storeFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing keystore %s: %w", s.path, err)
	}
	return &sf, nil
}

// write persists with temp-file-then-rename so a crash mid-write never leaves
// a corrupted keystore.
func (s *Store) write(sf *storeFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(s.path, data, 0o600)
}

func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// decodeKeypair decodes and cross-checks an imported key pair.
func decodeKeypair(privateB64, publicB64 string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	pubBytes, err := b64.DecodeString(publicB64)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding public key: %w", err)
	}
	if len(pubBytes) != ed25519.PublicKeySize {
		return nil, nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pubBytes))
	}

	privBytes, err := b64.DecodeString(privateB64)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding private key: %w", err)
	}

	var priv ed25519.PrivateKey
	switch len(privBytes) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(privBytes)
		zero(privBytes)
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(privBytes)
	default:
		return nil, nil, fmt.Errorf("private key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(privBytes))
	}

	derived := priv.Public().(ed25519.PublicKey)
	if !derived.Equal(ed25519.PublicKey(pubBytes)) {
		zero(priv)
		return nil, nil, ErrKeyPairMismatch
	}
	return priv, ed25519.PublicKey(pubBytes), nil
}

// generatedName returns a short unique name for a keypair created without one.
func generatedName(existing []Entry) string {
	taken := make(map[string]bool, len(existing))
	for _, e := range existing {
		taken[e.Name] = true
	}
	for {
		var b [4]byte
		rand.Read(b[:]) //nolint:errcheck
		name := "keypair-" + hex.EncodeToString(b[:])
		if !taken[name] {
			return name
		}
	}
}
