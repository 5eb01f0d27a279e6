package keys

import (
	"crypto/ed25519"
	"fmt"
)

// Keypair is a decrypted keypair held in memory for the duration of one
// signing operation. Callers must Destroy it on every exit path.
type Keypair struct {
	Name    string
	Public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// Sign signs the digest with the private key.
func (kp *Keypair) Sign(digest []byte) ([]byte, error) {
	if kp.private == nil {
		return nil, fmt.Errorf("keypair %q already destroyed", kp.Name)
	}
	return ed25519.Sign(kp.private, digest), nil
}

// Address returns the public key in the canonical text encoding. The public
// key doubles as the account address.
func (kp *Keypair) Address() string {
	return b64.EncodeToString(kp.Public)
}

// PrivateKeyText returns the private key in the canonical text encoding.
// Used only by `keys export`; callers are responsible for where it ends up.
func (kp *Keypair) PrivateKeyText() string {
	return b64.EncodeToString(kp.private)
}

// Destroy zeroes the private key material. Safe to call more than once.
func (kp *Keypair) Destroy() {
	if kp.private != nil {
		zero(kp.private)
		kp.private = nil
	}
}

// ExportedKeypair is the JSON shape written by `keys export` and accepted
// back by `keys import`.
type ExportedKeypair struct {
	Name       string `json:"name"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// Export decrypts the named entry and returns it in the reversible text
// encoding. Requires the password even on unprotected keystores (where it is
// empty).
func (s *Store) Export(name string, password []byte) (*ExportedKeypair, error) {
	kp, err := s.Unlock(name, password)
	if err != nil {
		return nil, err
	}
	defer kp.Destroy()

	return &ExportedKeypair{
		Name:       name,
		PublicKey:  kp.Address(),
		PrivateKey: kp.PrivateKeyText(),
	}, nil
}
