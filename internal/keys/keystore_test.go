package keys

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, password string) *Store {
	t.Helper()
	s := Open(t.TempDir())
	require.NoError(t, s.Setup([]byte(password)))
	return s
}

// ---------------------------------------------------------------------------
// Setup / policy
// ---------------------------------------------------------------------------

func TestSetupTwiceFails(t *testing.T) {
	s := newStore(t, "hunter2")
	assert.ErrorIs(t, s.Setup([]byte("other")), ErrAlreadySetUp)
}

func TestUninitializedStore(t *testing.T) {
	s := Open(t.TempDir())
	assert.False(t, s.Initialized())
	_, err := s.List()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestProtectedReflectsPassword(t *testing.T) {
	protected, err := newStore(t, "hunter2").Protected()
	require.NoError(t, err)
	assert.True(t, protected)

	protected, err = newStore(t, "").Protected()
	require.NoError(t, err)
	assert.False(t, protected)
}

// ---------------------------------------------------------------------------
// Generate / Unlock
// ---------------------------------------------------------------------------

func TestGenerateAndUnlockRoundTrip(t *testing.T) {
	s := newStore(t, "hunter2")
	password := []byte("hunter2")

	name, pub, err := s.Generate("alice", password)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)
	require.Len(t, pub, ed25519.PublicKeySize)

	kp, err := s.Unlock("alice", password)
	require.NoError(t, err)
	defer kp.Destroy()

	assert.Equal(t, ed25519.PublicKey(pub), kp.Public)

	// The recovered private key must actually sign for the stored public key.
	sig, err := kp.Sign([]byte("digest"))
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(kp.Public, []byte("digest"), sig))
}

func TestGeneratedNameWhenOmitted(t *testing.T) {
	s := newStore(t, "pw")
	name, _, err := s.Generate("", []byte("pw"))
	require.NoError(t, err)
	assert.Regexp(t, `^keypair-[0-9a-f]{8}$`, name)
}

func TestGenerateDuplicateNameRejected(t *testing.T) {
	s := newStore(t, "pw")
	_, _, err := s.Generate("alice", []byte("pw"))
	require.NoError(t, err)

	_, _, err = s.Generate("alice", []byte("pw"))
	assert.ErrorIs(t, err, ErrKeyExists)

	// The first entry survives untouched.
	entries, err := s.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGenerateWrongPasswordRejected(t *testing.T) {
	s := newStore(t, "correct")
	_, _, err := s.Generate("alice", []byte("wrong"))
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestUnlockWrongPasswordNeverYieldsKeys(t *testing.T) {
	s := newStore(t, "correct")
	_, _, err := s.Generate("alice", []byte("correct"))
	require.NoError(t, err)

	kp, err := s.Unlock("alice", []byte("almost-correct"))
	assert.Nil(t, kp)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestUnlockUnknownName(t *testing.T) {
	s := newStore(t, "pw")
	_, err := s.Unlock("nobody", []byte("pw"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestEntriesSealedWithDistinctSaltsAndNonces(t *testing.T) {
	s := newStore(t, "pw")
	_, _, err := s.Generate("a", []byte("pw"))
	require.NoError(t, err)
	_, _, err = s.Generate("b", []byte("pw"))
	require.NoError(t, err)

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].Salt, entries[1].Salt)
	assert.NotEqual(t, entries[0].Nonce, entries[1].Nonce)
	assert.NotEqual(t, entries[0].Ciphertext, entries[1].Ciphertext)
}

func TestUnprotectedStoreStillSealsEntries(t *testing.T) {
	s := newStore(t, "")
	_, pub, err := s.Generate("alice", nil)
	require.NoError(t, err)

	kp, err := s.Unlock("alice", nil)
	require.NoError(t, err)
	defer kp.Destroy()
	assert.Equal(t, ed25519.PublicKey(pub), kp.Public)

	// Even without a password the private key is not stored in the clear.
	entries, err := s.List()
	require.NoError(t, err)
	assert.NotEmpty(t, entries[0].Ciphertext)
}

// ---------------------------------------------------------------------------
// Import / Export
// ---------------------------------------------------------------------------

func TestImportExportRoundTrip(t *testing.T) {
	s := newStore(t, "pw")
	_, _, err := s.Generate("alice", []byte("pw"))
	require.NoError(t, err)

	exported, err := s.Export("alice", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, "alice", exported.Name)

	// Re-import under a different name into a fresh store.
	s2 := newStore(t, "otherpw")
	pub, err := s2.Import("alice-copy", exported.PrivateKey, exported.PublicKey, []byte("otherpw"))
	require.NoError(t, err)
	assert.Equal(t, exported.PublicKey, EncodeText(pub))
}

func TestImportSeedForm(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	s := newStore(t, "pw")
	got, err := s.Import("seeded", EncodeText(priv.Seed()), EncodeText(pub), []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, ed25519.PublicKey(pub), got)

	kp, err := s.Unlock("seeded", []byte("pw"))
	require.NoError(t, err)
	defer kp.Destroy()
	sig, err := kp.Sign([]byte("msg"))
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(pub, []byte("msg"), sig))
}

func TestImportMismatchedPairRejected(t *testing.T) {
	pubA, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, privB, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	s := newStore(t, "pw")
	_, err = s.Import("bad", EncodeText(privB), EncodeText(pubA), []byte("pw"))
	assert.ErrorIs(t, err, ErrKeyPairMismatch)
}

func TestImportDuplicateNameRejected(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	s := newStore(t, "pw")
	_, _, err = s.Generate("alice", []byte("pw"))
	require.NoError(t, err)
	_, err = s.Import("alice", EncodeText(priv), EncodeText(pub), []byte("pw"))
	assert.ErrorIs(t, err, ErrKeyExists)
}

// ---------------------------------------------------------------------------
// Keypair lifetime
// ---------------------------------------------------------------------------

func TestDestroyedKeypairCannotSign(t *testing.T) {
	s := newStore(t, "pw")
	_, _, err := s.Generate("alice", []byte("pw"))
	require.NoError(t, err)

	kp, err := s.Unlock("alice", []byte("pw"))
	require.NoError(t, err)
	kp.Destroy()
	kp.Destroy() // idempotent

	_, err = kp.Sign([]byte("digest"))
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// seal / open
// ---------------------------------------------------------------------------

func TestSealOpenRoundTrip(t *testing.T) {
	plaintext := []byte("secret key material")
	ciphertext, salt, nonce, err := seal(plaintext, []byte("pw"), DefaultKDFParams())
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), "secret")

	got, err := open(ciphertext, []byte("pw"), salt, nonce, DefaultKDFParams())
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestOpenTamperedCiphertext(t *testing.T) {
	ciphertext, salt, nonce, err := seal([]byte("data"), []byte("pw"), DefaultKDFParams())
	require.NoError(t, err)

	ciphertext[0] ^= 0xFF
	_, err = open(ciphertext, []byte("pw"), salt, nonce, DefaultKDFParams())
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
