package tx

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parallelchain-io/pchain-client-cli/internal/keys"
)

// Errors.
var (
	ErrDraftExists    = errors.New("draft transaction file already exists")
	ErrMalformedDraft = errors.New("malformed draft transaction file")
)

// CreateDraft writes a new draft transaction file. The destination must not
// exist unless overwrite is set; there is no silent clobbering of a draft a
// user may have been editing.
func CreateDraft(path string, t *Transaction, overwrite bool) error {
	if err := validate(t); err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrDraftExists, path)
		}
	}
	return writeDraft(path, t)
}

// LoadDraft reads and validates a draft file. The file is user-editable
// between invocations, so every load re-validates the command set.
func LoadDraft(path string) (*Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading draft %s: %w", path, err)
	}
	var t Transaction
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDraft, path, err)
	}
	if err := validate(&t); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDraft, path, err)
	}
	return &t, nil
}

// AppendCommand loads an existing draft, appends exactly one command to the
// tail of the sequence and atomically rewrites the file. Command order is
// execution order and is preserved exactly.
func AppendCommand(path string, c Command) (*Transaction, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	t, err := LoadDraft(path)
	if err != nil {
		return nil, err
	}
	t.Commands = append(t.Commands, c)
	if err := writeDraft(path, t); err != nil {
		return nil, err
	}
	return t, nil
}

// SignedTransaction is the finalized submission artifact: the draft fields
// plus resolved signer, Ed25519 signature over the canonical digest, and the
// digest itself as the transaction hash. It is handed to the RPC client and
// never persisted locally.
type SignedTransaction struct {
	Signer            Address   `json:"signer"`
	Nonce             uint64    `json:"nonce"`
	GasLimit          uint64    `json:"gas_limit"`
	MaxBaseFeePerGas  uint64    `json:"max_base_fee_per_gas"`
	PriorityFeePerGas uint64    `json:"priority_fee_per_gas"`
	Commands          []Command `json:"commands"`
	Signature         Bytes     `json:"signature"`
	Hash              Bytes     `json:"hash"`
}

// Sign finalizes a draft under the unlocked keypair: canonical-encodes the
// transaction with the keypair's address as signer, hashes, signs the digest.
// The caller owns the keypair's lifetime and must destroy it immediately
// after, regardless of submission outcome.
func Sign(t *Transaction, kp *keys.Keypair) (*SignedTransaction, error) {
	if err := validate(t); err != nil {
		return nil, err
	}
	var signer Address
	copy(signer[:], kp.Public)

	digest, err := Digest(signer, t)
	if err != nil {
		return nil, err
	}
	sig, err := kp.Sign(digest[:])
	if err != nil {
		return nil, err
	}

	return &SignedTransaction{
		Signer:            signer,
		Nonce:             t.Nonce,
		GasLimit:          t.GasLimit,
		MaxBaseFeePerGas:  t.MaxBaseFeePerGas,
		PriorityFeePerGas: t.PriorityFeePerGas,
		Commands:          t.Commands,
		Signature:         Bytes(sig),
		Hash:              digest[:],
	}, nil
}

// --- internal ---

func validate(t *Transaction) error {
	for i, c := range t.Commands {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
	}
	return nil
}

// writeDraft persists with temp-file-then-rename so a failed write never
// leaves a half-written draft behind.
func writeDraft(path string, t *Transaction) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing draft %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing draft %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing draft %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing draft %s: %w", path, err)
	}
	return nil
}
