package tx

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Transaction is a draft: metadata plus an ordered command sequence. The
// signer is implicit and resolved at submit time from the keystore. Command
// order is insertion order and is never reordered.
type Transaction struct {
	Nonce             uint64    `json:"nonce"`
	GasLimit          uint64    `json:"gas_limit"`
	MaxBaseFeePerGas  uint64    `json:"max_base_fee_per_gas"`
	PriorityFeePerGas uint64    `json:"priority_fee_per_gas"`
	Commands          []Command `json:"commands"`
}

// Encode serializes the transaction under the given signer into its canonical
// byte sequence. The field order and little-endian integer encoding are the
// compatibility contract with the remote verifier; any deviation produces a
// transaction that fails signature verification remotely.
//
// Layout: signer · nonce · gas_limit · max_base_fee_per_gas ·
// priority_fee_per_gas · u32 command count · per command a 1-byte tag followed
// by the variant fields in fixed order. Variable-length fields carry a u32
// length prefix.
//
// Encode is a pure function with no state; it is safe to call repeatedly and
// concurrently.
func Encode(signer Address, t *Transaction) ([]byte, error) {
	var w canonicalWriter
	w.bytes32(signer)
	w.u64(t.Nonce)
	w.u64(t.GasLimit)
	w.u64(t.MaxBaseFeePerGas)
	w.u64(t.PriorityFeePerGas)
	w.u32(uint32(len(t.Commands)))
	for i, c := range t.Commands {
		if err := w.command(c); err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
	}
	return w.buf.Bytes(), nil
}

// Digest computes the SHA-256 content digest of the canonical encoding. This
// is the signing target and the transaction hash shown to the user.
func Digest(signer Address, t *Transaction) ([32]byte, error) {
	canonical, err := Encode(signer, t)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(canonical), nil
}

type canonicalWriter struct {
	buf bytes.Buffer
}

func (w *canonicalWriter) u8(v uint8)  { w.buf.WriteByte(v) }
func (w *canonicalWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}
func (w *canonicalWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}
func (w *canonicalWriter) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}
func (w *canonicalWriter) bytes32(a Address) { w.buf.Write(a[:]) }
func (w *canonicalWriter) prefixed(b []byte) {
	w.u32(uint32(len(b)))
	w.buf.Write(b)
}

// command writes the 1-byte tag and the variant fields in their fixed order.
// The switch is exhaustive over the closed command set.
func (w *canonicalWriter) command(c Command) error {
	tag, err := c.tag()
	if err != nil {
		return err
	}
	w.u8(tag)

	switch {
	case c.Transfer != nil:
		w.bytes32(c.Transfer.Recipient)
		w.u64(c.Transfer.Amount)
	case c.Deploy != nil:
		w.prefixed(c.Deploy.Contract)
		w.u32(c.Deploy.CBIVersion)
	case c.Call != nil:
		w.bytes32(c.Call.Target)
		w.prefixed([]byte(c.Call.Method))
		w.u32(uint32(len(c.Call.Arguments)))
		for _, arg := range c.Call.Arguments {
			w.prefixed(arg)
		}
		w.u64(c.Call.Amount)
	case c.CreateDeposit != nil:
		w.bytes32(c.CreateDeposit.Operator)
		w.u64(c.CreateDeposit.Balance)
		w.bool(c.CreateDeposit.AutoStakeRewards)
	case c.SetDepositSettings != nil:
		w.bytes32(c.SetDepositSettings.Operator)
		w.bool(c.SetDepositSettings.AutoStakeRewards)
	case c.TopUpDeposit != nil:
		w.bytes32(c.TopUpDeposit.Operator)
		w.u64(c.TopUpDeposit.Amount)
	case c.WithdrawDeposit != nil:
		w.bytes32(c.WithdrawDeposit.Operator)
		w.u64(c.WithdrawDeposit.MaxAmount)
	case c.StakeDeposit != nil:
		w.bytes32(c.StakeDeposit.Operator)
		w.u64(c.StakeDeposit.MaxAmount)
	case c.UnstakeDeposit != nil:
		w.bytes32(c.UnstakeDeposit.Operator)
		w.u64(c.UnstakeDeposit.MaxAmount)
	case c.CreatePool != nil:
		w.u8(c.CreatePool.CommissionRate)
	case c.SetPoolSettings != nil:
		w.u8(c.SetPoolSettings.CommissionRate)
	case c.DeletePool != nil, c.NextEpoch != nil:
		// tag only, no fields
	}
	return nil
}
