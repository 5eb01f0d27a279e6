// Package tx implements draft transactions: the protocol command set, the
// canonical byte encoding whose SHA-256 digest is the signing target, the
// on-disk draft file lifecycle and contract address derivation.
package tx

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// Errors.
var (
	ErrNoVariant        = errors.New("command has no variant set")
	ErrMultipleVariants = errors.New("command has more than one variant set")
	ErrBadAddress       = errors.New("malformed address")
)

// b64 is the canonical text encoding for addresses, keys, signatures and
// bytecode crossing the CLI boundary.
var b64 = base64.RawURLEncoding

// AddressLength is the byte length of an account address (an Ed25519 public
// key).
const AddressLength = 32

// Address is an account address. The deployer's public key doubles as its
// address.
type Address [AddressLength]byte

// AddressFromText parses the canonical text encoding of an address.
func AddressFromText(s string) (Address, error) {
	var a Address
	raw, err := b64.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrBadAddress, err)
	}
	if len(raw) != AddressLength {
		return a, fmt.Errorf("%w: got %d bytes, want %d", ErrBadAddress, len(raw), AddressLength)
	}
	copy(a[:], raw)
	return a, nil
}

func (a Address) String() string { return b64.EncodeToString(a[:]) }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := AddressFromText(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Bytes is a byte string carried in JSON as unpadded URL-safe Base64.
type Bytes []byte

func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(b64.EncodeToString(b)), nil
}

func (b *Bytes) UnmarshalText(text []byte) error {
	raw, err := b64.DecodeString(string(text))
	if err != nil {
		return err
	}
	*b = raw
	return nil
}

// Command variant payloads. Field order here is the canonical encoding order.

type Transfer struct {
	Recipient Address `json:"recipient"`
	Amount    uint64  `json:"amount"`
}

type Deploy struct {
	Contract   Bytes  `json:"contract"` // contract bytecode
	CBIVersion uint32 `json:"cbi_version"`
}

type Call struct {
	Target    Address `json:"target"`
	Method    string  `json:"method"`
	Arguments []Bytes `json:"arguments"`
	Amount    uint64  `json:"amount"`
}

type CreateDeposit struct {
	Operator         Address `json:"operator"`
	Balance          uint64  `json:"balance"`
	AutoStakeRewards bool    `json:"auto_stake_rewards"`
}

type SetDepositSettings struct {
	Operator         Address `json:"operator"`
	AutoStakeRewards bool    `json:"auto_stake_rewards"`
}

type TopUpDeposit struct {
	Operator Address `json:"operator"`
	Amount   uint64  `json:"amount"`
}

type WithdrawDeposit struct {
	Operator  Address `json:"operator"`
	MaxAmount uint64  `json:"max_amount"`
}

type StakeDeposit struct {
	Operator  Address `json:"operator"`
	MaxAmount uint64  `json:"max_amount"`
}

type UnstakeDeposit struct {
	Operator  Address `json:"operator"`
	MaxAmount uint64  `json:"max_amount"`
}

type CreatePool struct {
	CommissionRate uint8 `json:"commission_rate"`
}

type SetPoolSettings struct {
	CommissionRate uint8 `json:"commission_rate"`
}

type DeletePool struct{}

type NextEpoch struct{}

// Command is a closed sum over the protocol's operation set: exactly one
// variant pointer is non-nil. The JSON form is a single-key tagged object,
// e.g. {"transfer": {"recipient": ..., "amount": ...}}.
type Command struct {
	Transfer           *Transfer           `json:"transfer,omitempty"`
	Deploy             *Deploy             `json:"deploy,omitempty"`
	Call               *Call               `json:"call,omitempty"`
	CreateDeposit      *CreateDeposit      `json:"create_deposit,omitempty"`
	SetDepositSettings *SetDepositSettings `json:"set_deposit_settings,omitempty"`
	TopUpDeposit       *TopUpDeposit       `json:"top_up_deposit,omitempty"`
	WithdrawDeposit    *WithdrawDeposit    `json:"withdraw_deposit,omitempty"`
	StakeDeposit       *StakeDeposit       `json:"stake_deposit,omitempty"`
	UnstakeDeposit     *UnstakeDeposit     `json:"unstake_deposit,omitempty"`
	CreatePool         *CreatePool         `json:"create_pool,omitempty"`
	SetPoolSettings    *SetPoolSettings    `json:"set_pool_settings,omitempty"`
	DeletePool         *DeletePool         `json:"delete_pool,omitempty"`
	NextEpoch          *NextEpoch          `json:"next_epoch,omitempty"`
}

// Canonical command type tags. The numbering is part of the wire contract
// with the remote verifier and must never be reordered.
const (
	tagTransfer byte = iota
	tagDeploy
	tagCall
	tagCreateDeposit
	tagSetDepositSettings
	tagTopUpDeposit
	tagWithdrawDeposit
	tagStakeDeposit
	tagUnstakeDeposit
	tagCreatePool
	tagSetPoolSettings
	tagDeletePool
	tagNextEpoch
)

// Name returns the protocol's canonical command name, e.g. "transfer".
func (c Command) Name() (string, error) {
	tag, err := c.tag()
	if err != nil {
		return "", err
	}
	names := [...]string{
		"transfer", "deploy", "call",
		"create_deposit", "set_deposit_settings", "top_up_deposit", "withdraw_deposit",
		"stake_deposit", "unstake_deposit",
		"create_pool", "set_pool_settings", "delete_pool",
		"next_epoch",
	}
	return names[tag], nil
}

// Validate checks that exactly one variant is set.
func (c Command) Validate() error {
	_, err := c.tag()
	return err
}

func (c Command) tag() (byte, error) {
	var (
		tag   byte
		count int
	)
	set := func(t byte, p bool) {
		if p {
			tag = t
			count++
		}
	}
	set(tagTransfer, c.Transfer != nil)
	set(tagDeploy, c.Deploy != nil)
	set(tagCall, c.Call != nil)
	set(tagCreateDeposit, c.CreateDeposit != nil)
	set(tagSetDepositSettings, c.SetDepositSettings != nil)
	set(tagTopUpDeposit, c.TopUpDeposit != nil)
	set(tagWithdrawDeposit, c.WithdrawDeposit != nil)
	set(tagStakeDeposit, c.StakeDeposit != nil)
	set(tagUnstakeDeposit, c.UnstakeDeposit != nil)
	set(tagCreatePool, c.CreatePool != nil)
	set(tagSetPoolSettings, c.SetPoolSettings != nil)
	set(tagDeletePool, c.DeletePool != nil)
	set(tagNextEpoch, c.NextEpoch != nil)

	switch count {
	case 0:
		return 0, ErrNoVariant
	case 1:
		return tag, nil
	default:
		return 0, ErrMultipleVariants
	}
}
