package tx

import (
	"crypto/sha256"
	"encoding/binary"
)

// ContractAddress deterministically derives the address a contract will be
// deployed at from the deployer's address and the nonce of the deploying
// transaction: SHA-256 over the address bytes followed by the nonce's
// little-endian encoding. This must match the remote ledger's derivation rule
// bit-for-bit; tooling that precomputes addresses breaks silently otherwise.
func ContractAddress(deployer Address, nonce uint64) Address {
	pre := make([]byte, 0, AddressLength+8)
	pre = append(pre, deployer[:]...)
	pre = binary.LittleEndian.AppendUint64(pre, nonce)
	return Address(sha256.Sum256(pre))
}
