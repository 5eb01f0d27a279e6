package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// EncodeArgument — scalars
// ---------------------------------------------------------------------------

func TestEncodeU8(t *testing.T) {
	b, err := EncodeArgument(TypedArgument{Type: "u8", Value: "255"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, b)
}

func TestEncodeU64LittleEndian(t *testing.T) {
	b, err := EncodeArgument(TypedArgument{Type: "u64", Value: "1"})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, b)
}

func TestEncodeI16Negative(t *testing.T) {
	b, err := EncodeArgument(TypedArgument{Type: "i16", Value: "-2"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFE, 0xFF}, b)
}

func TestEncodeBool(t *testing.T) {
	b, err := EncodeArgument(TypedArgument{Type: "bool", Value: "true"})
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, b)

	b, err = EncodeArgument(TypedArgument{Type: "bool", Value: "false"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, b)
}

func TestEncodeStringLengthPrefixed(t *testing.T) {
	b, err := EncodeArgument(TypedArgument{Type: "String", Value: `"hello"`})
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 0, 0, 0, 'h', 'e', 'l', 'l', 'o'}, b)
}

// ---------------------------------------------------------------------------
// EncodeArgument — compound types
// ---------------------------------------------------------------------------

func TestEncodeVecU8(t *testing.T) {
	b, err := EncodeArgument(TypedArgument{Type: "Vec<u8>", Value: "[1,2,3]"})
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 0, 0, 0, 1, 2, 3}, b)
}

func TestEncodeEmptyVec(t *testing.T) {
	b, err := EncodeArgument(TypedArgument{Type: "Vec<u64>", Value: "[]"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
}

func TestEncodeFixedArrayNoPrefix(t *testing.T) {
	b, err := EncodeArgument(TypedArgument{Type: "[u8;3]", Value: "[9,8,7]"})
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7}, b)
}

func TestEncodeNestedVec(t *testing.T) {
	b, err := EncodeArgument(TypedArgument{Type: "Vec<Vec<u8>>", Value: "[[1],[2,3]]"})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		2, 0, 0, 0, // outer count
		1, 0, 0, 0, 1, // [1]
		2, 0, 0, 0, 2, 3, // [2,3]
	}, b)
}

func TestEncodeTypeNameWhitespaceIgnored(t *testing.T) {
	a, err := EncodeArgument(TypedArgument{Type: "Vec< u8 >", Value: "[1]"})
	require.NoError(t, err)
	b, err := EncodeArgument(TypedArgument{Type: "Vec<u8>", Value: "[1]"})
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

// ---------------------------------------------------------------------------
// EncodeArgument — failures
// ---------------------------------------------------------------------------

func TestEncodeUnknownType(t *testing.T) {
	_, err := EncodeArgument(TypedArgument{Type: "u128", Value: "1"})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestEncodeU8OutOfRange(t *testing.T) {
	_, err := EncodeArgument(TypedArgument{Type: "u8", Value: "256"})
	assert.ErrorIs(t, err, ErrValueOutOfRange)
}

func TestEncodeNegativeIntoUnsigned(t *testing.T) {
	_, err := EncodeArgument(TypedArgument{Type: "u32", Value: "-1"})
	assert.ErrorIs(t, err, ErrBadLiteral)
}

func TestEncodeBadLiteral(t *testing.T) {
	_, err := EncodeArgument(TypedArgument{Type: "u8", Value: "not a number"})
	assert.ErrorIs(t, err, ErrBadLiteral)
}

func TestEncodeLiteralTrailingGarbage(t *testing.T) {
	_, err := EncodeArgument(TypedArgument{Type: "u8", Value: "1 2"})
	assert.ErrorIs(t, err, ErrBadLiteral)
}

func TestEncodeFixedArrayLengthMismatch(t *testing.T) {
	_, err := EncodeArgument(TypedArgument{Type: "[u8;4]", Value: "[1,2,3]"})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestEncodeVecElementTypeMismatch(t *testing.T) {
	_, err := EncodeArgument(TypedArgument{Type: "Vec<u8>", Value: `[1,"two"]`})
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestEncodeArgumentsReportsFailingIndex(t *testing.T) {
	_, err := EncodeArguments([]TypedArgument{
		{Type: "u8", Value: "1"},
		{Type: "u8", Value: "300"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument 1")
}

// ---------------------------------------------------------------------------
// DecodePayload
// ---------------------------------------------------------------------------

func TestDecodeRoundTrip(t *testing.T) {
	args := []TypedArgument{
		{Type: "u64", Value: "18446744073709551615"},
		{Type: "i64", Value: "-9223372036854775808"},
		{Type: "bool", Value: "true"},
		{Type: "String", Value: `"héllo"`},
		{Type: "Vec<u16>", Value: "[1,65535]"},
		{Type: "[i8;2]", Value: "[-1,1]"},
	}
	payload, err := EncodePayload(args)
	require.NoError(t, err)

	types := make([]string, len(args))
	for i, a := range args {
		types[i] = a.Type
	}
	decoded, err := DecodePayload(payload, types)
	require.NoError(t, err)
	require.Len(t, decoded, len(args))

	// Values come back in canonical JSON; re-encoding must reproduce the
	// payload bit for bit.
	again, err := EncodePayload(decoded)
	require.NoError(t, err)
	assert.Equal(t, payload, again)
}

func TestDecodeTruncated(t *testing.T) {
	_, err := DecodePayload([]byte{1, 0, 0}, []string{"u32"})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeTruncatedString(t *testing.T) {
	// Declared length 10, only 2 bytes follow.
	_, err := DecodePayload([]byte{10, 0, 0, 0, 'a', 'b'}, []string{"String"})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeVecHugeDeclaredCount(t *testing.T) {
	// Count prefix claims 2^32-1 elements with nothing behind it. Must fail
	// as truncated without sizing an allocation from the hostile count.
	_, err := DecodePayload([]byte{0xFF, 0xFF, 0xFF, 0xFF}, []string{"Vec<u64>"})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeNestedVecHugeDeclaredCount(t *testing.T) {
	// Outer vec of one element whose inner count prefix is hostile.
	payload := []byte{1, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF}
	_, err := DecodePayload(payload, []string{"Vec<Vec<u8>>"})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeVecCountExceedsPayload(t *testing.T) {
	// Declares 3 u8 elements but carries only 2.
	_, err := DecodePayload([]byte{3, 0, 0, 0, 1, 2}, []string{"Vec<u8>"})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeTrailingBytes(t *testing.T) {
	_, err := DecodePayload([]byte{1, 0xFF}, []string{"u8"})
	assert.ErrorIs(t, err, ErrTrailingBytes)
}

func TestDecodeBadBoolByte(t *testing.T) {
	_, err := DecodePayload([]byte{2}, []string{"bool"})
	assert.ErrorIs(t, err, ErrBadLiteral)
}
