// Package encoding implements the typed argument codec used for contract-call
// payloads. Each argument is declared with a type name from a fixed vocabulary
// and a textual (JSON) value, and encodes to the protocol's little-endian,
// length-prefixed binary form.
package encoding

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors.
var (
	ErrUnknownType     = errors.New("unknown argument type")
	ErrBadLiteral      = errors.New("malformed argument value")
	ErrValueOutOfRange = errors.New("argument value out of range")
	ErrTypeMismatch    = errors.New("array element type mismatch")
	ErrLengthMismatch  = errors.New("fixed-length array length mismatch")
	ErrTruncated       = errors.New("argument payload truncated")
	ErrTrailingBytes   = errors.New("trailing bytes after final argument")
)

// TypedArgument pairs a type name from the protocol vocabulary with the
// textual (JSON) representation of its value. Arguments are positional.
type TypedArgument struct {
	Type  string `json:"argument_type"`
	Value string `json:"argument_value"`
}

// ArgumentFile is the on-disk JSON shape of a contract-call argument file.
type ArgumentFile struct {
	Arguments []TypedArgument `json:"arguments"`
}

// kind enumerates the primitive type vocabulary.
type kind int

const (
	kindI8 kind = iota
	kindI16
	kindI32
	kindI64
	kindU8
	kindU16
	kindU32
	kindU64
	kindBool
	kindString
	kindVec   // variable-length homogeneous array
	kindArray // fixed-length array
)

var scalarKinds = map[string]kind{
	"i8": kindI8, "i16": kindI16, "i32": kindI32, "i64": kindI64,
	"u8": kindU8, "u16": kindU16, "u32": kindU32, "u64": kindU64,
	"bool": kindBool, "String": kindString,
}

// argType is a parsed argument type expression, e.g. Vec<u8> or [u64;4].
type argType struct {
	kind kind
	elem *argType // Vec / fixed array element type
	size int      // fixed array declared length
}

// parseType parses a type name such as "u8", "Vec<i32>" or "[u8;32]".
// Whitespace inside the expression is ignored, matching the protocol's lenient
// type-name handling.
func parseType(name string) (*argType, error) {
	s := strings.ReplaceAll(name, " ", "")
	if s == "" {
		return nil, fmt.Errorf("%w: empty type name", ErrUnknownType)
	}
	if k, ok := scalarKinds[s]; ok {
		return &argType{kind: k}, nil
	}
	if inner, ok := strings.CutPrefix(s, "Vec<"); ok {
		inner, ok = strings.CutSuffix(inner, ">")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
		}
		elem, err := parseType(inner)
		if err != nil {
			return nil, err
		}
		return &argType{kind: kindVec, elem: elem}, nil
	}
	if inner, ok := strings.CutPrefix(s, "["); ok {
		inner, ok = strings.CutSuffix(inner, "]")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
		}
		elemStr, lenStr, ok := strings.Cut(inner, ";")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
		}
		elem, err := parseType(elemStr)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(lenStr)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad array length in %q", ErrUnknownType, name)
		}
		return &argType{kind: kindArray, elem: elem, size: n}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// EncodeArgument encodes a single typed argument to its binary form.
func EncodeArgument(arg TypedArgument) ([]byte, error) {
	t, err := parseType(arg.Type)
	if err != nil {
		return nil, err
	}
	v, err := parseLiteral(arg.Value)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encodeValue(&buf, t, v, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeArguments encodes an ordered argument list into one blob per argument.
// Errors are annotated with the zero-based index of the failing argument.
func EncodeArguments(args []TypedArgument) ([][]byte, error) {
	out := make([][]byte, 0, len(args))
	for i, arg := range args {
		b, err := EncodeArgument(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, arg.Type, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// EncodePayload encodes an ordered argument list into a single concatenated
// binary payload.
func EncodePayload(args []TypedArgument) ([]byte, error) {
	blobs, err := EncodeArguments(args)
	if err != nil {
		return nil, err
	}
	return bytes.Join(blobs, nil), nil
}

// DecodePayload is the exact inverse of EncodePayload: it consumes the payload
// against the expected type list and returns the recovered arguments with
// canonical textual values. A payload shorter than required fails with
// ErrTruncated; unconsumed bytes after the final argument fail with
// ErrTrailingBytes.
func DecodePayload(payload []byte, types []string) ([]TypedArgument, error) {
	r := &reader{buf: payload}
	out := make([]TypedArgument, 0, len(types))
	for i, name := range types {
		t, err := parseType(name)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		v, err := decodeValue(r, t)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, name, err)
		}
		text, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, name, err)
		}
		out = append(out, TypedArgument{Type: name, Value: string(text)})
	}
	if r.remaining() > 0 {
		return nil, fmt.Errorf("%w: %d byte(s) left", ErrTrailingBytes, r.remaining())
	}
	return out, nil
}

// parseLiteral parses the textual argument value as JSON, keeping numbers as
// json.Number so 64-bit values survive intact.
func parseLiteral(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadLiteral, text)
	}
	// Reject trailing garbage like "1 2".
	if dec.More() {
		return nil, fmt.Errorf("%w: %q", ErrBadLiteral, text)
	}
	return v, nil
}

// encodeValue appends the binary encoding of v as type t. top distinguishes a
// top-level literal shape error (ErrBadLiteral) from a nested element shape
// error (ErrTypeMismatch).
func encodeValue(buf *bytes.Buffer, t *argType, v any, top bool) error {
	shapeErr := func() error {
		if top {
			return fmt.Errorf("%w: %v", ErrBadLiteral, v)
		}
		return fmt.Errorf("%w: %v", ErrTypeMismatch, v)
	}

	switch t.kind {
	case kindBool:
		b, ok := v.(bool)
		if !ok {
			return shapeErr()
		}
		if b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return nil

	case kindString:
		s, ok := v.(string)
		if !ok {
			return shapeErr()
		}
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
		buf.Write(n[:])
		buf.WriteString(s)
		return nil

	case kindVec, kindArray:
		arr, ok := v.([]any)
		if !ok {
			return shapeErr()
		}
		if t.kind == kindArray {
			if len(arr) != t.size {
				return fmt.Errorf("%w: declared %d, got %d", ErrLengthMismatch, t.size, len(arr))
			}
		} else {
			var n [4]byte
			binary.LittleEndian.PutUint32(n[:], uint32(len(arr)))
			buf.Write(n[:])
		}
		for i, elem := range arr {
			if err := encodeValue(buf, t.elem, elem, false); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil

	default:
		num, ok := v.(json.Number)
		if !ok {
			return shapeErr()
		}
		return encodeInteger(buf, t.kind, num)
	}
}

var intBits = map[kind]int{
	kindI8: 8, kindI16: 16, kindI32: 32, kindI64: 64,
	kindU8: 8, kindU16: 16, kindU32: 32, kindU64: 64,
}

func encodeInteger(buf *bytes.Buffer, k kind, num json.Number) error {
	bits := intBits[k]
	signed := k == kindI8 || k == kindI16 || k == kindI32 || k == kindI64

	var u uint64
	if signed {
		i, err := strconv.ParseInt(num.String(), 10, bits)
		if err != nil {
			return integerErr(err, num)
		}
		u = uint64(i)
	} else {
		var err error
		u, err = strconv.ParseUint(num.String(), 10, bits)
		if err != nil {
			return integerErr(err, num)
		}
	}

	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], u)
	buf.Write(le[:bits/8])
	return nil
}

func integerErr(err error, num json.Number) error {
	if errors.Is(err, strconv.ErrRange) {
		return fmt.Errorf("%w: %s", ErrValueOutOfRange, num)
	}
	return fmt.Errorf("%w: %s", ErrBadLiteral, num)
}

// decodeValue reads one value of type t and returns it as a JSON-marshalable
// Go value.
func decodeValue(r *reader, t *argType) (any, error) {
	switch t.kind {
	case kindBool:
		b, err := r.take(1)
		if err != nil {
			return nil, err
		}
		switch b[0] {
		case 0:
			return false, nil
		case 1:
			return true, nil
		default:
			return nil, fmt.Errorf("%w: bool byte 0x%02x", ErrBadLiteral, b[0])
		}

	case kindString:
		n, err := r.length()
		if err != nil {
			return nil, err
		}
		b, err := r.take(n)
		if err != nil {
			return nil, err
		}
		return string(b), nil

	case kindVec:
		n, err := r.length()
		if err != nil {
			return nil, err
		}
		// Every element consumes at least one byte, so a declared count
		// larger than the remaining payload can never decode. Checked before
		// the count sizes any allocation.
		if n > r.remaining() {
			return nil, fmt.Errorf("%w: %d element(s) declared, %d byte(s) left", ErrTruncated, n, r.remaining())
		}
		out := make([]any, 0, n)
		for i := 0; i < n; i++ {
			v, err := decodeValue(r, t.elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil

	case kindArray:
		out := make([]any, 0, t.size)
		for i := 0; i < t.size; i++ {
			v, err := decodeValue(r, t.elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil

	default:
		bits := intBits[t.kind]
		b, err := r.take(bits / 8)
		if err != nil {
			return nil, err
		}
		var le [8]byte
		copy(le[:], b)
		u := binary.LittleEndian.Uint64(le[:])
		switch t.kind {
		case kindI8:
			return int64(int8(u)), nil
		case kindI16:
			return int64(int16(u)), nil
		case kindI32:
			return int64(int32(u)), nil
		case kindI64:
			return int64(u), nil
		default:
			return u, nil
		}
	}
}

// reader is a cursor over the payload that fails with ErrTruncated instead of
// panicking on short reads.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) take(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("%w: need %d byte(s), have %d", ErrTruncated, n, r.remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) length() (int, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(b)), nil
}
