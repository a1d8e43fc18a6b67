// Package cursorwire implements the hand-rolled, schema-free binary codec
// used by Cursor's AgentService wire protocol: varints, tags, and the
// proto3-style default-omission field writer/reader that every message in
// internal/cursorproto is built on.
package cursorwire

import "fmt"

// maxVarintBytes bounds decode: a 64-bit value never needs more than 10
// continuation bytes under base-128 encoding.
const maxVarintBytes = 10

// WireType identifies how a field's payload is encoded. The codec only ever
// emits VARINT and LEN; fixed-width wire types are never used.
type WireType uint8

const (
	WireVarint WireType = 0
	WireLen    WireType = 2
)

// AppendVarint appends the base-128 little-endian encoding of v to buf and
// returns the extended slice. A value of 0 still emits one byte (0x00).
func AppendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// ReadVarint decodes a varint from the front of buf, returning the value and
// the number of bytes consumed. It refuses inputs whose encoding would
// exceed 10 bytes or that run off the end of buf without a terminating byte.
func ReadVarint(buf []byte) (uint64, int, error) {
	var result uint64
	for i := 0; i < maxVarintBytes; i++ {
		if i >= len(buf) {
			return 0, 0, fmt.Errorf("cursorwire: truncated varint")
		}
		b := buf[i]
		result |= uint64(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("cursorwire: varint exceeds %d bytes", maxVarintBytes)
}

// EncodeTag packs a field number and wire type into the tag varint
// (field_number<<3 | wire_type).
func EncodeTag(field int, wt WireType) uint64 {
	return uint64(field)<<3 | uint64(wt)
}

// DecodeTag unpacks a tag varint back into its field number and wire type.
func DecodeTag(tag uint64) (field int, wt WireType) {
	return int(tag >> 3), WireType(tag & 0x7)
}

// AppendTag appends the encoded tag for (field, wt) to buf.
func AppendTag(buf []byte, field int, wt WireType) []byte {
	return AppendVarint(buf, EncodeTag(field, wt))
}

// ZigZagFromInt32 encodes a signed 32-bit value as its unsigned two's-
// complement 64-bit form, per spec: negatives become value + 2^32 rather
// than using protobuf's usual zigzag scheme (the wire traces this codec
// targets do not zigzag signed fields). Converting through uint32 first
// zero-extends the 32-bit two's-complement pattern instead of letting Go's
// sign-extension-to-int64 rule produce all-ones for negatives.
func ZigZagFromInt32(v int32) uint64 {
	return uint64(uint32(v))
}
