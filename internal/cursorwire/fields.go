package cursorwire

import "fmt"

// Field is a decoded (field_number, wire_type, payload) triple. For VARINT
// fields Payload holds the raw little-endian varint bytes consumed (not the
// decoded value) so callers can re-decode with ReadVarint on demand.
type Field struct {
	Number  int
	Wire    WireType
	Payload []byte
}

// ParseFields walks buf and returns every top-level field it contains,
// whatever its field number. Only VARINT and LEN wire types are accepted:
// any other wire type is an error, and so are malformed varints or LEN
// payloads that run past the end of buf (spec: "Malformed varints or
// truncated LEN payloads fail the whole session").
func ParseFields(buf []byte) ([]Field, error) {
	var fields []Field
	i := 0
	for i < len(buf) {
		tag, n, err := ReadVarint(buf[i:])
		if err != nil {
			return nil, fmt.Errorf("cursorwire: bad tag at offset %d: %w", i, err)
		}
		i += n
		field, wt := DecodeTag(tag)

		switch wt {
		case WireVarint:
			_, vn, err := ReadVarint(buf[i:])
			if err != nil {
				return nil, fmt.Errorf("cursorwire: bad varint payload for field %d: %w", field, err)
			}
			fields = append(fields, Field{Number: field, Wire: wt, Payload: buf[i : i+vn]})
			i += vn
		case WireLen:
			length, ln, err := ReadVarint(buf[i:])
			if err != nil {
				return nil, fmt.Errorf("cursorwire: bad length prefix for field %d: %w", field, err)
			}
			i += ln
			if uint64(i)+length > uint64(len(buf)) {
				return nil, fmt.Errorf("cursorwire: truncated LEN payload for field %d", field)
			}
			fields = append(fields, Field{Number: field, Wire: wt, Payload: buf[i : i+int(length)]})
			i += int(length)
		default:
			return nil, fmt.Errorf("cursorwire: unsupported wire type %d for field %d", wt, field)
		}
	}
	return fields, nil
}

// VarintValue decodes the value carried by a VARINT field.
func (f Field) VarintValue() (uint64, error) {
	v, _, err := ReadVarint(f.Payload)
	return v, err
}

// Uint64 emits a VARINT field, omitting it entirely when v is the zero
// default (proto3-style omission, spec §4.1).
func Uint64(buf []byte, field int, v uint64) []byte {
	if v == 0 {
		return buf
	}
	buf = AppendTag(buf, field, WireVarint)
	return AppendVarint(buf, v)
}

// Int32 emits a VARINT field carrying a signed 32-bit value, two's-
// complement-encoded per ZigZagFromInt32, omitted when zero.
func Int32(buf []byte, field int, v int32) []byte {
	if v == 0 {
		return buf
	}
	buf = AppendTag(buf, field, WireVarint)
	return AppendVarint(buf, ZigZagFromInt32(v))
}

// Bool emits a VARINT field carrying 1, omitted entirely when false.
func Bool(buf []byte, field int, v bool) []byte {
	if !v {
		return buf
	}
	buf = AppendTag(buf, field, WireVarint)
	return AppendVarint(buf, 1)
}

// Bytes emits a LEN field, omitted when v is empty.
func Bytes(buf []byte, field int, v []byte) []byte {
	if len(v) == 0 {
		return buf
	}
	buf = AppendTag(buf, field, WireLen)
	buf = AppendVarint(buf, uint64(len(v)))
	return append(buf, v...)
}

// String emits a LEN field carrying UTF-8 bytes, omitted when empty.
func String(buf []byte, field int, v string) []byte {
	return Bytes(buf, field, []byte(v))
}

// Message emits a LEN field wrapping an already-encoded nested message.
// Unlike scalar fields, nested messages are always emitted, even when body
// is nil or empty.
func Message(buf []byte, field int, body []byte) []byte {
	buf = AppendTag(buf, field, WireLen)
	buf = AppendVarint(buf, uint64(len(body)))
	return append(buf, body...)
}

// MessageIfPresent emits a nested message field only when present is true;
// used by oneof-style fields where the whole sub-message is conditional on
// the caller populating that branch.
func MessageIfPresent(buf []byte, field int, present bool, body []byte) []byte {
	if !present {
		return buf
	}
	return Message(buf, field, body)
}
