package cursorwire

import (
	"fmt"
	"math"
)

// Value field numbers for the generic { null, bool, number, string, list,
// object } variant used to pass tool-schema JSON through the wire codec
// (spec §4.1 "Generic value encoder").
const (
	valueFieldNull   = 1
	valueFieldBool   = 2
	valueFieldNumber = 3
	valueFieldString = 4
	valueFieldList   = 5
	valueFieldObject = 6
)

// kvPair is one (key, Value) entry of an object-typed Value; Go map
// iteration order is unspecified, so EncodeValue takes an ordered slice of
// pairs rather than a map to let callers preserve the source JSON's key
// order where the host allows it (spec §9).
type kvPair struct {
	Key   string
	Value any
}

// ObjectOf builds the `any` shape EncodeValue expects for a JSON object,
// preserving the given key order.
func ObjectOf(pairs ...kvPair) any { return pairs }

// NewPair constructs one ordered object entry for ObjectOf.
func NewPair(key string, value any) kvPair { return kvPair{Key: key, Value: value} }

// Pairs returns an empty slice of the type NewPair produces, letting
// callers outside this package accumulate a dynamic number of entries (via
// append) before passing them to ObjectOf — the concrete element type is
// unexported, so callers cannot declare it directly.
func Pairs() []kvPair { return nil }

// EncodeValue recursively maps a decoded-JSON `any` (nil, bool, float64,
// string, []any, or []kvPair for objects) onto the tagged Value message.
// Numbers are always IEEE-754 doubles, matching the wire format's one
// numeric representation.
func EncodeValue(v any) []byte {
	var buf []byte
	switch t := v.(type) {
	case nil:
		buf = Bool(buf, valueFieldNull, true)
	case bool:
		// A literal Value{bool:false} must still be distinguishable from
		// an absent Value, so this field is written unconditionally
		// rather than through the omit-when-false Bool() helper.
		buf = AppendTag(buf, valueFieldBool, WireVarint)
		if t {
			buf = AppendVarint(buf, 1)
		} else {
			buf = AppendVarint(buf, 0)
		}
	case float64:
		buf = appendDouble(buf, valueFieldNumber, t)
	case int:
		buf = appendDouble(buf, valueFieldNumber, float64(t))
	case string:
		// Written unconditionally for the same reason as bool: an empty
		// string must not collapse into an absent Value.
		buf = AppendTag(buf, valueFieldString, WireLen)
		buf = AppendVarint(buf, uint64(len(t)))
		buf = append(buf, t...)
	case []any:
		var list []byte
		for _, item := range t {
			list = Message(list, 1, EncodeValue(item))
		}
		buf = Message(buf, valueFieldList, list)
	case []kvPair:
		var obj []byte
		for _, pair := range t {
			var entry []byte
			entry = String(entry, 1, pair.Key)
			entry = Message(entry, 2, EncodeValue(pair.Value))
			obj = Message(obj, 1, entry)
		}
		buf = Message(buf, valueFieldObject, obj)
	default:
		// Unknown Go shape: encode as null rather than panicking, matching
		// the codec's general unknown-data-tolerant posture.
		buf = Bool(buf, valueFieldNull, true)
	}
	return buf
}

// appendDouble encodes a field-number/float64 pair using the VARINT wire
// type carrying the IEEE-754 bit pattern, since this codec never uses a
// fixed64 wire type. A zero value is still written, so 0 stays distinct
// from an absent Value.
func appendDouble(buf []byte, field int, v float64) []byte {
	bits := math.Float64bits(v)
	buf = AppendTag(buf, field, WireVarint)
	return AppendVarint(buf, bits)
}

// DecodeValue is the inverse of EncodeValue, reconstructing a JSON-
// compatible `any` from the tagged Value wire bytes.
func DecodeValue(buf []byte) (any, error) {
	fields, err := ParseFields(buf)
	if err != nil {
		return nil, fmt.Errorf("cursorwire: decode value: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	f := fields[0]
	switch f.Number {
	case valueFieldNull:
		return nil, nil
	case valueFieldBool:
		v, err := f.VarintValue()
		if err != nil {
			return nil, err
		}
		return v != 0, nil
	case valueFieldNumber:
		v, err := f.VarintValue()
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(v), nil
	case valueFieldString:
		return string(f.Payload), nil
	case valueFieldList:
		items, err := ParseFields(f.Payload)
		if err != nil {
			return nil, err
		}
		list := make([]any, 0, len(items))
		for _, item := range items {
			decoded, err := DecodeValue(item.Payload)
			if err != nil {
				return nil, err
			}
			list = append(list, decoded)
		}
		return list, nil
	case valueFieldObject:
		entries, err := ParseFields(f.Payload)
		if err != nil {
			return nil, err
		}
		pairs := make([]kvPair, 0, len(entries))
		for _, entry := range entries {
			entryFields, err := ParseFields(entry.Payload)
			if err != nil {
				return nil, err
			}
			var key string
			var val any
			for _, ef := range entryFields {
				switch ef.Number {
				case 1:
					key = string(ef.Payload)
				case 2:
					val, err = DecodeValue(ef.Payload)
					if err != nil {
						return nil, err
					}
				}
			}
			pairs = append(pairs, kvPair{Key: key, Value: val})
		}
		return pairs, nil
	default:
		return nil, fmt.Errorf("cursorwire: unknown Value variant %d", f.Number)
	}
}
