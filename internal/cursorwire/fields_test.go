package cursorwire

import (
	"bytes"
	"testing"
)

func TestDefaultOmission(t *testing.T) {
	var buf []byte
	buf = Uint64(buf, 1, 0)
	buf = Int32(buf, 2, 0)
	buf = Bool(buf, 3, false)
	buf = String(buf, 4, "")
	buf = Bytes(buf, 5, nil)
	if len(buf) != 0 {
		t.Fatalf("encoding all-default fields produced %d bytes, want 0", len(buf))
	}
}

func TestFieldEmitAndParse(t *testing.T) {
	var buf []byte
	buf = Uint64(buf, 1, 42)
	buf = String(buf, 2, "hello")
	buf = Bool(buf, 3, true)

	fields, err := ParseFields(buf)
	if err != nil {
		t.Fatalf("ParseFields: %v", err)
	}
	if len(fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(fields))
	}
	v, err := fields[0].VarintValue()
	if err != nil || v != 42 {
		t.Fatalf("field 1 = %d, %v, want 42", v, err)
	}
	if string(fields[1].Payload) != "hello" {
		t.Fatalf("field 2 payload = %q", fields[1].Payload)
	}
	bv, err := fields[2].VarintValue()
	if err != nil || bv != 1 {
		t.Fatalf("field 3 = %d, %v, want 1", bv, err)
	}
}

func TestParseFieldsUnknownFieldsIgnored(t *testing.T) {
	var buf []byte
	buf = Uint64(buf, 99, 7) // unknown field number to a hypothetical reader
	buf = String(buf, 1, "kept")

	fields, err := ParseFields(buf)
	if err != nil {
		t.Fatalf("ParseFields: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("got %d fields, want 2 (unknown fields are still returned, just ignorable)", len(fields))
	}
}

func TestParseFieldsTruncatedLenFails(t *testing.T) {
	var buf []byte
	buf = AppendTag(buf, 1, WireLen)
	buf = AppendVarint(buf, 10) // claims 10 bytes but supplies none
	if _, err := ParseFields(buf); err == nil {
		t.Fatal("expected error for truncated LEN payload")
	}
}

func TestMessageAlwaysEmittedEvenEmpty(t *testing.T) {
	buf := Message(nil, 1, nil)
	if len(buf) == 0 {
		t.Fatal("Message() must emit the field even for an empty body")
	}
	fields, err := ParseFields(buf)
	if err != nil {
		t.Fatalf("ParseFields: %v", err)
	}
	if len(fields) != 1 || len(fields[0].Payload) != 0 {
		t.Fatalf("got %+v, want one field with empty payload", fields)
	}
}

func TestValueRoundTrip(t *testing.T) {
	cases := []any{
		nil,
		true,
		false,
		3.5,
		"text",
		[]any{"a", 1.0, nil},
		[]kvPair{NewPair("k", "v"), NewPair("n", 2.0)},
	}
	for _, c := range cases {
		enc := EncodeValue(c)
		got, err := DecodeValue(enc)
		if err != nil {
			t.Fatalf("DecodeValue(%v): %v", c, err)
		}
		if !valuesEqual(c, got) {
			t.Fatalf("round trip %#v -> %#v", c, got)
		}
	}
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case []kvPair:
		bv, ok := b.([]kvPair)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i].Key != bv[i].Key || !valuesEqual(av[i].Value, bv[i].Value) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func TestScenarioS3MCPResultWrap(t *testing.T) {
	// TextContentBlock{text="test result"} -> 0a 0b <text bytes>
	textBlock := String(nil, 1, "test result")
	// content = [TextContentBlock] -> one message at field 1
	content := Message(nil, 1, textBlock)
	// success{result: content} -> field 1 wraps content
	success := Message(nil, 1, content)
	// McpResult{success: success} -> field 1 wraps success
	want := []byte{0x0a, 0x11, 0x0a, 0x0f, 0x0a, 0x0d, 0x0a, 0x0b, 't', 'e', 's', 't', ' ', 'r', 'e', 's', 'u', 'l', 't'}
	got := Message(nil, 1, success)
	if !bytes.Equal(got, want) {
		t.Fatalf("S3 = % x, want % x", got, want)
	}
}
