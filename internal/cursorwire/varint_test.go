package cursorwire

import (
	"bytes"
	"math"
	"math/rand"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 16384, 1 << 32, math.MaxUint64}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		values = append(values, r.Uint64())
	}
	for _, v := range values {
		enc := AppendVarint(nil, v)
		if len(enc) > 10 {
			t.Fatalf("encode(%d) produced %d bytes, want <=10", v, len(enc))
		}
		got, n, err := ReadVarint(enc)
		if err != nil {
			t.Fatalf("decode(%x): %v", enc, err)
		}
		if n != len(enc) {
			t.Fatalf("decode(%x) consumed %d bytes, want %d", enc, n, len(enc))
		}
		if got != v {
			t.Fatalf("round trip %d -> %x -> %d", v, enc, got)
		}
	}
}

func TestVarintScenarioS1(t *testing.T) {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{300, []byte{0xac, 0x02}},
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
	}
	for _, c := range cases {
		got := AppendVarint(nil, c.v)
		if !bytes.Equal(got, c.want) {
			t.Errorf("AppendVarint(%d) = % x, want % x", c.v, got, c.want)
		}
	}
}

func TestVarintRefusesOverlongInput(t *testing.T) {
	overlong := bytes.Repeat([]byte{0x80}, 11)
	if _, _, err := ReadVarint(overlong); err == nil {
		t.Fatal("expected error decoding an 11-byte varint")
	}
}

func TestTagIdentity(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 500; i++ {
		field := 1 + r.Intn((1<<29)-1)
		wt := WireVarint
		if r.Intn(2) == 0 {
			wt = WireLen
		}
		tag := EncodeTag(field, wt)
		gotField, gotWire := DecodeTag(tag)
		if gotField != field || gotWire != wt {
			t.Fatalf("tag round trip (%d,%d) -> %d -> (%d,%d)", field, wt, tag, gotField, gotWire)
		}
	}
}

func TestZigZagFromInt32(t *testing.T) {
	if ZigZagFromInt32(0) != 0 {
		t.Fatal("zero should map to zero")
	}
	if ZigZagFromInt32(5) != 5 {
		t.Fatal("positive values pass through unchanged")
	}
	got := ZigZagFromInt32(-1)
	want := uint64(1)<<32 - 1
	if got != want {
		t.Fatalf("ZigZagFromInt32(-1) = %d, want %d", got, want)
	}
}
