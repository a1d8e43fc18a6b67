package cursorframe

import (
	"bytes"
	"testing"
)

func TestEncodeFrameRoundTrip(t *testing.T) {
	payload := []byte("hello world")
	encoded := EncodeFrame(payload)
	if encoded[0] != 0 {
		t.Fatalf("flags byte = %x, want 0", encoded[0])
	}

	var r Reader
	r.Write(encoded)
	frame, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("Next() = %v, %v, %v", frame, ok, err)
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatalf("payload = %q, want %q", frame.Payload, payload)
	}
	if frame.Trailer {
		t.Fatal("non-trailer frame decoded as trailer")
	}
}

// TestFrameSelfDelimitingUnderArbitrarySplits is testable property 4: a
// concatenation of several frames, fed to the reader in chunks split at
// every possible byte offset, always yields the same frame sequence.
func TestFrameSelfDelimitingUnderArbitrarySplits(t *testing.T) {
	var whole []byte
	var want [][]byte
	for _, s := range []string{"", "a", "hello", "a longer payload to span multiple reads"} {
		want = append(want, []byte(s))
		whole = append(whole, EncodeFrame([]byte(s))...)
	}

	for split := 0; split <= len(whole); split++ {
		var r Reader
		var got [][]byte
		feed := func(b []byte) {
			r.Write(b)
			for {
				f, ok, err := r.Next()
				if err != nil {
					t.Fatalf("split %d: Next(): %v", split, err)
				}
				if !ok {
					break
				}
				got = append(got, f.Payload)
			}
		}
		feed(whole[:split])
		feed(whole[split:])

		if len(got) != len(want) {
			t.Fatalf("split %d: got %d frames, want %d", split, len(got), len(want))
		}
		for i := range want {
			if !bytes.Equal(got[i], want[i]) {
				t.Fatalf("split %d: frame %d = %q, want %q", split, i, got[i], want[i])
			}
		}
	}
}

func TestTrailerFrameFlag(t *testing.T) {
	encoded := encodeFrame(trailerFlag, []byte("grpc-status: 0\r\n"))
	var r Reader
	r.Write(encoded)
	frame, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("Next() = %v, %v, %v", frame, ok, err)
	}
	if !frame.Trailer {
		t.Fatal("trailer flag not detected")
	}
}

func TestScenarioS6TrailerError(t *testing.T) {
	err := ParseTrailer([]byte("grpc-status: 13\r\ngrpc-message: foo%20bar\r\n"))
	if err == nil {
		t.Fatal("expected a protocol error for non-zero grpc-status")
	}
	pe, ok := err.(*ProtocolError)
	if !ok {
		t.Fatalf("got %T, want *ProtocolError", err)
	}
	if pe.Message != "foo bar" {
		t.Fatalf("message = %q, want %q", pe.Message, "foo bar")
	}
}

func TestParseTrailerZeroStatusIsNotAnError(t *testing.T) {
	if err := ParseTrailer([]byte("grpc-status: 0\r\n")); err != nil {
		t.Fatalf("zero status must not error: %v", err)
	}
}

func TestParseTrailerWithoutStatusIsNotAnError(t *testing.T) {
	if err := ParseTrailer([]byte("some-other-header: value\r\n")); err != nil {
		t.Fatalf("missing grpc-status must not error: %v", err)
	}
}
