package blobstore

import (
	"bytes"
	"testing"

	"github.com/roelfdiedericks/cursor-bridge/internal/cursorwire"
)

func TestBlobIdempotence(t *testing.T) {
	s := New()
	id := []byte("id-1")
	data := []byte("payload bytes")
	s.Set(id, data)
	s.Set(id, data)
	if !bytes.Equal(s.Get(id), data) {
		t.Fatalf("Get = %q, want %q", s.Get(id), data)
	}
	if got := s.Get([]byte("missing")); len(got) != 0 {
		t.Fatalf("Get(unknown) = %q, want empty", got)
	}
}

func TestExtractAssistantStringContent(t *testing.T) {
	s := New()
	s.Set([]byte("a"), []byte(`{"role":"assistant","content":"hello there"}`))
	got := s.AssistantBlobs()
	if len(got) != 1 || got[0] != "hello there" {
		t.Fatalf("got %v", got)
	}
}

func TestExtractAssistantListContent(t *testing.T) {
	s := New()
	s.Set([]byte("a"), []byte(`{"role":"assistant","content":[{"type":"text","text":"part one"},{"type":"text","text":"part two"}]}`))
	got := s.AssistantBlobs()
	if len(got) != 2 || got[0] != "part one" || got[1] != "part two" {
		t.Fatalf("got %v", got)
	}
}

func TestExtractAssistantFromMessagesArray(t *testing.T) {
	s := New()
	s.Set([]byte("a"), []byte(`{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"answer"}]}`))
	got := s.AssistantBlobs()
	if len(got) != 1 || got[0] != "answer" {
		t.Fatalf("got %v", got)
	}
}

func TestExtractFromRawProtobufFields(t *testing.T) {
	s := New()
	long := "this is a long recovered assistant string exceeding fifty bytes in length"
	short := "short"
	var buf []byte
	buf = cursorwire.String(buf, 1, long)
	buf = cursorwire.String(buf, 2, short)
	s.Set([]byte("a"), buf)
	got := s.AssistantBlobs()
	if len(got) != 1 || got[0] != long {
		t.Fatalf("got %v, want only the long field", got)
	}
}

func TestRawFieldsSkipJSONLookingPayloads(t *testing.T) {
	s := New()
	jsonLike := `{"not":"really json but long enough to pass the length threshold check"}`
	var buf []byte
	buf = cursorwire.String(buf, 1, jsonLike)
	s.Set([]byte("a"), buf)
	if got := s.AssistantBlobs(); len(got) != 0 {
		t.Fatalf("got %v, want nothing recovered from a brace-prefixed field", got)
	}
}
