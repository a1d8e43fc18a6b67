// Package blobstore implements the session-local, content-addressed KV
// store the Cursor server uses to checkpoint conversation state (spec
// §3/§4.3), plus the assistant-response-recovery analysis run on every set.
package blobstore

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/roelfdiedericks/cursor-bridge/internal/cursorwire"
)

// Store is a process-local, session-scoped blob KV. Zero value is ready to
// use. Not safe for concurrent access; callers serialize access through the
// session's single-writer discipline (spec §5).
type Store struct {
	blobs          map[string][]byte
	assistantBlobs []string
}

// New returns an empty Store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Get returns the bytes stored under id, or nil if absent (spec property 6:
// get(unknown) returns empty).
func (s *Store) Get(id []byte) []byte {
	return s.blobs[string(id)]
}

// Set stores bytes under id (idempotent: an identical (id, bytes) pair is a
// no-op) and runs the assistant-recovery analysis over the bytes.
func (s *Store) Set(id, data []byte) {
	key := string(id)
	if existing, ok := s.blobs[key]; ok && string(existing) == string(data) {
		return
	}
	if s.blobs == nil {
		s.blobs = make(map[string][]byte)
	}
	s.blobs[key] = append([]byte(nil), data...)
	s.analyze(data)
}

// AssistantBlobs returns the assistant text recovered from blob sets so
// far, in the order it was observed.
func (s *Store) AssistantBlobs() []string {
	return s.assistantBlobs
}

// analyze implements spec §4.3's three-step blob analysis: UTF-8/JSON
// assistant-content extraction, falling back to a protobuf-LEN scan of raw
// bytes that look like embedded text.
func (s *Store) analyze(data []byte) {
	if utf8.Valid(data) {
		var parsed any
		if err := json.Unmarshal(data, &parsed); err == nil {
			s.extractFromJSON(parsed)
			return
		}
	}
	s.extractFromRawFields(data)
}

func (s *Store) extractFromJSON(v any) {
	switch t := v.(type) {
	case map[string]any:
		if role, _ := t["role"].(string); role == "assistant" {
			s.extractAssistantContent(t["content"])
		}
		if msgs, ok := t["messages"].([]any); ok {
			for _, m := range msgs {
				s.extractFromJSON(m)
			}
		}
	case []any:
		for _, item := range t {
			s.extractFromJSON(item)
		}
	}
}

func (s *Store) extractAssistantContent(content any) {
	switch c := content.(type) {
	case string:
		if c != "" {
			s.assistantBlobs = append(s.assistantBlobs, c)
		}
	case []any:
		for _, part := range c {
			block, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if kind, _ := block["type"].(string); kind == "text" {
				if text, ok := block["text"].(string); ok && text != "" {
					s.assistantBlobs = append(s.assistantBlobs, text)
				}
			}
		}
	}
}

// minRawFieldLen is the spec §4.3 step-3 threshold: a LEN field payload
// must exceed this many bytes to be considered recovered assistant text.
const minRawFieldLen = 50

func (s *Store) extractFromRawFields(data []byte) {
	fields, err := cursorwire.ParseFields(data)
	if err != nil {
		return
	}
	for _, f := range fields {
		if f.Wire != cursorwire.WireLen {
			continue
		}
		if len(f.Payload) <= minRawFieldLen {
			continue
		}
		if !utf8.Valid(f.Payload) {
			continue
		}
		if len(f.Payload) > 0 && (f.Payload[0] == '{' || f.Payload[0] == '[') {
			continue
		}
		s.assistantBlobs = append(s.assistantBlobs, string(f.Payload))
	}
}
