package cursorproto

import (
	"bytes"
	"testing"

	"github.com/roelfdiedericks/cursor-bridge/internal/cursorwire"
)

func TestScenarioS2StreamClose(t *testing.T) {
	got := ExecClientControlMessage{StreamCloseID: 1}.Marshal()
	want := []byte{0x0a, 0x02, 0x08, 0x01}
	if !bytes.Equal(got, want) {
		t.Fatalf("S2(id=1) = % x, want % x", got, want)
	}

	got = ExecClientControlMessage{StreamCloseID: 0}.Marshal()
	want = []byte{0x0a, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("S2(id=0) = % x, want % x", got, want)
	}
}

func TestScenarioS4ShellResultEnvelope(t *testing.T) {
	shellResult := []byte{0x08, 0x00, 0x12, 0x03, 'o', 'u', 't', 0x2a, 0x01, '0'}
	msg := ExecClientMessage{
		ID:     0,
		Kind:   ExecResultShell,
		Result: shellResult,
		ExecID: "exec-1",
	}
	got := msg.Marshal()

	parsed, err := parseExecClientMessageForTest(got)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.hasID {
		t.Fatal("field 1 (id) must be omitted when id == 0")
	}
	if !bytes.Equal(parsed.shellResult, shellResult) {
		t.Fatalf("field 2 (shell result) = % x, want % x", parsed.shellResult, shellResult)
	}
	if parsed.execID != "exec-1" {
		t.Fatalf("field 15 (exec_id) = %q, want exec-1", parsed.execID)
	}
	if parsed.hasLs || parsed.hasGrep || parsed.hasMcp {
		t.Fatal("only field 2 (shell) should be populated, fields 4/7/11 must be absent")
	}
}

type execClientMessageParsed struct {
	hasID       bool
	shellResult []byte
	execID      string
	hasLs       bool
	hasGrep     bool
	hasMcp      bool
}

// parseExecClientMessageForTest decodes an ExecClientMessage wire blob
// using the raw field walker, mirroring how a real inbound parser for this
// message shape would work (no such parser exists in production code
// because the client only ever encodes this type, never decodes it).
func parseExecClientMessageForTest(buf []byte) (*execClientMessageParsed, error) {
	fields, err := cursorwire.ParseFields(buf)
	if err != nil {
		return nil, err
	}
	p := &execClientMessageParsed{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			p.hasID = true
		case 2:
			p.shellResult = f.Payload
		case 4:
			p.hasLs = true
		case 7:
			p.hasGrep = true
		case 11:
			p.hasMcp = true
		case 15:
			p.execID = string(f.Payload)
		}
	}
	return p, nil
}
