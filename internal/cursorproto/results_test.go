package cursorproto

import (
	"testing"

	"github.com/roelfdiedericks/cursor-bridge/internal/cursorwire"
)

func TestScenarioS4ShellResultFieldPresence(t *testing.T) {
	r := ShellResult{Command: "echo", Cwd: "/", Exit: 0, Stdout: "ok\n", Stderr: "", ExecTime: 100}
	buf := r.Marshal()
	fields, err := cursorwire.ParseFields(buf)
	if err != nil {
		t.Fatalf("ParseFields: %v", err)
	}
	present := map[int]bool{}
	for _, f := range fields {
		present[f.Number] = true
	}
	for _, want := range []int{1, 2, 5, 7} {
		if !present[want] {
			t.Fatalf("field %d should be populated (command/cwd/stdout/exec_time), got %v", want, present)
		}
	}
	for _, omit := range []int{3, 4, 6} {
		if present[omit] {
			t.Fatalf("field %d should be omitted (exit=0/stderr empty/unused), got %v", omit, present)
		}
	}
}

func TestExecClientMessageWrapsShellResult(t *testing.T) {
	inner := ShellResult{Stdout: "ok\n", ExecTime: 100}.Marshal()
	msg := ExecClientMessage{ID: 0, Kind: ExecResultShell, Result: inner, ExecID: "ex"}
	buf := msg.Marshal()
	fields, err := cursorwire.ParseFields(buf)
	if err != nil {
		t.Fatalf("ParseFields: %v", err)
	}
	var sawID, sawShell, sawExecID bool
	for _, f := range fields {
		switch f.Number {
		case 1:
			sawID = true
		case 2:
			sawShell = true
		case 15:
			sawExecID = true
			if string(f.Payload) != "ex" {
				t.Fatalf("exec_id = %q, want ex", f.Payload)
			}
		}
	}
	if sawID {
		t.Fatal("field 1 (id) must be omitted when id == 0")
	}
	if !sawShell {
		t.Fatal("field 2 (shell_result) must be present")
	}
	if !sawExecID {
		t.Fatal("field 15 (exec_id) must be present")
	}
}

func TestMcpResultFailureVariant(t *testing.T) {
	buf := McpResult{Failure: "boom"}.Marshal()
	fields, err := cursorwire.ParseFields(buf)
	if err != nil {
		t.Fatalf("ParseFields: %v", err)
	}
	if len(fields) != 1 || fields[0].Number != 2 || string(fields[0].Payload) != "boom" {
		t.Fatalf("got %+v", fields)
	}
}
