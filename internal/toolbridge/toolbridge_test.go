package toolbridge

import (
	"strings"
	"testing"

	"github.com/roelfdiedericks/cursor-bridge/internal/cursorproto"
)

func TestToolCallIDReversibility(t *testing.T) {
	cases := []string{"abc123", "", "sess-with-dashes", "12345"}
	for _, sid := range cases {
		id := MakeToolCallID(sid, "base")
		got, ok := ParseSessionID(id)
		if !ok {
			t.Fatalf("ParseSessionID(%q) failed", id)
		}
		if got != sid {
			t.Fatalf("round trip: session %q -> id %q -> %q", sid, id, got)
		}
	}
}

func TestMakeToolCallIDSanitizesAndTruncates(t *testing.T) {
	id := MakeToolCallID("s1", "../weird!! id/with//slashes-and-dashes-that-is-extremely-long-indeed")
	base := strings.TrimPrefix(id, "sess_s1__call_")
	if len(base) > 32 {
		t.Fatalf("base %q exceeds 32 chars", base)
	}
	for _, r := range base {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			t.Fatalf("base %q contains non-alphanumeric %q", base, r)
		}
	}
}

func TestMakeToolCallIDEmptyBaseFallsBackToRandom(t *testing.T) {
	id1 := MakeToolCallID("s1", "!!!")
	id2 := MakeToolCallID("s1", "!!!")
	if id1 == id2 {
		t.Fatal("expected distinct random fallback ids for repeated empty bases")
	}
}

func TestParseSessionIDRejectsForeignIDs(t *testing.T) {
	if _, ok := ParseSessionID("not-a-tool-call-id"); ok {
		t.Fatal("expected failure parsing a non-conforming id")
	}
}

func TestBuildToolCallMapsExecTypes(t *testing.T) {
	cases := []struct {
		execType cursorproto.ExecType
		raw      ExecArgs
		wantName string
	}{
		{cursorproto.ExecShell, ExecArgs{Command: "ls"}, "bash"},
		{cursorproto.ExecRead, ExecArgs{FilePath: "a.go"}, "read"},
		{cursorproto.ExecLs, ExecArgs{Path: "."}, "list"},
		{cursorproto.ExecGrep, ExecArgs{Pattern: "x"}, "grep"},
		{cursorproto.ExecGrep, ExecArgs{Pattern: "x", Glob: "*.go"}, "glob"},
		{cursorproto.ExecWrite, ExecArgs{FilePath: "a.go", Content: "x"}, "write"},
	}
	for _, c := range cases {
		call, err := BuildToolCall("id", c.execType, c.raw, "", nil)
		if err != nil {
			t.Fatalf("BuildToolCall(%v): %v", c.execType, err)
		}
		if call.ToolName != c.wantName {
			t.Fatalf("execType %v -> tool %q, want %q", c.execType, call.ToolName, c.wantName)
		}
	}
}

func TestBuildExecResultShellFallsBackToRawStdout(t *testing.T) {
	_, body := BuildExecResult(cursorproto.ExecShell, "not json")
	want := cursorproto.ShellResult{Stdout: "not json"}.Marshal()
	if string(body) != string(want) {
		t.Fatal("non-JSON shell content should become verbatim stdout")
	}
}

func TestBuildExecResultShellParsesStructuredJSON(t *testing.T) {
	_, body := BuildExecResult(cursorproto.ExecShell, `{"stdout":"ok\n","stderr":"","exitCode":0,"executionTimeMs":100}`)
	want := cursorproto.ShellResult{Stdout: "ok\n", ExecTime: 100}.Marshal()
	if string(body) != string(want) {
		t.Fatal("structured shell JSON should map onto ShellResult fields")
	}
}

func TestBuildExecResultMcpErrorBecomesFailure(t *testing.T) {
	kind, body := BuildExecResult(cursorproto.ExecMcp, `{"error":"boom"}`)
	if kind != cursorproto.ExecResultMcp {
		t.Fatalf("kind = %v", kind)
	}
	want := cursorproto.McpResult{Failure: "boom"}.Marshal()
	if string(body) != string(want) {
		t.Fatal("mcp error content should become an McpResult failure")
	}
}
