package toolbridge

import (
	"testing"

	"github.com/roelfdiedericks/cursor-bridge/internal/cursorproto"
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorwire"
)

func TestDecodeExecArgsShell(t *testing.T) {
	var raw []byte
	raw = cursorwire.String(raw, fieldShellCommand, "echo hi")
	raw = cursorwire.String(raw, fieldShellDescription, "say hi")
	raw = cursorwire.String(raw, fieldShellWorkdir, "/tmp")

	args, _, _, err := DecodeExecArgs(cursorproto.ExecShell, raw)
	if err != nil {
		t.Fatal(err)
	}
	if args.Command != "echo hi" || args.Description != "say hi" || args.Workdir != "/tmp" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDecodeExecArgsMcp(t *testing.T) {
	var inner []byte
	inner = cursorwire.String(inner, 1, "tool_call_7")
	inner = cursorwire.String(inner, fieldMcpName, "search")
	inner = cursorwire.Message(inner, fieldMcpArgs, cursorwire.EncodeValue(cursorwire.ObjectOf(cursorwire.NewPair("q", "test"))))

	_, name, mcpArgs, err := DecodeExecArgs(cursorproto.ExecMcp, inner)
	if err != nil {
		t.Fatal(err)
	}
	if name != "search" {
		t.Fatalf("got name %q", name)
	}
	if mcpArgs == nil {
		t.Fatalf("expected decoded mcp args")
	}
}

func TestDecodeExecArgsGrepGlob(t *testing.T) {
	var raw []byte
	raw = cursorwire.String(raw, fieldGrepPattern, "TODO")
	raw = cursorwire.String(raw, fieldGrepPath, "internal")
	raw = cursorwire.String(raw, fieldGrepGlob, "*.go")

	args, _, _, err := DecodeExecArgs(cursorproto.ExecGrep, raw)
	if err != nil {
		t.Fatal(err)
	}
	if args.Pattern != "TODO" || args.Path != "internal" || args.Glob != "*.go" {
		t.Fatalf("unexpected args: %+v", args)
	}
}
