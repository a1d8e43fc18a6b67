package openaiadapter

import (
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/roelfdiedericks/cursor-bridge/internal/cursorwire"
)

func TestFlattenPromptRoles(t *testing.T) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "be terse"},
		{Role: openai.ChatMessageRoleUser, Content: "list files"},
		{Role: openai.ChatMessageRoleAssistant, ToolCalls: []openai.ToolCall{
			{ID: "call_1", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: "list", Arguments: `{"path":"."}`}},
		}},
		{Role: openai.ChatMessageRoleTool, ToolCallID: "call_1", Content: "a.go\nb.go"},
		{Role: openai.ChatMessageRoleAssistant, Content: "Found two files."},
	}

	got := FlattenPrompt(messages)
	for _, want := range []string{"System: be terse", "User: list files", "call_1", "Tool result for call_1", "a.go\nb.go", "Found two files."} {
		if !strings.Contains(got, want) {
			t.Fatalf("flattened prompt missing %q:\n%s", want, got)
		}
	}
}

func TestFlattenPromptEmptyToolResultGetsPlaceholder(t *testing.T) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleTool, ToolCallID: "call_9", Content: ""},
	}
	got := FlattenPrompt(messages)
	if !strings.Contains(got, "(no output)") {
		t.Fatalf("expected placeholder for empty tool content, got: %q", got)
	}
}

func TestBuildMcpToolsTranslatesFunctionTool(t *testing.T) {
	tools := []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "search",
				Description: "search the repo",
				Parameters:  map[string]any{"type": "object", "properties": map[string]any{"query": map[string]any{"type": "string"}}},
			},
		},
	}
	defs, err := BuildMcpTools(tools)
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 1 || defs[0].Name != "search" {
		t.Fatalf("unexpected defs: %+v", defs)
	}
}

func TestBuildMcpToolsNilForNoTools(t *testing.T) {
	defs, err := BuildMcpTools(nil)
	if err != nil || defs != nil {
		t.Fatalf("expected nil, nil for no tools; got %v, %v", defs, err)
	}
}

func TestDecodeOrderedJSONRoundTripsShape(t *testing.T) {
	v, err := DecodeOrderedJSON([]byte(`{"a":1,"b":[true,null,"x"]}`))
	if err != nil {
		t.Fatal(err)
	}
	if v == nil {
		t.Fatalf("expected decoded value")
	}
	want := cursorwire.ObjectOf(cursorwire.NewPair("a", 1.0), cursorwire.NewPair("b", []any{true, nil, "x"}))
	if string(cursorwire.EncodeValue(v)) != string(cursorwire.EncodeValue(want)) {
		t.Fatalf("decoded value does not match the source shape and key order: %#v", v)
	}
}
