// Package openaiadapter flattens an inbound OpenAI chat-completion request
// into the single Cursor user prompt (spec §4.5), builds Cursor's MCP tool
// definitions from the request's tools[], and re-emits the Cursor session's
// event stream as OpenAI-shaped chat-completion chunks or a single
// aggregated response.
package openaiadapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/roelfdiedericks/cursor-bridge/internal/cursorproto"
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorwire"
)

// FlattenPrompt concatenates an OpenAI request's prior turns into one
// role-labeled Cursor prompt string (spec §4.5), since a Cursor session
// carries only a single flattened UserMessage rather than OpenAI's
// message-array history. Tool calls render as `name(arguments) -> id`
// lines; tool results are labeled by the call they answer.
func FlattenPrompt(messages []openai.ChatCompletionMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case openai.ChatMessageRoleSystem:
			writeTurn(&b, "System", msg.Content)
		case openai.ChatMessageRoleUser:
			writeTurn(&b, "User", userContent(msg))
		case openai.ChatMessageRoleAssistant:
			if len(msg.ToolCalls) > 0 {
				writeTurn(&b, "Assistant (tool calls)", renderToolCalls(msg.ToolCalls))
			}
			if msg.Content != "" {
				writeTurn(&b, "Assistant", msg.Content)
			}
		case openai.ChatMessageRoleTool:
			label := fmt.Sprintf("Tool result for %s", msg.ToolCallID)
			content := msg.Content
			if content == "" {
				content = "(no output)"
			}
			writeTurn(&b, label, content)
		default:
			if msg.Content != "" {
				writeTurn(&b, "User", msg.Content)
			}
		}
	}
	return strings.TrimSuffix(b.String(), "\n\n")
}

func writeTurn(b *strings.Builder, label, content string) {
	if content == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(content)
	b.WriteString("\n\n")
}

// userContent prefers the plain Content string, falling back to a readable
// rendering of MultiContent (images/text parts) when present.
func userContent(msg openai.ChatCompletionMessage) string {
	if msg.Content != "" || len(msg.MultiContent) == 0 {
		return msg.Content
	}
	var parts []string
	for _, p := range msg.MultiContent {
		switch p.Type {
		case openai.ChatMessagePartTypeText:
			parts = append(parts, p.Text)
		case openai.ChatMessagePartTypeImageURL:
			parts = append(parts, "[image]")
		}
	}
	return strings.Join(parts, "\n")
}

func renderToolCalls(calls []openai.ToolCall) string {
	var b strings.Builder
	for i, c := range calls {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s(%s) -> %s", c.Function.Name, c.Function.Arguments, c.ID)
	}
	return b.String()
}

// BuildMcpTools translates an OpenAI request's function tools into Cursor's
// McpToolDefinition wire shape (spec §4.2, §4.5), decoding each tool's JSON
// schema with DecodeOrderedJSON so EncodeValue keeps the key order of the
// marshaled parameters. Parameters held as a Go map marshal with sorted
// keys, so their original key order is not kept.
func BuildMcpTools(tools []openai.Tool) ([]cursorproto.McpToolDefinition, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	result := make([]cursorproto.McpToolDefinition, 0, len(tools))
	for _, t := range tools {
		if t.Type != openai.ToolTypeFunction || t.Function == nil {
			continue
		}
		var schema any
		if t.Function.Parameters != nil {
			raw, err := json.Marshal(t.Function.Parameters)
			if err != nil {
				return nil, fmt.Errorf("openaiadapter: marshal tool parameters for %q: %w", t.Function.Name, err)
			}
			schema, err = DecodeOrderedJSON(raw)
			if err != nil {
				return nil, fmt.Errorf("openaiadapter: decode tool parameters for %q: %w", t.Function.Name, err)
			}
		}
		result = append(result, cursorproto.McpToolDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Schema:      schema,
		})
	}
	return result, nil
}

// DecodeOrderedJSON decodes a JSON document into the `any` shape
// cursorwire.EncodeValue expects (nil, bool, float64, string, []any, or
// cursorwire.ObjectOf(...) for objects), preserving source key order —
// unlike json.Unmarshal into map[string]any, which loses it.
func DecodeOrderedJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeOrderedValue(dec)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func decodeOrderedValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeOrderedToken(dec, tok)
}

func decodeOrderedToken(dec *json.Decoder, tok json.Token) (any, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			pairs := cursorwire.Pairs()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				valTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				val, err := decodeOrderedToken(dec, valTok)
				if err != nil {
					return nil, err
				}
				pairs = append(pairs, cursorwire.NewPair(key, val))
			}
			if _, err := dec.Token(); err != nil { // consume closing '}'
				return nil, err
			}
			return cursorwire.ObjectOf(pairs...), nil
		case '[':
			var list []any
			for dec.More() {
				itemTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				item, err := decodeOrderedToken(dec, itemTok)
				if err != nil {
					return nil, err
				}
				list = append(list, item)
			}
			if _, err := dec.Token(); err != nil { // consume closing ']'
				return nil, err
			}
			return list, nil
		}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case string, bool, nil:
		return t, nil
	}
	return nil, fmt.Errorf("openaiadapter: unexpected JSON token %v", tok)
}
