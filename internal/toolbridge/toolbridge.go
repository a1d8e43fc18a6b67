// Package toolbridge maps Cursor server-issued exec requests onto OpenAI
// tool calls, and maps the client's tool results back onto Cursor's typed
// reply envelopes (spec §4.4).
package toolbridge

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/roelfdiedericks/cursor-bridge/internal/cursorproto"
)

const maxBaseLen = 32

// MakeToolCallID builds the stable synthetic OpenAI tool_call_id
// `sess_<sid>__call_<base>` (spec §4.4 step 1), sanitizing base to
// [A-Za-z0-9] and truncating to 32 characters; an empty base (or one with
// no alphanumeric characters) falls back to a random id.
func MakeToolCallID(sessionID, base string) string {
	clean := sanitize(base)
	if clean == "" {
		clean = randomBase()
	}
	return "sess_" + sessionID + "__call_" + clean
}

// ParseSessionID recovers the session id embedded in a synthetic
// tool_call_id (spec property 7: tool-id reversibility).
func ParseSessionID(toolCallID string) (string, bool) {
	rest, ok := strings.CutPrefix(toolCallID, "sess_")
	if !ok {
		return "", false
	}
	sid, _, ok := strings.Cut(rest, "__call_")
	if !ok {
		return "", false
	}
	return sid, true
}

func sanitize(base string) string {
	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() >= maxBaseLen {
			break
		}
	}
	return b.String()
}

func randomBase() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// ToolCall is what the bridge hands the OpenAI adapter for one exec
// request: the tool name/arguments OpenAI expects, plus the synthetic id.
type ToolCall struct {
	ToolCallID string
	ToolName   string
	Arguments  json.RawMessage
}

// ExecArgs is the loosely-typed shape used to read the union of
// fields any exec variant's Args might carry (spec §4.4 step 3); unknown
// keys are ignored by both encode and decode.
type ExecArgs struct {
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
	Workdir     string `json:"workdir,omitempty"`
	FilePath    string `json:"filePath,omitempty"`
	Path        string `json:"path,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Glob        string `json:"glob,omitempty"`
	Content     string `json:"content,omitempty"`
}

// BuildToolCall translates one pending exec request into the OpenAI tool
// call shape (spec §4.4 steps 1-3). mcpArgs is the server's verbatim
// argument object for ExecMcp requests, already decoded via
// cursorwire.DecodeValue; it is forwarded unchanged.
func BuildToolCall(toolCallID string, execType cursorproto.ExecType, raw ExecArgs, mcpName string, mcpArgs any) (ToolCall, error) {
	var name string
	var args any

	switch execType {
	case cursorproto.ExecShell:
		name = "bash"
		args = map[string]any{"command": raw.Command, "description": raw.Description, "workdir": raw.Workdir}
	case cursorproto.ExecRead:
		name = "read"
		args = map[string]any{"filePath": raw.FilePath}
	case cursorproto.ExecLs:
		name = "list"
		args = map[string]any{"path": raw.Path}
	case cursorproto.ExecGrep:
		name = "grep"
		if raw.Glob != "" {
			name = "glob"
		}
		args = map[string]any{"pattern": raw.Pattern, "path": raw.Path}
	case cursorproto.ExecWrite:
		name = "write"
		args = map[string]any{"filePath": raw.FilePath, "content": raw.Content}
	case cursorproto.ExecMcp:
		name = mcpName
		args = mcpArgs
	default:
		name = "unknown"
		args = map[string]any{}
	}

	encoded, err := json.Marshal(args)
	if err != nil {
		return ToolCall{}, err
	}
	return ToolCall{ToolCallID: toolCallID, ToolName: name, Arguments: encoded}, nil
}

type shellResultJSON struct {
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	ExitCode        int    `json:"exitCode"`
	ExecutionTimeMs int    `json:"executionTimeMs"`
}

type writeResultJSON struct {
	Error                 string `json:"error,omitempty"`
	LinesCreated          int    `json:"linesCreated"`
	FileSize              int    `json:"fileSize"`
	FileContentAfterWrite string `json:"fileContentAfterWrite"`
}

// BuildExecResult reconstructs the per-type Cursor reply body from an
// OpenAI tool-result message's content string (spec §4.4 step 3). It
// returns the pre-marshaled inner body to wrap via
// cursorproto.ExecClientMessage.Result.
func BuildExecResult(execType cursorproto.ExecType, content string) (cursorproto.ExecResultKind, []byte) {
	switch execType {
	case cursorproto.ExecShell:
		var r shellResultJSON
		if err := json.Unmarshal([]byte(content), &r); err != nil {
			return cursorproto.ExecResultShell, cursorproto.ShellResult{Stdout: content}.Marshal()
		}
		result := cursorproto.ShellResult{
			Stdout:   r.Stdout,
			Stderr:   r.Stderr,
			Exit:     int32(r.ExitCode),
			ExecTime: int32(r.ExecutionTimeMs),
		}
		return cursorproto.ExecResultShell, result.Marshal()
	case cursorproto.ExecWrite:
		var r writeResultJSON
		if err := json.Unmarshal([]byte(content), &r); err == nil && r.Error != "" {
			return cursorproto.ExecResultWrite, cursorproto.WriteResult{Error: r.Error}.Marshal()
		}
		if err := json.Unmarshal([]byte(content), &r); err == nil && (r.LinesCreated != 0 || r.FileSize != 0) {
			result := cursorproto.WriteResult{
				LinesCreated:          int32(r.LinesCreated),
				FileSize:              int32(r.FileSize),
				FileContentAfterWrite: r.FileContentAfterWrite,
			}
			return cursorproto.ExecResultWrite, result.Marshal()
		}
		lines := 0
		if content != "" {
			lines = strings.Count(content, "\n") + 1
		}
		result := cursorproto.WriteResult{LinesCreated: int32(lines), FileSize: int32(len(content)), FileContentAfterWrite: content}
		return cursorproto.ExecResultWrite, result.Marshal()
	case cursorproto.ExecRead:
		lines := strings.Count(content, "\n") + 1
		result := cursorproto.ReadResult{Content: content, TotalLines: int32(lines), FileSize: int32(len(content))}
		return cursorproto.ExecResultRead, result.Marshal()
	case cursorproto.ExecGrep:
		var lines []string
		for _, l := range strings.Split(content, "\n") {
			if l != "" {
				lines = append(lines, l)
			}
		}
		return cursorproto.ExecResultGrep, cursorproto.GrepResult{Lines: lines}.Marshal()
	case cursorproto.ExecLs:
		return cursorproto.ExecResultLs, cursorproto.LsResult{Files: content}.Marshal()
	case cursorproto.ExecMcp:
		var errField struct {
			Error string `json:"error,omitempty"`
		}
		if err := json.Unmarshal([]byte(content), &errField); err == nil && errField.Error != "" {
			return cursorproto.ExecResultMcp, cursorproto.McpResult{Failure: errField.Error}.Marshal()
		}
		result := cursorproto.McpResult{Success: []cursorproto.TextContentBlock{{Text: content}}}
		return cursorproto.ExecResultMcp, result.Marshal()
	default:
		return cursorproto.ExecResultNone, nil
	}
}
