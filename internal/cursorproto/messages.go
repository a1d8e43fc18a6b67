// Package cursorproto defines the fixed, field-number-specific message
// schema used by Cursor's AgentService protocol (spec §4.2). Each type
// mirrors a message kind observed on the wire; field numbers are hardcoded
// rather than derived from a compiled .proto, matching the hand-rolled,
// schema-free codec design in internal/cursorwire.
package cursorproto

import (
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorwire"
)

// UserMessageMode mirrors the wire mode enum carried by UserMessage field 4.
// ASK=1 and AGENT=2 are named; unrecognized values round-trip as their raw
// int32 (spec §9 Open Question).
type UserMessageMode int32

const (
	ModeUnspecified UserMessageMode = 0
	ModeAsk         UserMessageMode = 1
	ModeAgent       UserMessageMode = 2
)

// BidiRequestId wraps the opaque session request_id (spec §4.2).
type BidiRequestId struct {
	RequestID string
}

func (m BidiRequestId) Marshal() []byte {
	var buf []byte
	buf = cursorwire.String(buf, 1, m.RequestID)
	return buf
}

// BidiAppendRequest is the unary call body that pushes one outbound message
// into an open session, carrying the monotonic append_seqno.
type BidiAppendRequest struct {
	DataHex     string
	RequestID   BidiRequestId
	AppendSeqno int64
}

func (m BidiAppendRequest) Marshal() []byte {
	var buf []byte
	buf = cursorwire.String(buf, 1, m.DataHex)
	buf = cursorwire.Message(buf, 2, m.RequestID.Marshal())
	buf = cursorwire.Int32(buf, 3, int32(m.AppendSeqno))
	return buf
}

// AgentClientMessage is a client->server oneof by field presence: exactly
// one of RunRequest, ExecClientMessage, KvClientMessage, or
// ExecClientControlMessage should be set by the caller.
type AgentClientMessage struct {
	RunRequest           *AgentRunRequest
	ExecClientMessage    *ExecClientMessage
	KvClientMessage      *KvClientMessage
	ExecClientControlMsg *ExecClientControlMessage
}

func (m AgentClientMessage) Marshal() []byte {
	var buf []byte
	if m.RunRequest != nil {
		buf = cursorwire.Message(buf, 1, m.RunRequest.Marshal())
	}
	if m.ExecClientMessage != nil {
		buf = cursorwire.Message(buf, 2, m.ExecClientMessage.Marshal())
	}
	if m.KvClientMessage != nil {
		buf = cursorwire.Message(buf, 3, m.KvClientMessage.Marshal())
	}
	if m.ExecClientControlMsg != nil {
		buf = cursorwire.Message(buf, 5, m.ExecClientControlMsg.Marshal())
	}
	return buf
}

// ExecResultKind tags which ExecClientMessage result variant is populated.
type ExecResultKind int

const (
	ExecResultNone ExecResultKind = iota
	ExecResultShell
	ExecResultLs
	ExecResultRead
	ExecResultGrep
	ExecResultWrite
	ExecResultMcp
	ExecResultRequestContext
)

// ExecClientMessage carries the client's reply to one server exec request.
type ExecClientMessage struct {
	ID     uint32
	Kind   ExecResultKind
	Result []byte // pre-marshaled inner result body for Kind
	ExecID string
}

func (m ExecClientMessage) Marshal() []byte {
	var buf []byte
	buf = cursorwire.Uint64(buf, 1, uint64(m.ID))
	switch m.Kind {
	case ExecResultShell:
		buf = cursorwire.Message(buf, 2, m.Result)
	case ExecResultLs:
		buf = cursorwire.Message(buf, 4, m.Result)
	case ExecResultRead:
		buf = cursorwire.Message(buf, 6, m.Result)
	case ExecResultGrep:
		buf = cursorwire.Message(buf, 7, m.Result)
	case ExecResultWrite:
		buf = cursorwire.Message(buf, 8, m.Result)
	case ExecResultMcp:
		buf = cursorwire.Message(buf, 11, m.Result)
	case ExecResultRequestContext:
		buf = cursorwire.Message(buf, 12, m.Result)
	}
	buf = cursorwire.String(buf, 15, m.ExecID)
	return buf
}

// ExecClientControlMessage carries the stream_close signal that terminates
// the (result, close) pair for one exec id (spec §4.3 awaiting-tool exit).
type ExecClientControlMessage struct {
	StreamCloseID uint32
}

func (m ExecClientControlMessage) Marshal() []byte {
	var inner []byte
	inner = cursorwire.Uint64(inner, 1, uint64(m.StreamCloseID))
	var buf []byte
	buf = cursorwire.Message(buf, 1, inner)
	return buf
}

// KvClientMessage is the client's reply to a blob get/set request.
type KvClientMessage struct {
	ID uint32
	// Exactly one of IsGetResult (GetBlobData may be empty) or IsSetResult
	// should be set.
	IsGetResult bool
	GetBlobData []byte
	IsSetResult bool
}

func (m KvClientMessage) Marshal() []byte {
	var buf []byte
	buf = cursorwire.Uint64(buf, 1, uint64(m.ID))
	if m.IsGetResult {
		var inner []byte
		inner = cursorwire.Bytes(inner, 1, m.GetBlobData)
		buf = cursorwire.Message(buf, 2, inner)
	}
	if m.IsSetResult {
		buf = cursorwire.Message(buf, 3, nil)
	}
	return buf
}

// AgentRunRequest is the initial message sent on the first BidiAppend call,
// establishing the conversation action, model, and tool/context config.
type AgentRunRequest struct {
	Action               *UserMessageAction
	ConversationID       string
	McpFileSystemOptions *McpFileSystemOptions
}

func (m AgentRunRequest) Marshal() []byte {
	var buf []byte
	buf = cursorwire.Message(buf, 1, nil) // conversation_state: always-empty placeholder message
	if m.Action != nil {
		buf = cursorwire.Message(buf, 2, m.Action.Marshal())
	}
	buf = cursorwire.String(buf, 5, m.ConversationID)
	if m.McpFileSystemOptions != nil {
		buf = cursorwire.Message(buf, 6, m.McpFileSystemOptions.Marshal())
	}
	return buf
}

// UserMessageAction wraps the user's turn plus the request context that
// accompanies it (workspace info, tool definitions, mcp instructions).
type UserMessageAction struct {
	UserMessage    UserMessage
	RequestContext *RequestContext
}

func (m UserMessageAction) Marshal() []byte {
	var buf []byte
	buf = cursorwire.Message(buf, 1, m.UserMessage.Marshal())
	if m.RequestContext != nil {
		buf = cursorwire.Message(buf, 2, m.RequestContext.Marshal())
	}
	return buf
}

// UserMessage is the flattened prompt text for one turn (built by
// internal/openaiadapter from the inbound OpenAI messages[]).
type UserMessage struct {
	Text      string
	MessageID string
	Mode      UserMessageMode
}

func (m UserMessage) Marshal() []byte {
	var buf []byte
	buf = cursorwire.String(buf, 1, m.Text)
	buf = cursorwire.String(buf, 2, m.MessageID)
	buf = cursorwire.Int32(buf, 4, int32(m.Mode))
	return buf
}

// RequestContext carries workspace/environment metadata and the tool
// definitions translated from the OpenAI request's tools[].
type RequestContext struct {
	Env             *EnvDescriptor
	McpTools        []McpToolDefinition
	McpInstructions string
}

func (m RequestContext) Marshal() []byte {
	var buf []byte
	if m.Env != nil {
		buf = cursorwire.Message(buf, 4, m.Env.Marshal())
	}
	for _, tool := range m.McpTools {
		buf = cursorwire.Message(buf, 7, tool.Marshal())
	}
	buf = cursorwire.String(buf, 14, m.McpInstructions)
	return buf
}

// EnvDescriptor identifies the client environment Cursor's server-issued
// exec requests should target (spec §4.2).
type EnvDescriptor struct {
	OS            string
	WorkspacePath string
	Shell         string
	Timezone      string
}

func (m EnvDescriptor) Marshal() []byte {
	var buf []byte
	buf = cursorwire.String(buf, 1, m.OS)
	buf = cursorwire.String(buf, 2, m.WorkspacePath)
	buf = cursorwire.String(buf, 3, m.Shell)
	buf = cursorwire.String(buf, 10, m.Timezone)
	buf = cursorwire.String(buf, 11, m.WorkspacePath)
	return buf
}

// McpToolDefinition is one OpenAI tool definition translated into Cursor's
// MCP tool wire shape (spec §4.2, §4.5).
type McpToolDefinition struct {
	Name        string
	Description string
	Schema      any // decoded-JSON shape passed through cursorwire.EncodeValue
}

func (m McpToolDefinition) Marshal() []byte {
	var buf []byte
	buf = cursorwire.String(buf, 1, "cursor-tools-"+m.Name)
	buf = cursorwire.String(buf, 2, m.Description)
	buf = cursorwire.Message(buf, 3, cursorwire.EncodeValue(m.Schema))
	buf = cursorwire.String(buf, 4, "cursor-tools")
	buf = cursorwire.String(buf, 5, m.Name)
	return buf
}

// McpFileSystemOptions configures whether the server may issue filesystem
// exec requests directly against the workspace (spec §4.2).
type McpFileSystemOptions struct {
	Enabled             bool
	WorkspaceProjectDir string
	McpDescriptors      []string
}

func (m McpFileSystemOptions) Marshal() []byte {
	var buf []byte
	buf = cursorwire.Bool(buf, 1, m.Enabled)
	buf = cursorwire.String(buf, 2, m.WorkspaceProjectDir)
	for _, d := range m.McpDescriptors {
		buf = cursorwire.String(buf, 3, d)
	}
	return buf
}
