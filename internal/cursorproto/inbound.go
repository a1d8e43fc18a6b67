package cursorproto

import (
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorwire"
)

// AgentServerMessage is the server->client oneof (spec §4.2): exactly one
// of the pointer fields is populated per decoded message, others are nil.
type AgentServerMessage struct {
	InteractionUpdate        *InteractionUpdate
	ExecServerMessage        *ExecServerMessage
	ConversationCheckpoint   *ConversationCheckpointUpdate
	KvServerMessage          *KvServerMessage
	ExecServerControlMessage *ExecServerControlMessage
	InteractionQuery         *InteractionQuery
}

// ParseAgentServerMessage decodes one AgentServerMessage from its wire
// bytes, ignoring any field numbers it doesn't recognize (spec §4.1: the
// decoder "ignores unknown fields").
func ParseAgentServerMessage(buf []byte) (*AgentServerMessage, error) {
	fields, err := cursorwire.ParseFields(buf)
	if err != nil {
		return nil, err
	}
	msg := &AgentServerMessage{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			iu, err := parseInteractionUpdate(f.Payload)
			if err != nil {
				return nil, err
			}
			msg.InteractionUpdate = iu
		case 2:
			esm, err := parseExecServerMessage(f.Payload)
			if err != nil {
				return nil, err
			}
			msg.ExecServerMessage = esm
		case 3:
			msg.ConversationCheckpoint = &ConversationCheckpointUpdate{Raw: f.Payload}
		case 4:
			kvm, err := parseKvServerMessage(f.Payload)
			if err != nil {
				return nil, err
			}
			msg.KvServerMessage = kvm
		case 5:
			msg.ExecServerControlMessage = &ExecServerControlMessage{Raw: f.Payload}
		case 7:
			msg.InteractionQuery = &InteractionQuery{Raw: f.Payload}
		}
	}
	return msg, nil
}

// InteractionUpdate carries one of the streamed model-output variants.
type InteractionUpdate struct {
	TextDelta       string
	HasTextDelta    bool
	ToolCallStarted *ToolCallStarted
	ToolCallDone    *ToolCallCompleted
	PartialToolCall *PartialToolCall
	TokenDelta      string
	HasTokenDelta   bool
	Heartbeat       bool
	TurnEnded       bool
}

func parseInteractionUpdate(buf []byte) (*InteractionUpdate, error) {
	fields, err := cursorwire.ParseFields(buf)
	if err != nil {
		return nil, err
	}
	u := &InteractionUpdate{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			inner, err := cursorwire.ParseFields(f.Payload)
			if err != nil {
				return nil, err
			}
			for _, sf := range inner {
				if sf.Number == 1 {
					u.TextDelta = string(sf.Payload)
					u.HasTextDelta = true
				}
			}
		case 2:
			tcs, err := parseToolCallStarted(f.Payload)
			if err != nil {
				return nil, err
			}
			u.ToolCallStarted = tcs
		case 3:
			tcc, err := parseToolCallCompleted(f.Payload)
			if err != nil {
				return nil, err
			}
			u.ToolCallDone = tcc
		case 7:
			ptc, err := parsePartialToolCall(f.Payload)
			if err != nil {
				return nil, err
			}
			u.PartialToolCall = ptc
		case 8:
			inner, err := cursorwire.ParseFields(f.Payload)
			if err != nil {
				return nil, err
			}
			for _, sf := range inner {
				if sf.Number == 1 {
					u.TokenDelta = string(sf.Payload)
					u.HasTokenDelta = true
				}
			}
		case 13:
			u.Heartbeat = true
		case 14:
			u.TurnEnded = true
		}
	}
	return u, nil
}

// ToolCallStarted/ToolCallCompleted/PartialToolCall are left loosely typed
// (raw bytes plus the few fields C6 needs) because the spec documents their
// presence at specific field numbers without a full inner schema; C6 reads
// what it needs and otherwise treats these as opaque.
type ToolCallStarted struct{ Raw []byte }
type ToolCallCompleted struct{ Raw []byte }

type PartialToolCall struct {
	CallID        string
	ArgsTextDelta string
}

func parseToolCallStarted(buf []byte) (*ToolCallStarted, error) { return &ToolCallStarted{Raw: buf}, nil }
func parseToolCallCompleted(buf []byte) (*ToolCallCompleted, error) { return &ToolCallCompleted{Raw: buf}, nil }

func parsePartialToolCall(buf []byte) (*PartialToolCall, error) {
	fields, err := cursorwire.ParseFields(buf)
	if err != nil {
		return nil, err
	}
	p := &PartialToolCall{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			p.CallID = string(f.Payload)
		case 2:
			p.ArgsTextDelta = string(f.Payload)
		}
	}
	return p, nil
}

// ConversationCheckpointUpdate signals a checkpoint; spec §4.3 says this
// must be surfaced but must never terminate the session.
type ConversationCheckpointUpdate struct{ Raw []byte }

// ExecServerControlMessage carries a server-initiated abort signal.
type ExecServerControlMessage struct{ Raw []byte }

// InteractionQuery is a server query to the client; the session counts it
// as progress but emits no event for it. Its schema is otherwise
// unspecified by the traces this codec targets.
type InteractionQuery struct{ Raw []byte }

// KvServerMessage is a blob get/set request from the server.
type KvServerMessage struct {
	ID          uint32
	IsGetArgs   bool
	GetBlobID   []byte
	IsSetArgs   bool
	SetBlobID   []byte
	SetBlobData []byte
}

func parseKvServerMessage(buf []byte) (*KvServerMessage, error) {
	fields, err := cursorwire.ParseFields(buf)
	if err != nil {
		return nil, err
	}
	m := &KvServerMessage{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			v, err := f.VarintValue()
			if err != nil {
				return nil, err
			}
			m.ID = uint32(v)
		case 2:
			inner, err := cursorwire.ParseFields(f.Payload)
			if err != nil {
				return nil, err
			}
			m.IsGetArgs = true
			for _, sf := range inner {
				if sf.Number == 1 {
					m.GetBlobID = sf.Payload
				}
			}
		case 3:
			inner, err := cursorwire.ParseFields(f.Payload)
			if err != nil {
				return nil, err
			}
			m.IsSetArgs = true
			for _, sf := range inner {
				switch sf.Number {
				case 1:
					m.SetBlobID = sf.Payload
				case 2:
					m.SetBlobData = sf.Payload
				}
			}
		}
	}
	return m, nil
}

// ExecType identifies which exec-request variant the server issued.
type ExecType int

const (
	ExecUnknown ExecType = iota
	ExecShell
	ExecLs
	ExecRead
	ExecGrep
	ExecWrite
	ExecMcp
	ExecRequestContext
)

// ExecServerMessage is a server-issued instruction to run a tool. Only the
// fields the tool bridge (C6) needs are decoded eagerly; Args carries the
// raw inner bytes for type-specific decoding.
type ExecServerMessage struct {
	Type   ExecType
	ID     uint32
	ExecID string
	CallID string // populated for ExecMcp: the server's mcp tool_call_id
	Args   []byte
}

func parseExecServerMessage(buf []byte) (*ExecServerMessage, error) {
	fields, err := cursorwire.ParseFields(buf)
	if err != nil {
		return nil, err
	}
	m := &ExecServerMessage{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			v, err := f.VarintValue()
			if err != nil {
				return nil, err
			}
			m.ID = uint32(v)
		case 15:
			m.ExecID = string(f.Payload)
		case 2:
			m.Type, m.Args = ExecShell, f.Payload
		case 4:
			m.Type, m.Args = ExecLs, f.Payload
		case 6:
			m.Type, m.Args = ExecRead, f.Payload
		case 7:
			m.Type, m.Args = ExecGrep, f.Payload
		case 8:
			m.Type, m.Args = ExecWrite, f.Payload
		case 11:
			m.Type, m.Args = ExecMcp, f.Payload
			m.CallID = peekMcpCallID(f.Payload)
		case 12:
			m.Type, m.Args = ExecRequestContext, f.Payload
		}
	}
	return m, nil
}

// peekMcpCallID extracts the mcp call's tool_call_id from an mcp exec
// request's raw args by taking the first top-level string-wire field,
// mirroring the field-1-is-the-id convention used by every other typed
// message in this schema (spec §9: oneof field numbers for exec variants
// are inferred from traffic and extended conservatively).
func peekMcpCallID(args []byte) string {
	fields, err := cursorwire.ParseFields(args)
	if err != nil {
		return ""
	}
	for _, f := range fields {
		if f.Number == 1 && f.Wire == cursorwire.WireLen {
			return string(f.Payload)
		}
	}
	return ""
}
