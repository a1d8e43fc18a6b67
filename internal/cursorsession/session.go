// Package cursorsession implements the opening/streaming/awaiting-tool/
// closing/closed lifecycle of one Cursor AgentService session (spec §4.3),
// multiplexing inbound RunSSE frames against outbound BidiAppend calls.
package cursorsession

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roelfdiedericks/cursor-bridge/internal/blobstore"
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorframe"
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorproto"
	"github.com/roelfdiedericks/cursor-bridge/internal/toolbridge"
)

// State names one point in the session lifecycle (spec §4.3).
type State int

const (
	StateOpening State = iota
	StateStreaming
	StateAwaitingTool
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateStreaming:
		return "streaming"
	case StateAwaitingTool:
		return "awaiting-tool"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// HeartbeatPolicy carries the idle/heartbeat thresholds (spec §4.3), split
// by whether the session has observed a progress event yet.
type HeartbeatPolicy struct {
	IdleMsNoProgress   time.Duration
	MaxBeatsNoProgress int
	IdleMsProgress     time.Duration
	MaxBeatsProgress   int
}

// DefaultHeartbeatPolicy matches spec §4.3's literal constants.
func DefaultHeartbeatPolicy() HeartbeatPolicy {
	return HeartbeatPolicy{
		IdleMsNoProgress:   180_000 * time.Millisecond,
		MaxBeatsNoProgress: 1_000,
		IdleMsProgress:     120_000 * time.Millisecond,
		MaxBeatsProgress:   1_000,
	}
}

// Transport abstracts the two HTTP calls a session drives (spec §4.3),
// letting the state machine be exercised without a real Cursor server.
type Transport interface {
	// OpenInboundStream issues the RunSSE call and returns its streaming
	// response body.
	OpenInboundStream(ctx context.Context, requestID string) (io.ReadCloser, error)
	// Append issues one BidiAppend unary call carrying the given framed
	// payload and seqno.
	Append(ctx context.Context, requestID string, seqno int64, payload []byte) error
}

// PendingExec is the original server exec request kept alive while a tool
// call is in flight, so the reply can be reconstructed per its exec type
// (spec §4.4, consumed directly by internal/toolbridge).
type PendingExec struct {
	ExecID string
	ID     uint32
	Type   cursorproto.ExecType
	Args   []byte
}

// DefaultDeadline is the spec §5 wall-clock watchdog default.
const DefaultDeadline = 120 * time.Second

// Session drives one Cursor AgentService conversation turn.
type Session struct {
	ID        string
	transport Transport
	policy    HeartbeatPolicy
	deadline  time.Duration

	mu          sync.Mutex
	state       State
	appendSeqno int64
	blobs       *blobstore.Store
	pending     map[string]PendingExec

	sawText             bool
	anyProgressYet      bool
	lastProgress        time.Time
	heartbeatsSinceProg int
}

// New builds a session bound to the given transport. id is the shared
// request_id for both HTTP calls; if empty a fresh one is generated.
func New(transport Transport, policy HeartbeatPolicy, deadline time.Duration, id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &Session{
		ID:        id,
		transport: transport,
		policy:    policy,
		deadline:  deadline,
		state:     StateOpening,
		blobs:     blobstore.New(),
		pending:   make(map[string]PendingExec),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// nextSeqno atomically reserves and returns the next append_seqno (spec
// property 5: outbound appends observe seqno 0, 1, 2, ...).
func (s *Session) nextSeqno() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.appendSeqno
	s.appendSeqno++
	return n
}

// send frames, marshals, and appends one AgentClientMessage.
func (s *Session) send(ctx context.Context, msg cursorproto.AgentClientMessage) error {
	seqno := s.nextSeqno()
	dataHex := fmt.Sprintf("%x", msg.Marshal())
	req := cursorproto.BidiAppendRequest{
		DataHex:     dataHex,
		RequestID:   cursorproto.BidiRequestId{RequestID: s.ID},
		AppendSeqno: seqno,
	}
	payload := cursorframe.EncodeFrame(req.Marshal())
	return s.transport.Append(ctx, s.ID, seqno, payload)
}

// Start opens the inbound stream and sends the initial BidiAppend carrying
// the run request (spec §4.3 opening state), then transitions to
// streaming. Run must be called afterward to drive the inbound loop.
func (s *Session) Start(ctx context.Context, run *cursorproto.AgentRunRequest) (io.ReadCloser, error) {
	body, err := s.transport.OpenInboundStream(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("cursorsession: open inbound stream: %w", err)
	}
	if err := s.send(ctx, cursorproto.AgentClientMessage{RunRequest: run}); err != nil {
		body.Close()
		return nil, fmt.Errorf("cursorsession: initial append: %w", err)
	}
	s.mu.Lock()
	s.state = StateStreaming
	s.lastProgress = timeNow()
	s.mu.Unlock()
	return body, nil
}

// timeNow exists so tests can deterministically control progress/idle
// timestamps by swapping this var.
var timeNow = time.Now

// Run reads frames from body until the session closes or ctx is cancelled,
// emitting Events on the returned channel. The channel is closed when the
// session reaches StateClosed.
func (s *Session) Run(ctx context.Context, body io.ReadCloser) <-chan Event {
	events := make(chan Event, 16)
	go s.runLoop(ctx, body, events)
	return events
}

func (s *Session) runLoop(ctx context.Context, body io.ReadCloser, events chan<- Event) {
	defer close(events)
	defer body.Close()

	deadlineCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	var reader cursorframe.Reader
	chunk := make([]byte, 4096)

	type readResult struct {
		n   int
		err error
	}
	readCh := make(chan readResult, 1)
	startRead := func() {
		go func() {
			n, err := body.Read(chunk)
			readCh <- readResult{n, err}
		}()
	}
	startRead()

	for {
		select {
		case <-deadlineCtx.Done():
			s.transitionClosed()
			events <- EventError{SessionID: s.ID, Kind: ErrDeadlineExceeded, Err: deadlineCtx.Err()}
			return
		case r := <-readCh:
			if r.n > 0 {
				reader.Write(chunk[:r.n])
				if done := s.drainFrames(deadlineCtx, &reader, events); done {
					return
				}
			}
			if r.err != nil {
				if r.err == io.EOF {
					s.transitionClosed()
					return
				}
				s.transitionClosed()
				events <- EventError{SessionID: s.ID, Kind: ErrTransportIO, Err: r.err}
				return
			}
			startRead()
		}
	}
}

// drainFrames processes every fully-buffered frame, returning true once the
// session has transitioned to closed and the caller should stop reading.
func (s *Session) drainFrames(ctx context.Context, reader *cursorframe.Reader, events chan<- Event) bool {
	for {
		frame, ok, err := reader.Next()
		if err != nil {
			s.transitionClosed()
			events <- EventError{SessionID: s.ID, Kind: ErrProtocolFraming, Err: err}
			return true
		}
		if !ok {
			return false
		}
		if frame.Trailer {
			if trailerErr := cursorframe.ParseTrailer(frame.Payload); trailerErr != nil {
				s.transitionClosed()
				events <- EventError{SessionID: s.ID, Kind: ErrProtocolFraming, Err: trailerErr}
				return true
			}
			continue
		}
		if s.handleMessage(ctx, frame.Payload, events) {
			return true
		}
	}
}

// handleMessage decodes and dispatches one AgentServerMessage, returning
// true once the session has reached StateClosed.
func (s *Session) handleMessage(ctx context.Context, payload []byte, events chan<- Event) bool {
	msg, err := cursorproto.ParseAgentServerMessage(payload)
	if err != nil {
		s.transitionClosed()
		events <- EventError{SessionID: s.ID, Kind: ErrProtocolFraming, Err: err}
		return true
	}

	switch {
	case msg.InteractionUpdate != nil:
		return s.handleInteractionUpdate(msg.InteractionUpdate, events)
	case msg.ExecServerMessage != nil:
		s.handleExecServerMessage(msg.ExecServerMessage, events)
	case msg.KvServerMessage != nil:
		s.handleKvServerMessage(ctx, msg.KvServerMessage, events)
	case msg.ConversationCheckpoint != nil:
		s.markProgress()
		events <- EventCheckpoint{SessionID: s.ID}
	case msg.ExecServerControlMessage != nil:
		s.markProgress()
		events <- EventAbort{SessionID: s.ID}
	case msg.InteractionQuery != nil:
		s.markProgress()
	}
	return false
}

func (s *Session) handleInteractionUpdate(u *cursorproto.InteractionUpdate, events chan<- Event) bool {
	switch {
	case u.Heartbeat:
		return s.handleHeartbeat(events)
	case u.TurnEnded:
		s.markProgress()
		s.transitionClosed()
		events <- EventTurnEnded{SessionID: s.ID, RecoveredText: s.recoveredTextIfNeeded()}
		return true
	case u.HasTextDelta:
		s.markProgress()
		s.sawText = true
		events <- EventTextDelta{SessionID: s.ID, Delta: u.TextDelta}
	case u.HasTokenDelta:
		s.markProgress()
		events <- EventTokenDelta{SessionID: s.ID, Delta: u.TokenDelta}
	case u.ToolCallStarted != nil:
		s.markProgress()
		events <- EventToolCallStarted{SessionID: s.ID, Raw: u.ToolCallStarted.Raw}
	case u.ToolCallDone != nil:
		s.markProgress()
		events <- EventToolCallCompleted{SessionID: s.ID, Raw: u.ToolCallDone.Raw}
	case u.PartialToolCall != nil:
		s.markProgress()
		events <- EventPartialToolCall{
			SessionID:     s.ID,
			CallID:        u.PartialToolCall.CallID,
			ArgsTextDelta: u.PartialToolCall.ArgsTextDelta,
		}
	}
	return false
}

// recoveredTextIfNeeded implements spec §4.3's assistant-response-recovery:
// only surfaced when the session streamed no text of its own.
func (s *Session) recoveredTextIfNeeded() []string {
	if s.sawText {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobs.AssistantBlobs()
}

func (s *Session) handleExecServerMessage(m *cursorproto.ExecServerMessage, events chan<- Event) {
	s.markProgress()
	if m.Type == cursorproto.ExecUnknown {
		events <- EventError{SessionID: s.ID, Kind: ErrUnknownExecType, Err: fmt.Errorf("cursorsession: unrecognized exec variant")}
		return
	}
	execID := m.ExecID
	if execID == "" {
		execID = fmt.Sprintf("%d", m.ID)
	}
	pending := PendingExec{ExecID: execID, ID: m.ID, Type: m.Type, Args: m.Args}

	s.mu.Lock()
	s.state = StateAwaitingTool
	toolCallID := toolbridge.MakeToolCallID(s.ID, execBase(m))
	s.pending[toolCallID] = pending
	s.mu.Unlock()

	events <- EventExecRequest{SessionID: s.ID, ToolCallID: toolCallID, Exec: pending}
}

// execBase picks the raw id basis for MakeToolCallID per exec type (spec
// §4.4: mcp tool_call_id when present, else exec_id/numeric id).
func execBase(m *cursorproto.ExecServerMessage) string {
	if m.Type == cursorproto.ExecMcp && m.CallID != "" {
		return m.CallID
	}
	if m.ExecID != "" {
		return m.ExecID
	}
	return fmt.Sprintf("%d", m.ID)
}

func (s *Session) handleKvServerMessage(ctx context.Context, m *cursorproto.KvServerMessage, events chan<- Event) {
	s.markProgress()
	switch {
	case m.IsGetArgs:
		s.mu.Lock()
		data := s.blobs.Get(m.GetBlobID)
		s.mu.Unlock()
		reply := cursorproto.KvClientMessage{ID: m.ID, IsGetResult: true, GetBlobData: data}
		_ = s.send(ctx, cursorproto.AgentClientMessage{KvClientMessage: &reply})
	case m.IsSetArgs:
		s.mu.Lock()
		s.blobs.Set(m.SetBlobID, m.SetBlobData)
		s.mu.Unlock()
		reply := cursorproto.KvClientMessage{ID: m.ID, IsSetResult: true}
		_ = s.send(ctx, cursorproto.AgentClientMessage{KvClientMessage: &reply})
	}
}

// markProgress resets the heartbeat/idle tracker (spec §4.3: "any
// text/tool-call/exec/checkpoint/query/abort event resets the idle
// tracker").
func (s *Session) markProgress() {
	s.mu.Lock()
	s.lastProgress = timeNow()
	s.heartbeatsSinceProg = 0
	s.anyProgressYet = true
	s.mu.Unlock()
}

// handleHeartbeat applies spec §4.3's idle policy, forcing a synthetic
// turn-end when either threshold for the current phase is exceeded.
func (s *Session) handleHeartbeat(events chan<- Event) bool {
	s.mu.Lock()
	s.heartbeatsSinceProg++
	idleMs := s.policy.IdleMsNoProgress
	maxBeats := s.policy.MaxBeatsNoProgress
	if s.anyProgressYet {
		idleMs = s.policy.IdleMsProgress
		maxBeats = s.policy.MaxBeatsProgress
	}
	starved := timeNow().Sub(s.lastProgress) >= idleMs || s.heartbeatsSinceProg >= maxBeats
	s.mu.Unlock()

	if !starved {
		return false
	}
	s.transitionClosed()
	events <- EventError{SessionID: s.ID, Kind: ErrHeartbeatStarvation, Err: fmt.Errorf("cursorsession: heartbeat starvation")}
	events <- EventTurnEnded{SessionID: s.ID, RecoveredText: s.recoveredTextIfNeeded()}
	return true
}

func (s *Session) transitionClosed() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
}

// SendExecResult sends the (result, stream_close) pair for one completed
// tool call, transitioning back to streaming (spec §4.3 awaiting-tool
// exit). toolCallID must be one previously issued via an EventExecRequest.
func (s *Session) SendExecResult(ctx context.Context, toolCallID string, kind cursorproto.ExecResultKind, result []byte) error {
	s.mu.Lock()
	pending, ok := s.pending[toolCallID]
	if ok {
		delete(s.pending, toolCallID)
		s.state = StateStreaming
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("cursorsession: %w: %s", errUnknownToolCallID, toolCallID)
	}

	execMsg := cursorproto.ExecClientMessage{ID: pending.ID, Kind: kind, Result: result, ExecID: pending.ExecID}
	if err := s.send(ctx, cursorproto.AgentClientMessage{ExecClientMessage: &execMsg}); err != nil {
		return err
	}
	control := cursorproto.ExecClientControlMessage{StreamCloseID: pending.ID}
	return s.send(ctx, cursorproto.AgentClientMessage{ExecClientControlMsg: &control})
}

var errUnknownToolCallID = fmt.Errorf("cursorsession: unknown tool_call_id")
