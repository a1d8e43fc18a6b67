package openaiadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/roelfdiedericks/cursor-bridge/internal/cursorsession"
	"github.com/roelfdiedericks/cursor-bridge/internal/toolbridge"

	. "github.com/roelfdiedericks/cursor-bridge/internal/logging"
)

// Outcome summarizes how a translated event stream ended, for the caller to
// log and to decide whether to retire the underlying session.
type Outcome struct {
	FinishReason  openai.FinishReason
	RecoveredText []string
	Err           error
}

// ChunkWriter streams an OpenAI-shaped chat-completion response over SSE,
// mirroring the teacher's handleEvents idiom (headers, http.Flusher, one
// fmt.Fprintf+Flush per event) but framed the way OpenAI clients expect:
// bare `data: <json>\n\n` lines terminated by `data: [DONE]\n\n`.
type ChunkWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	id      string
	model   string
	created int64
}

// NewChunkWriter prepares w for SSE and returns a ChunkWriter, or an error
// if the response writer doesn't support flushing.
func NewChunkWriter(w http.ResponseWriter, id, model string) (*ChunkWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("openaiadapter: response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &ChunkWriter{w: w, flusher: flusher, id: id, model: model, created: time.Now().Unix()}, nil
}

func (c *ChunkWriter) writeChunk(choice openai.ChatCompletionStreamChoice) {
	chunk := openai.ChatCompletionStreamResponse{
		ID:      c.id,
		Object:  "chat.completion.chunk",
		Created: c.created,
		Model:   c.model,
		Choices: []openai.ChatCompletionStreamChoice{choice},
	}
	data, err := json.Marshal(chunk)
	if err != nil {
		L_error("openaiadapter: marshal stream chunk failed", "error", err)
		return
	}
	fmt.Fprintf(c.w, "data: %s\n\n", data)
	c.flusher.Flush()
}

// WriteRoleDelta emits the opening chunk carrying only role:"assistant",
// matching the OpenAI streaming convention of announcing the role once.
func (c *ChunkWriter) WriteRoleDelta() {
	c.writeChunk(openai.ChatCompletionStreamChoice{
		Delta: openai.ChatCompletionStreamChoiceDelta{Role: openai.ChatMessageRoleAssistant},
	})
}

// WriteTextDelta emits one content delta chunk.
func (c *ChunkWriter) WriteTextDelta(text string) {
	if text == "" {
		return
	}
	c.writeChunk(openai.ChatCompletionStreamChoice{
		Delta: openai.ChatCompletionStreamChoiceDelta{Content: text},
	})
}

// WriteToolCalls emits the tool_calls delta chunk followed by a
// finish_reason:"tool_calls" chunk, closing the turn in favor of the OpenAI
// caller's own tool-execution round (spec §4.4 "OpenAI session reuse design
// choice" — Cursor sessions are not resumed after this point).
func (c *ChunkWriter) WriteToolCalls(calls []openai.ToolCall) {
	indexed := make([]openai.ToolCall, len(calls))
	for i, call := range calls {
		indexed[i] = call
		n := i
		indexed[i].Index = &n
	}
	c.writeChunk(openai.ChatCompletionStreamChoice{
		Delta: openai.ChatCompletionStreamChoiceDelta{ToolCalls: indexed},
	})
	finish := openai.FinishReasonToolCalls
	c.writeChunk(openai.ChatCompletionStreamChoice{
		Delta:        openai.ChatCompletionStreamChoiceDelta{},
		FinishReason: finish,
	})
}

// WriteStop emits the terminal finish_reason:"stop" chunk.
func (c *ChunkWriter) WriteStop() {
	c.writeChunk(openai.ChatCompletionStreamChoice{
		Delta:        openai.ChatCompletionStreamChoiceDelta{},
		FinishReason: openai.FinishReasonStop,
	})
}

// Done writes the closing `data: [DONE]` sentinel all OpenAI streaming
// clients wait for.
func (c *ChunkWriter) Done() {
	fmt.Fprint(c.w, "data: [DONE]\n\n")
	c.flusher.Flush()
}

// Translate drains a session's event channel, writing OpenAI stream chunks
// to w until the turn ends, a tool-exec request arrives, or ctx/the channel
// closes. sessionID is used only for log correlation.
func Translate(sessionID string, events <-chan cursorsession.Event, w *ChunkWriter) Outcome {
	w.WriteRoleDelta()
	for ev := range events {
		switch e := ev.(type) {
		case cursorsession.EventTextDelta:
			w.WriteTextDelta(e.Delta)
		case cursorsession.EventExecRequest:
			call, err := buildOpenAIToolCall(e)
			if err != nil {
				L_error("openaiadapter: build tool call failed", "session", sessionID, "error", err)
				w.WriteStop()
				return Outcome{FinishReason: openai.FinishReasonStop, Err: err}
			}
			w.WriteToolCalls([]openai.ToolCall{call})
			return Outcome{FinishReason: openai.FinishReasonToolCalls}
		case cursorsession.EventTurnEnded:
			for _, text := range e.RecoveredText {
				w.WriteTextDelta(text)
			}
			w.WriteStop()
			return Outcome{FinishReason: openai.FinishReasonStop, RecoveredText: e.RecoveredText}
		case cursorsession.EventError:
			L_warn("openaiadapter: session error", "session", sessionID, "kind", e.Kind, "error", e.Err)
			w.WriteStop()
			return Outcome{FinishReason: openai.FinishReasonStop, Err: e.Err}
		}
	}
	w.WriteStop()
	return Outcome{FinishReason: openai.FinishReasonStop}
}

// buildOpenAIToolCall decodes one exec request's raw args and converts it
// into the OpenAI tool-call shape via the tool bridge (C6).
func buildOpenAIToolCall(e cursorsession.EventExecRequest) (openai.ToolCall, error) {
	args, mcpName, mcpArgs, err := toolbridge.DecodeExecArgs(e.Exec.Type, e.Exec.Args)
	if err != nil {
		return openai.ToolCall{}, err
	}
	call, err := toolbridge.BuildToolCall(e.ToolCallID, e.Exec.Type, args, mcpName, mcpArgs)
	if err != nil {
		return openai.ToolCall{}, err
	}
	return openai.ToolCall{
		ID:   call.ToolCallID,
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      call.ToolName,
			Arguments: string(call.Arguments),
		},
	}, nil
}
