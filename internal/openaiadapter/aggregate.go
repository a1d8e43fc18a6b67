package openaiadapter

import (
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/roelfdiedericks/cursor-bridge/internal/cursorsession"

	. "github.com/roelfdiedericks/cursor-bridge/internal/logging"
)

// Aggregate drains a session's event channel to completion and builds a
// single non-streaming ChatCompletionResponse (spec §4.5: "non-streaming
// requests collect the same events into one response"), applying the same
// assistant-response-recovery fallback as the streaming path.
func Aggregate(sessionID, model string, events <-chan cursorsession.Event) (openai.ChatCompletionResponse, error) {
	var text strings.Builder
	var toolCalls []openai.ToolCall
	finish := openai.FinishReasonStop
	var recovered []string
	var outErr error

	for ev := range events {
		switch e := ev.(type) {
		case cursorsession.EventTextDelta:
			text.WriteString(e.Delta)
		case cursorsession.EventExecRequest:
			call, err := buildOpenAIToolCall(e)
			if err != nil {
				L_error("openaiadapter: build tool call failed", "session", sessionID, "error", err)
				outErr = err
				continue
			}
			toolCalls = append(toolCalls, call)
			finish = openai.FinishReasonToolCalls
		case cursorsession.EventTurnEnded:
			recovered = e.RecoveredText
		case cursorsession.EventError:
			L_warn("openaiadapter: session error", "session", sessionID, "kind", e.Kind, "error", e.Err)
			outErr = e.Err
		}
	}

	content := text.String()
	if content == "" && len(recovered) > 0 {
		content = strings.Join(recovered, "\n\n")
	}

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
	if len(toolCalls) > 0 {
		msg.ToolCalls = toolCalls
	} else {
		msg.Content = content
	}

	resp := openai.ChatCompletionResponse{
		ID:      "chatcmpl-" + sessionID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      msg,
			FinishReason: finish,
		}},
	}
	return resp, outErr
}
