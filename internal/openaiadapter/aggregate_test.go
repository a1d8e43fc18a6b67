package openaiadapter

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/roelfdiedericks/cursor-bridge/internal/cursorsession"
)

func TestAggregateTextOnly(t *testing.T) {
	events := make(chan cursorsession.Event, 4)
	events <- cursorsession.EventTextDelta{SessionID: "s1", Delta: "hel"}
	events <- cursorsession.EventTextDelta{SessionID: "s1", Delta: "lo"}
	events <- cursorsession.EventTurnEnded{SessionID: "s1"}
	close(events)

	resp, err := Aggregate("s1", "cursor-sonnet-4.5", events)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("expected one choice, got %d", len(resp.Choices))
	}
	if resp.Choices[0].Message.Content != "hello" {
		t.Fatalf("got content %q", resp.Choices[0].Message.Content)
	}
	if resp.Choices[0].FinishReason != openai.FinishReasonStop {
		t.Fatalf("got finish reason %q", resp.Choices[0].FinishReason)
	}
}

func TestAggregateRecoversTextWhenNoStreamedDelta(t *testing.T) {
	events := make(chan cursorsession.Event, 2)
	events <- cursorsession.EventTurnEnded{SessionID: "s1", RecoveredText: []string{"recovered answer"}}
	close(events)

	resp, err := Aggregate("s1", "model", events)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Choices[0].Message.Content != "recovered answer" {
		t.Fatalf("got content %q", resp.Choices[0].Message.Content)
	}
}
