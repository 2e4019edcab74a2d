package llm

import (
	"context"
	"fmt"

	"github.com/tomdee2/samples/session"
	"github.com/tomdee2/samples/tools"
)

// Client is the interface for interacting with a chat model.
type Client interface {
	Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error)
}

// StreamEvent is one event emitted while a model response streams. Exactly
// one of the fields is populated.
type StreamEvent struct {
	// Data is a partial text token of the assistant response.
	Data string
	// Reasoning is a fragment of the model's reasoning trace.
	Reasoning string
	// ToolUse reports a tool invocation as its arguments stream in.
	ToolUse *ToolUseEvent
}

// ToolUseEvent identifies a tool invocation in a streaming response. The
// same ToolUseID is repeated as the input JSON accumulates.
type ToolUseEvent struct {
	ToolUseID    string
	Name         string
	PartialInput string
}

// StreamingClient is implemented by model clients that can stream a
// response. The callback runs once per event, in emission order; the
// assembled final message is returned when the stream completes.
type StreamingClient interface {
	Client
	ChatStream(ctx context.Context, messages []session.Message, availableTools []tools.Tool, onEvent func(StreamEvent)) (*session.Message, error)
}

// MockClient is a placeholder client for wiring tests. It parrots the last
// user message back.
type MockClient struct{}

func (m *MockClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return &session.Message{
		Role:    "assistant",
		Content: fmt.Sprintf("I am a mock model. You said: '%s'.", last),
	}, nil
}
