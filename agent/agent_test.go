package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/tomdee2/samples/llm"
	"github.com/tomdee2/samples/session"
	"github.com/tomdee2/samples/tools"
)

// scriptedClient returns canned responses in order.
type scriptedClient struct {
	responses []*session.Message
	calls     int
}

func (c *scriptedClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	if c.calls >= len(c.responses) {
		return &session.Message{Role: "assistant", Content: "done"}, nil
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

type echoTool struct{}

func (echoTool) Name() string                   { return "echo" }
func (echoTool) Description() string            { return "Echoes its input" }
func (echoTool) Schema() map[string]interface{} { return map[string]interface{}{"type": "object"} }
func (echoTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	text, _ := args["text"].(string)
	return "echo: " + text, nil
}

func newTestAgent(t *testing.T, client llm.Client, mode Mode) *Agent {
	t.Helper()
	t.Chdir(t.TempDir())
	sess, err := session.New("test")
	if err != nil {
		t.Fatalf("could not create session: %v", err)
	}
	return &Agent{
		Session:        sess,
		Client:         client,
		AvailableTools: []tools.Tool{echoTool{}},
		Mode:           mode,
	}
}

func TestProcessUserInputToolLoop(t *testing.T) {
	client := &scriptedClient{responses: []*session.Message{
		{Role: "assistant", ToolCalls: []session.ToolCall{
			{ToolCallID: "call_1", Name: "echo", Args: map[string]interface{}{"text": "hi"}},
		}},
		{Role: "assistant", Content: "The tool said: echo: hi"},
	}}
	a := newTestAgent(t, client, ModeAuto)

	var assistantMessages []string
	var toolResults []string
	callbacks := ProcessCallbacks{
		OnAssistantMessage: func(message string) { assistantMessages = append(assistantMessages, message) },
		OnToolResult: func(tc session.ToolCall, result string) {
			toolResults = append(toolResults, result)
		},
	}

	if err := a.ProcessUserInput(context.Background(), "say hi", callbacks); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(assistantMessages) != 1 || assistantMessages[0] != "The tool said: echo: hi" {
		t.Errorf("Unexpected assistant messages: %v", assistantMessages)
	}
	if len(toolResults) != 1 || toolResults[0] != "echo: hi" {
		t.Errorf("Unexpected tool results: %v", toolResults)
	}

	// user, assistant(tool call), tool, assistant(final)
	if len(a.Session.Messages) != 4 {
		t.Fatalf("Expected 4 session messages, got %d", len(a.Session.Messages))
	}
	if a.Session.Messages[2].Role != "tool" || a.Session.Messages[2].Content != "echo: hi" {
		t.Errorf("Unexpected tool message: %+v", a.Session.Messages[2])
	}
}

func TestProcessUserInputUnknownTool(t *testing.T) {
	client := &scriptedClient{responses: []*session.Message{
		{Role: "assistant", ToolCalls: []session.ToolCall{
			{ToolCallID: "call_1", Name: "missing"},
		}},
		{Role: "assistant", Content: "ok"},
	}}
	a := newTestAgent(t, client, ModeAuto)

	var warnings []string
	callbacks := ProcessCallbacks{
		OnWarning: func(w string) { warnings = append(warnings, w) },
	}

	if err := a.ProcessUserInput(context.Background(), "try it", callbacks); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "unknown tool") {
		t.Errorf("Expected an unknown-tool warning, got %v", warnings)
	}
	if !strings.Contains(a.Session.Messages[2].Content, "not available") {
		t.Errorf("Unexpected tool message: %+v", a.Session.Messages[2])
	}
}

func TestPromptModeDecline(t *testing.T) {
	client := &scriptedClient{responses: []*session.Message{
		{Role: "assistant", ToolCalls: []session.ToolCall{
			{ToolCallID: "call_1", Name: "echo", Args: map[string]interface{}{"text": "hi"}},
		}},
		{Role: "assistant", Content: "understood"},
	}}
	a := newTestAgent(t, client, ModePrompt)

	callbacks := ProcessCallbacks{
		ShouldExecuteTool: func(tc session.ToolCall) bool { return false },
	}
	if err := a.ProcessUserInput(context.Background(), "say hi", callbacks); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(a.Session.Messages[2].Content, "declined") {
		t.Errorf("Expected a declined tool message, got %+v", a.Session.Messages[2])
	}
}

func TestToolRoundLimit(t *testing.T) {
	// A client that always requests another tool call must eventually error
	// out instead of looping forever.
	endless := make([]*session.Message, maxToolRounds+1)
	for i := range endless {
		endless[i] = &session.Message{Role: "assistant", ToolCalls: []session.ToolCall{
			{ToolCallID: "call", Name: "echo", Args: map[string]interface{}{"text": "again"}},
		}}
	}
	a := newTestAgent(t, &scriptedClient{responses: endless}, ModeAuto)

	if err := a.ProcessUserInput(context.Background(), "loop", ProcessCallbacks{}); err == nil {
		t.Fatal("Expected an error after exhausting tool rounds")
	}
}
