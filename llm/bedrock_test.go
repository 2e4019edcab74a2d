package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/tomdee2/samples/session"
	"github.com/tomdee2/samples/tools"
)

// stubTool is a minimal tool for request-building tests.
type stubTool struct {
	name        string
	description string
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return s.description }
func (s *stubTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"expression": map[string]interface{}{"type": "string"},
		},
	}
}

func (s *stubTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	return "stub result", nil
}

func TestBuildAnthropicRequest(t *testing.T) {
	messages := []session.Message{
		{Role: "system", Content: "Be brief."},
		{Role: "user", Content: "Hello!"},
		{Role: "assistant", Content: "Hi. Let me check.", ToolCalls: []session.ToolCall{
			{ToolCallID: "call_1", Name: "calculator", Args: map[string]interface{}{"expression": "1+1"}},
		}},
		{Role: "tool", Content: "2", ToolCalls: []session.ToolCall{
			{ToolCallID: "call_1", Name: "calculator"},
		}},
	}
	toolList := []tools.Tool{&stubTool{name: "calculator", description: "Evaluates expressions"}}

	body, err := buildAnthropicRequest(messages, toolList, 1024)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var request map[string]interface{}
	if err := json.Unmarshal(body, &request); err != nil {
		t.Fatalf("Request body is not valid JSON: %v", err)
	}

	if request["anthropic_version"] != "bedrock-2023-05-31" {
		t.Errorf("Unexpected anthropic_version: %v", request["anthropic_version"])
	}
	if request["system"] != "Be brief." {
		t.Errorf("System prompt not set: %v", request["system"])
	}
	if request["max_tokens"] != float64(1024) {
		t.Errorf("Unexpected max_tokens: %v", request["max_tokens"])
	}

	apiMessages := request["messages"].([]interface{})
	if len(apiMessages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(apiMessages))
	}

	// The tool result rides on a user-role message.
	last := apiMessages[2].(map[string]interface{})
	if last["role"] != "user" {
		t.Errorf("Expected tool result role 'user', got %v", last["role"])
	}
	block := last["content"].([]interface{})[0].(map[string]interface{})
	if block["type"] != "tool_result" || block["tool_use_id"] != "call_1" {
		t.Errorf("Unexpected tool result block: %v", block)
	}

	toolSpecs := request["tools"].([]interface{})
	if len(toolSpecs) != 1 {
		t.Fatalf("Expected 1 tool, got %d", len(toolSpecs))
	}
	spec := toolSpecs[0].(map[string]interface{})
	if spec["name"] != "calculator" {
		t.Errorf("Unexpected tool name: %v", spec["name"])
	}
	if _, ok := spec["input_schema"]; !ok {
		t.Error("Tool spec is missing input_schema")
	}
}

func TestParseAnthropicResponse(t *testing.T) {
	body := []byte(`{
		"content": [
			{"type": "text", "text": "The answer is "},
			{"type": "text", "text": "2."},
			{"type": "tool_use", "id": "call_1", "name": "calculator", "input": {"expression": "1+1"}}
		]
	}`)

	msg, err := parseAnthropicResponse(body)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if msg.Content != "The answer is 2." {
		t.Errorf("Unexpected content: %q", msg.Content)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(msg.ToolCalls))
	}
	if msg.ToolCalls[0].Name != "calculator" || msg.ToolCalls[0].Args["expression"] != "1+1" {
		t.Errorf("Unexpected tool call: %+v", msg.ToolCalls[0])
	}

	if _, err := parseAnthropicResponse([]byte(`{"error": {"message": "throttled"}}`)); err == nil {
		t.Error("Expected an error for an error response")
	}
}

func TestStreamAssembler(t *testing.T) {
	var events []StreamEvent
	asm := newAnthropicStreamAssembler(func(ev StreamEvent) {
		events = append(events, ev)
	})

	chunks := []string{
		`{"type": "content_block_start", "index": 0, "content_block": {"type": "text"}}`,
		`{"type": "content_block_delta", "index": 0, "delta": {"type": "thinking_delta", "thinking": "hmm"}}`,
		`{"type": "content_block_delta", "index": 0, "delta": {"type": "text_delta", "text": "Sure, "}}`,
		`{"type": "content_block_delta", "index": 0, "delta": {"type": "text_delta", "text": "one moment."}}`,
		`{"type": "content_block_stop", "index": 0}`,
		`{"type": "content_block_start", "index": 1, "content_block": {"type": "tool_use", "id": "call_1", "name": "calculator"}}`,
		`{"type": "content_block_delta", "index": 1, "delta": {"type": "input_json_delta", "partial_json": "{\"expression\": "}}`,
		`{"type": "content_block_delta", "index": 1, "delta": {"type": "input_json_delta", "partial_json": "\"25 * 8\"}"}}`,
		`{"type": "content_block_stop", "index": 1}`,
	}
	for _, chunk := range chunks {
		if err := asm.feed([]byte(chunk)); err != nil {
			t.Fatalf("feed failed: %v", err)
		}
	}

	msg := asm.message()
	if msg.Content != "Sure, one moment." {
		t.Errorf("Unexpected assembled text: %q", msg.Content)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(msg.ToolCalls))
	}
	tc := msg.ToolCalls[0]
	if tc.ToolCallID != "call_1" || tc.Name != "calculator" || tc.Args["expression"] != "25 * 8" {
		t.Errorf("Unexpected tool call: %+v", tc)
	}

	// Events arrive in emission order: tool start, thinking, text, partial
	// inputs.
	if len(events) == 0 {
		t.Fatal("Expected stream events")
	}
	if events[0].Reasoning != "hmm" {
		t.Errorf("Expected the first event to be reasoning, got %+v", events[0])
	}
	var sawPartial bool
	for _, ev := range events {
		if ev.ToolUse != nil && ev.ToolUse.PartialInput == `{"expression": "25 * 8"}` {
			sawPartial = true
		}
	}
	if !sawPartial {
		t.Error("Expected a tool-use event carrying the full accumulated input")
	}
}

func TestStreamAssemblerRejectsBadToolInput(t *testing.T) {
	asm := newAnthropicStreamAssembler(nil)
	chunks := []string{
		`{"type": "content_block_start", "index": 0, "content_block": {"type": "tool_use", "id": "call_1", "name": "calculator"}}`,
		`{"type": "content_block_delta", "index": 0, "delta": {"type": "input_json_delta", "partial_json": "{not json"}}`,
	}
	for _, chunk := range chunks {
		if err := asm.feed([]byte(chunk)); err != nil {
			t.Fatalf("feed failed: %v", err)
		}
	}
	if err := asm.feed([]byte(`{"type": "content_block_stop", "index": 0}`)); err == nil {
		t.Error("Expected an error for unparseable tool input")
	}
}
