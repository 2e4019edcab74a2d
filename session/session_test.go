package session

import (
	"testing"
)

func TestSessionRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := New("roundtrip")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.AddMessage(Message{Role: "user", Content: "hello"})
	s.AddMessage(Message{Role: "assistant", Type: "data", Content: "hi there"})
	s.AddMessage(Message{
		Role:    "tool",
		Content: "42",
		ToolCalls: []ToolCall{
			{ToolCallID: "call_1", Name: "calculator", Args: map[string]interface{}{"expression": "6*7"}},
		},
	})

	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load("roundtrip")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != "roundtrip" {
		t.Errorf("Unexpected name: %q", loaded.Name)
	}
	if len(loaded.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(loaded.Messages))
	}
	if loaded.Messages[1].Type != "data" {
		t.Errorf("Message type not preserved: %+v", loaded.Messages[1])
	}
	if loaded.Messages[2].ToolCalls[0].Name != "calculator" {
		t.Errorf("Tool call not preserved: %+v", loaded.Messages[2])
	}

	// Saving again after loading must keep the same file.
	loaded.AddMessage(Message{Role: "user", Content: "more"})
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save after load failed: %v", err)
	}
}

func TestLoadMissingSession(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load("does-not-exist"); err == nil {
		t.Error("Expected an error for a missing session")
	}
}
