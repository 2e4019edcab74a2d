// Package relay implements the event relay buffer shared by the streaming
// front-ends: agent output events are folded into an append-only list of
// type-tagged entries that a UI can mirror after every change.
//
// The contract is small: partial text appends to the current "data" entry,
// reasoning fragments to the current "reasoning" entry, and tool-use events
// update the entry for their tool-use id, and a new id starts a new entry.
// Entries are never reordered or removed within a session.
package relay

import (
	"fmt"
	"sync"

	"github.com/tomdee2/samples/llm"
	"github.com/tomdee2/samples/session"
)

// Entry tags.
const (
	TypeData      = "data"
	TypeReasoning = "reasoning"
	TypeToolUse   = "tool_use"
)

// Entry is one tagged chunk of agent output.
type Entry struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Buffer accumulates agent output events for one conversation turn.
type Buffer struct {
	mu            sync.Mutex
	entries       []Entry
	currentToolID string
	// onChange, when set, observes the buffer after every mutation.
	onChange func(entries []Entry)
}

// New creates an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// OnChange registers a mirror callback invoked with a snapshot of the
// entries after every change.
func (b *Buffer) OnChange(fn func(entries []Entry)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Append folds one stream event into the buffer.
func (b *Buffer) Append(event llm.StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case event.Data != "":
		b.appendTagged(TypeData, event.Data)
	case event.Reasoning != "":
		b.appendTagged(TypeReasoning, event.Reasoning)
	case event.ToolUse != nil:
		b.appendToolUse(event.ToolUse)
	default:
		return
	}

	if b.onChange != nil {
		b.onChange(b.snapshot())
	}
}

// appendTagged extends the last entry when its tag matches, otherwise starts
// a new one.
func (b *Buffer) appendTagged(tag, text string) {
	b.currentToolID = ""
	if n := len(b.entries); n > 0 && b.entries[n-1].Type == tag {
		b.entries[n-1].Content += text
		return
	}
	b.entries = append(b.entries, Entry{Type: tag, Content: text})
}

// appendToolUse starts a new entry per tool-use id and rewrites it as the
// tool's arguments stream in.
func (b *Buffer) appendToolUse(tu *llm.ToolUseEvent) {
	content := fmt.Sprintf("Using tool: %s with args: %s", tu.Name, tu.PartialInput)
	n := len(b.entries)
	if tu.ToolUseID == b.currentToolID && n > 0 && b.entries[n-1].Type == TypeToolUse {
		b.entries[n-1].Content = content
		return
	}
	b.currentToolID = tu.ToolUseID
	b.entries = append(b.entries, Entry{Type: TypeToolUse, Content: content})
}

func (b *Buffer) snapshot() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Entries returns a snapshot of the accumulated entries, in arrival order.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

// Messages converts the buffer into assistant session messages, one per
// entry, preserving order.
func (b *Buffer) Messages() []session.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	msgs := make([]session.Message, 0, len(b.entries))
	for _, e := range b.entries {
		msgs = append(msgs, session.Message{
			Role:    "assistant",
			Type:    e.Type,
			Content: e.Content,
		})
	}
	return msgs
}
