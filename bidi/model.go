package bidi

import (
	"context"

	"github.com/tomdee2/samples/tools"
)

// ConnectOptions configures a bidirectional session at connect time.
type ConnectOptions struct {
	SystemPrompt string
	Tools        []tools.Tool
	// Voice names the provider voice for speech output, when supported.
	Voice string
	// InputSampleRate / OutputSampleRate select PCM rates where the provider
	// allows it; zero keeps the provider default.
	InputSampleRate  int
	OutputSampleRate int
}

// Model opens bidirectional sessions against one provider.
type Model interface {
	// Connect establishes a session. The session stays live until Close or
	// until the provider ends it; provider-side failures surface as an Err
	// event followed by channel close.
	Connect(ctx context.Context, opts ConnectOptions) (Session, error)
}

// Session is one live bidirectional conversation. Send methods may be
// called from a different goroutine than the Events consumer, but not
// concurrently with each other.
type Session interface {
	// SendAudio forwards a chunk of raw PCM user audio.
	SendAudio(ctx context.Context, audio []byte) error
	// SendText forwards typed user text, ending the user's turn.
	SendText(ctx context.Context, text string) error
	// SendImage forwards an image, where the provider supports it.
	SendImage(ctx context.Context, data []byte, mimeType string) error
	// SendToolResult returns a tool's output for a previously emitted
	// ToolUse event.
	SendToolResult(ctx context.Context, toolUseID, name, content string) error
	// Interrupt cancels the in-flight model response.
	Interrupt(ctx context.Context) error
	// Events yields output events in arrival order. The channel closes when
	// the session ends.
	Events() <-chan Event
	// Close tears the session down. Safe to call more than once.
	Close() error
}
