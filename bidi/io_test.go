package bidi

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderTextSource(t *testing.T) {
	source := ReaderTextSource(strings.NewReader("hello\n\n  spaced  \nquit\nafter quit\n"))
	ctx := context.Background()

	ev, err := source(ctx)
	require.NoError(t, err)
	assert.Equal(t, TextInput{Text: "hello"}, ev)

	// Blank lines are skipped, surrounding whitespace trimmed.
	ev, err = source(ctx)
	require.NoError(t, err)
	assert.Equal(t, TextInput{Text: "spaced"}, ev)

	_, err = source(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestWriterTextSink(t *testing.T) {
	var b strings.Builder
	sink := WriterTextSink(&b)

	require.NoError(t, sink(Event{Text: &TextOutput{Role: "assistant", Text: "Hello"}}))
	require.NoError(t, sink(Event{Text: &TextOutput{Role: "assistant", Text: ", world"}}))
	require.NoError(t, sink(Event{TurnDone: true}))
	require.NoError(t, sink(Event{Transcript: &Transcript{Text: "what time is it"}}))
	require.NoError(t, sink(Event{ToolUse: &ToolUse{Name: "current_time"}}))
	require.NoError(t, sink(Event{Audio: &AudioOutput{Audio: "AAAA"}})) // dropped

	out := b.String()
	assert.Contains(t, out, "Assistant: Hello, world\n")
	assert.Contains(t, out, "You (voice): what time is it\n")
	assert.Contains(t, out, "[tool] current_time\n")
	assert.NotContains(t, out, "AAAA")
}
