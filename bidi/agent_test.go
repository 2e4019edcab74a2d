package bidi

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomdee2/samples/tools"
)

type fakeModel struct {
	session *fakeSession
}

func (m *fakeModel) Connect(ctx context.Context, opts ConnectOptions) (Session, error) {
	m.session.opts = opts
	return m.session, nil
}

type fakeSession struct {
	mu          sync.Mutex
	opts        ConnectOptions
	sentText    []string
	sentAudio   [][]byte
	toolResults map[string]string

	events    chan Event
	closeOnce sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		toolResults: make(map[string]string),
		events:      make(chan Event, 16),
	}
}

func (s *fakeSession) SendAudio(ctx context.Context, audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentAudio = append(s.sentAudio, audio)
	return nil
}

func (s *fakeSession) SendText(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentText = append(s.sentText, text)
	return nil
}

func (s *fakeSession) SendImage(ctx context.Context, data []byte, mimeType string) error {
	return nil
}

func (s *fakeSession) SendToolResult(ctx context.Context, toolUseID, name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolResults[toolUseID] = content
	return nil
}

func (s *fakeSession) Interrupt(ctx context.Context) error { return nil }

func (s *fakeSession) Events() <-chan Event { return s.events }

func (s *fakeSession) Close() error {
	s.closeOnce.Do(func() { close(s.events) })
	return nil
}

func TestRunExecutesRequestedTools(t *testing.T) {
	sess := newFakeSession()
	sess.events <- Event{ToolUse: &ToolUse{
		ToolUseID: "t1",
		Name:      "calculator",
		Input:     map[string]interface{}{"expression": "25 * 8"},
	}}
	sess.events <- Event{Text: &TextOutput{Role: "assistant", Text: "200"}}
	sess.events <- Event{TurnDone: true}
	sess.Close()

	agent := &Agent{
		Model: &fakeModel{session: sess},
		Tools: []tools.Tool{&tools.CalculatorTool{}},
	}

	var forwarded []Event
	sink := func(ev Event) error {
		forwarded = append(forwarded, ev)
		return nil
	}

	err := agent.Run(context.Background(), nil, []OutputSink{sink})
	require.NoError(t, err)

	assert.Equal(t, "200", sess.toolResults["t1"])
	require.Len(t, forwarded, 3)
	assert.NotNil(t, forwarded[0].ToolUse)
	assert.NotNil(t, forwarded[1].Text)
	assert.True(t, forwarded[2].TurnDone)
}

func TestRunReportsUnknownTool(t *testing.T) {
	sess := newFakeSession()
	sess.events <- Event{ToolUse: &ToolUse{ToolUseID: "t1", Name: "no_such_tool"}}
	sess.Close()

	agent := &Agent{Model: &fakeModel{session: sess}}
	err := agent.Run(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Contains(t, sess.toolResults["t1"], "not available")
}

func TestRunDispatchesInputEvents(t *testing.T) {
	sess := newFakeSession()

	inputs := []InputEvent{
		TextInput{Text: "hello"},
		AudioInput{Audio: "AAAA"}, // base64 for three zero bytes
	}
	i := 0
	source := InputSource(func(ctx context.Context) (InputEvent, error) {
		if i >= len(inputs) {
			return nil, io.EOF
		}
		ev := inputs[i]
		i++
		return ev, nil
	})

	agent := &Agent{Model: &fakeModel{session: sess}}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// The session closes once the source is exhausted, ending the run.
	err := agent.Run(ctx, []InputSource{source}, nil)
	require.NoError(t, err)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	assert.Equal(t, []string{"hello"}, sess.sentText)
	require.Len(t, sess.sentAudio, 1)
	assert.Equal(t, []byte{0, 0, 0}, sess.sentAudio[0])
}

func TestRunStopsOnSessionError(t *testing.T) {
	sess := newFakeSession()
	sess.events <- Event{Err: io.ErrUnexpectedEOF}
	sess.Close()

	agent := &Agent{Model: &fakeModel{session: sess}}
	err := agent.Run(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestJSONFrameAdapters(t *testing.T) {
	frames := [][]byte{
		[]byte(`{"type":"bidi_text_input","text":"hi"}`),
		[]byte(`{"garbage":`), // dropped, not fatal
		[]byte(`{"type":"bidi_text_input","text":"again"}`),
	}
	i := 0
	source := JSONFrameSource(func(ctx context.Context) ([]byte, error) {
		if i >= len(frames) {
			return nil, io.EOF
		}
		data := frames[i]
		i++
		return data, nil
	})

	ev, err := source(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TextInput{Text: "hi"}, ev)

	ev, err = source(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TextInput{Text: "again"}, ev)

	_, err = source(context.Background())
	assert.Equal(t, io.EOF, err)

	var sent [][]byte
	sink := JSONFrameSink(func(data []byte) error {
		sent = append(sent, data)
		return nil
	})
	require.NoError(t, sink(Event{Text: &TextOutput{Role: "assistant", Text: "hi"}}))
	require.NoError(t, sink(Event{})) // empty events send nothing
	require.Len(t, sent, 1)
}
