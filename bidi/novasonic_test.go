package bidi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTranslateSession() *novaSonicSession {
	return &novaSonicSession{outputRate: novaSonicOutputRate}
}

func TestNovaSonicTranslateText(t *testing.T) {
	s := newTranslateSession()

	ev, ok := s.translate("textOutput", json.RawMessage(`{"role":"ASSISTANT","content":"Hello there"}`))
	require.True(t, ok)
	require.NotNil(t, ev.Text)
	assert.Equal(t, "Hello there", ev.Text.Text)

	// User-role text is the speech transcript.
	ev, ok = s.translate("textOutput", json.RawMessage(`{"role":"USER","content":"what time is it"}`))
	require.True(t, ok)
	require.NotNil(t, ev.Transcript)
	assert.Equal(t, "what time is it", ev.Transcript.Text)

	// The barge-in sentinel arrives on the text channel.
	ev, ok = s.translate("textOutput", json.RawMessage(`{"role":"ASSISTANT","content":"{ \"interrupted\" : true }"}`))
	require.True(t, ok)
	assert.True(t, ev.Interrupted)
}

func TestNovaSonicTranslateAudio(t *testing.T) {
	s := newTranslateSession()

	ev, ok := s.translate("audioOutput", json.RawMessage(`{"content":"AAAA"}`))
	require.True(t, ok)
	require.NotNil(t, ev.Audio)
	assert.Equal(t, "AAAA", ev.Audio.Audio)
	assert.Equal(t, novaSonicOutputRate, ev.Audio.SampleRate)

	_, ok = s.translate("audioOutput", json.RawMessage(`{"content":""}`))
	assert.False(t, ok)
}

func TestNovaSonicTranslateToolUse(t *testing.T) {
	s := newTranslateSession()

	ev, ok := s.translate("toolUse", json.RawMessage(
		`{"toolUseId":"t1","toolName":"calculator","content":"{\"expression\":\"25 * 8\"}"}`))
	require.True(t, ok)
	require.NotNil(t, ev.ToolUse)
	assert.Equal(t, "t1", ev.ToolUse.ToolUseID)
	assert.Equal(t, "calculator", ev.ToolUse.Name)
	assert.Equal(t, "25 * 8", ev.ToolUse.Input["expression"])
}

func TestNovaSonicTranslateStopReasons(t *testing.T) {
	s := newTranslateSession()

	ev, ok := s.translate("contentEnd", json.RawMessage(`{"stopReason":"INTERRUPTED"}`))
	require.True(t, ok)
	assert.True(t, ev.Interrupted)

	ev, ok = s.translate("contentEnd", json.RawMessage(`{"stopReason":"END_TURN"}`))
	require.True(t, ok)
	assert.True(t, ev.TurnDone)

	_, ok = s.translate("contentEnd", json.RawMessage(`{"stopReason":"PARTIAL_TURN"}`))
	assert.False(t, ok)

	ev, ok = s.translate("completionEnd", json.RawMessage(`{}`))
	require.True(t, ok)
	assert.True(t, ev.TurnDone)

	// Housekeeping events the relay does not surface.
	_, ok = s.translate("usageEvent", json.RawMessage(`{}`))
	assert.False(t, ok)
}
