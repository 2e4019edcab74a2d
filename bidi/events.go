package bidi

import (
	"encoding/json"

	"github.com/tomdee2/samples/errors"
)

// Input frame type discriminators accepted on the wire.
const (
	TypeAudioInput = "bidi_audio_input"
	TypeTextInput  = "bidi_text_input"
	TypeImageInput = "bidi_image_input"
)

// InputEvent is one inbound event for a bidirectional session: an
// AudioInput, TextInput or ImageInput.
type InputEvent interface {
	inputEvent()
}

// AudioInput carries a chunk of user audio. Audio is base64-encoded PCM.
type AudioInput struct {
	Audio      string `json:"audio"`
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// TextInput carries typed user text.
type TextInput struct {
	Text string `json:"text"`
}

// ImageInput carries a user-supplied image.
type ImageInput struct {
	Image    string `json:"image"` // base64
	MimeType string `json:"mime_type"`
}

func (AudioInput) inputEvent() {}
func (TextInput) inputEvent()  {}
func (ImageInput) inputEvent() {}

// DecodeInputFrame converts a WebSocket JSON frame into a typed input event,
// stripping the "type" discriminator.
func DecodeInputFrame(data []byte) (InputEvent, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, errors.Wrapf(err, "invalid input frame")
	}

	switch head.Type {
	case TypeAudioInput:
		var ev AudioInput
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, errors.Wrapf(err, "invalid %s frame", head.Type)
		}
		return ev, nil
	case TypeTextInput:
		var ev TextInput
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, errors.Wrapf(err, "invalid %s frame", head.Type)
		}
		return ev, nil
	case TypeImageInput:
		var ev ImageInput
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, errors.Wrapf(err, "invalid %s frame", head.Type)
		}
		return ev, nil
	case "":
		return nil, errors.New("input frame is missing a 'type' field")
	default:
		return nil, errors.New("unknown input frame type '%s'", head.Type)
	}
}

// Event is one outbound event emitted by a bidirectional session. Exactly
// one field is populated.
type Event struct {
	Text        *TextOutput
	Audio       *AudioOutput
	Transcript  *Transcript
	ToolUse     *ToolUse
	Interrupted bool
	TurnDone    bool
	Err         error
}

// TextOutput is streamed assistant text.
type TextOutput struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// AudioOutput is a chunk of synthesized assistant speech, base64-encoded.
type AudioOutput struct {
	Audio      string `json:"audio"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// Transcript is the recognized text of user speech.
type Transcript struct {
	Text string `json:"text"`
}

// ToolUse reports that the model invoked a tool.
type ToolUse struct {
	ToolUseID string                 `json:"tool_use_id"`
	Name      string                 `json:"name"`
	Input     map[string]interface{} `json:"input,omitempty"`
}

// EncodeOutputFrame renders an output event as a JSON frame with a "type"
// discriminator mirroring the input frame convention. Error events encode as
// bidi_error; an empty event encodes as nil.
func EncodeOutputFrame(ev Event) ([]byte, error) {
	var payload interface{}

	switch {
	case ev.Text != nil:
		payload = struct {
			Type string `json:"type"`
			*TextOutput
		}{"bidi_text_output", ev.Text}
	case ev.Audio != nil:
		payload = struct {
			Type string `json:"type"`
			*AudioOutput
		}{"bidi_audio_output", ev.Audio}
	case ev.Transcript != nil:
		payload = struct {
			Type string `json:"type"`
			*Transcript
		}{"bidi_transcript", ev.Transcript}
	case ev.ToolUse != nil:
		payload = struct {
			Type string `json:"type"`
			*ToolUse
		}{"bidi_tool_use", ev.ToolUse}
	case ev.Interrupted:
		payload = map[string]string{"type": "bidi_interrupted"}
	case ev.TurnDone:
		payload = map[string]string{"type": "bidi_turn_complete"}
	case ev.Err != nil:
		payload = map[string]string{"type": "bidi_error", "message": ev.Err.Error()}
	default:
		return nil, nil
	}

	return json.Marshal(payload)
}
