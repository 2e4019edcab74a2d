package bidi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tomdee2/samples/errors"
)

const (
	defaultRealtimeModel   = "gpt-4o-realtime-preview"
	openAIRealtimeEndpoint = "wss://api.openai.com/v1/realtime"
	realtimeSampleRate     = 24000
)

// OpenAIRealtimeModel connects sessions against the OpenAI Realtime API.
type OpenAIRealtimeModel struct {
	Model  string
	APIKey string
}

// Connect dials the realtime endpoint and configures the session with a
// session.update event.
func (m *OpenAIRealtimeModel) Connect(ctx context.Context, opts ConnectOptions) (Session, error) {
	apiKey := m.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	model := m.Model
	if model == "" {
		model = defaultRealtimeModel
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	url := openAIRealtimeEndpoint + "?model=" + model
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, errors.Wrapf(err, "could not dial OpenAI Realtime")
	}

	s := &openAIRealtimeSession{
		conn:   conn,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}

	if err := s.configure(opts); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()
	return s, nil
}

type openAIRealtimeSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func (s *openAIRealtimeSession) writeJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return errors.Wrapf(s.conn.WriteJSON(v), "could not send frame")
}

func (s *openAIRealtimeSession) configure(opts ConnectOptions) error {
	voice := opts.Voice
	if voice == "" {
		voice = "alloy"
	}
	session := map[string]interface{}{
		"modalities":          []string{"text", "audio"},
		"voice":               voice,
		"input_audio_format":  "pcm16",
		"output_audio_format": "pcm16",
		"input_audio_transcription": map[string]interface{}{
			"model": "whisper-1",
		},
		"turn_detection": map[string]interface{}{"type": "server_vad"},
	}
	if opts.SystemPrompt != "" {
		session["instructions"] = opts.SystemPrompt
	}
	if len(opts.Tools) > 0 {
		defs := make([]map[string]interface{}, 0, len(opts.Tools))
		for _, t := range opts.Tools {
			defs = append(defs, map[string]interface{}{
				"type":        "function",
				"name":        t.Name(),
				"description": t.Description(),
				"parameters":  t.Schema(),
			})
		}
		session["tools"] = defs
	}

	return s.writeJSON(map[string]interface{}{
		"type":    "session.update",
		"session": session,
	})
}

func (s *openAIRealtimeSession) SendAudio(ctx context.Context, audio []byte) error {
	return s.writeJSON(map[string]interface{}{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(audio),
	})
}

func (s *openAIRealtimeSession) SendText(ctx context.Context, text string) error {
	if err := s.writeJSON(map[string]interface{}{
		"type": "conversation.item.create",
		"item": map[string]interface{}{
			"type": "message",
			"role": "user",
			"content": []map[string]interface{}{
				{"type": "input_text", "text": text},
			},
		},
	}); err != nil {
		return err
	}
	return s.writeJSON(map[string]interface{}{"type": "response.create"})
}

func (s *openAIRealtimeSession) SendImage(ctx context.Context, data []byte, mimeType string) error {
	return errors.New("OpenAI Realtime does not accept image input")
}

func (s *openAIRealtimeSession) SendToolResult(ctx context.Context, toolUseID, name, content string) error {
	if err := s.writeJSON(map[string]interface{}{
		"type": "conversation.item.create",
		"item": map[string]interface{}{
			"type":    "function_call_output",
			"call_id": toolUseID,
			"output":  content,
		},
	}); err != nil {
		return err
	}
	return s.writeJSON(map[string]interface{}{"type": "response.create"})
}

func (s *openAIRealtimeSession) Interrupt(ctx context.Context) error {
	return s.writeJSON(map[string]interface{}{"type": "response.cancel"})
}

func (s *openAIRealtimeSession) Events() <-chan Event {
	return s.events
}

func (s *openAIRealtimeSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// realtimeServerEvent is the subset of Realtime API server events the relay
// consumes; Type selects which fields are populated.
type realtimeServerEvent struct {
	Type       string `json:"type"`
	Delta      string `json:"delta"`
	Transcript string `json:"transcript"`
	CallID     string `json:"call_id"`
	Name       string `json:"name"`
	Arguments  string `json:"arguments"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *openAIRealtimeSession) readLoop() {
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			select {
			case <-s.done:
			default:
				s.emit(Event{Err: errors.Wrapf(err, "OpenAI Realtime stream failed")})
			}
			return
		}

		var msg realtimeServerEvent
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("skipping unparseable Realtime frame: %v", err)
			continue
		}

		var ev Event
		switch msg.Type {
		case "response.audio.delta":
			ev = Event{Audio: &AudioOutput{Audio: msg.Delta, SampleRate: realtimeSampleRate}}
		case "response.audio_transcript.delta", "response.text.delta":
			ev = Event{Text: &TextOutput{Role: "assistant", Text: msg.Delta}}
		case "conversation.item.input_audio_transcription.completed":
			if msg.Transcript == "" {
				continue
			}
			ev = Event{Transcript: &Transcript{Text: msg.Transcript}}
		case "response.function_call_arguments.done":
			args := map[string]interface{}{}
			if msg.Arguments != "" {
				if err := json.Unmarshal([]byte(msg.Arguments), &args); err != nil {
					log.Printf("unparseable tool arguments for '%s': %v", msg.Name, err)
				}
			}
			ev = Event{ToolUse: &ToolUse{ToolUseID: msg.CallID, Name: msg.Name, Input: args}}
		case "input_audio_buffer.speech_started":
			ev = Event{Interrupted: true}
		case "response.done":
			ev = Event{TurnDone: true}
		case "error":
			message := "unknown error"
			if msg.Error != nil {
				message = msg.Error.Message
			}
			ev = Event{Err: errors.New("OpenAI Realtime error: %s", message)}
		default:
			continue
		}

		if !s.emit(ev) {
			return
		}
		if ev.Err != nil {
			return
		}
	}
}

func (s *openAIRealtimeSession) emit(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}
