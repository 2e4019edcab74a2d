package bidi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tomdee2/samples/errors"
)

const (
	defaultGeminiLiveModel = "gemini-2.0-flash-live-001"
	geminiLiveEndpoint     = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	geminiInputRate        = 16000
	geminiOutputRate       = 24000
)

// GeminiLiveModel connects live sessions against the Gemini
// BidiGenerateContent WebSocket API.
type GeminiLiveModel struct {
	Model  string
	APIKey string
}

// Connect dials the endpoint, sends the setup message and waits for the
// server's setupComplete acknowledgement before returning.
func (m *GeminiLiveModel) Connect(ctx context.Context, opts ConnectOptions) (Session, error) {
	apiKey := m.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	model := m.Model
	if model == "" {
		model = defaultGeminiLiveModel
	}

	url := geminiLiveEndpoint + "?key=" + apiKey
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "could not dial Gemini Live")
	}

	s := &geminiLiveSession{
		conn:   conn,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}

	if err := s.setup(model, opts); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()
	return s, nil
}

type geminiLiveSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func (s *geminiLiveSession) writeJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return errors.Wrapf(s.conn.WriteJSON(v), "could not send frame")
}

func (s *geminiLiveSession) setup(model string, opts ConnectOptions) error {
	setup := map[string]interface{}{
		"model": "models/" + model,
		"generationConfig": map[string]interface{}{
			"responseModalities": []string{"AUDIO"},
		},
		// Transcribe both sides so text front-ends can mirror the audio.
		"inputAudioTranscription":  map[string]interface{}{},
		"outputAudioTranscription": map[string]interface{}{},
	}
	if opts.Voice != "" {
		setup["generationConfig"].(map[string]interface{})["speechConfig"] = map[string]interface{}{
			"voiceConfig": map[string]interface{}{
				"prebuiltVoiceConfig": map[string]interface{}{"voiceName": opts.Voice},
			},
		}
	}
	if opts.SystemPrompt != "" {
		setup["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]interface{}{{"text": opts.SystemPrompt}},
		}
	}
	if len(opts.Tools) > 0 {
		decls := make([]map[string]interface{}, 0, len(opts.Tools))
		for _, t := range opts.Tools {
			decls = append(decls, map[string]interface{}{
				"name":        t.Name(),
				"description": t.Description(),
				"parameters":  t.Schema(),
			})
		}
		setup["tools"] = []map[string]interface{}{{"functionDeclarations": decls}}
	}

	if err := s.writeJSON(map[string]interface{}{"setup": setup}); err != nil {
		return err
	}

	// The first server frame acknowledges the setup.
	var ack struct {
		SetupComplete *struct{} `json:"setupComplete"`
	}
	if err := s.conn.ReadJSON(&ack); err != nil {
		return errors.Wrapf(err, "could not read setup acknowledgement")
	}
	if ack.SetupComplete == nil {
		return errors.New("Gemini Live did not acknowledge setup")
	}
	return nil
}

func (s *geminiLiveSession) SendAudio(ctx context.Context, audio []byte) error {
	return s.writeJSON(map[string]interface{}{
		"realtimeInput": map[string]interface{}{
			"audio": map[string]interface{}{
				"mimeType": fmt.Sprintf("audio/pcm;rate=%d", geminiInputRate),
				"data":     base64.StdEncoding.EncodeToString(audio),
			},
		},
	})
}

func (s *geminiLiveSession) SendText(ctx context.Context, text string) error {
	return s.writeJSON(map[string]interface{}{
		"clientContent": map[string]interface{}{
			"turns": []map[string]interface{}{{
				"role":  "user",
				"parts": []map[string]interface{}{{"text": text}},
			}},
			"turnComplete": true,
		},
	})
}

func (s *geminiLiveSession) SendImage(ctx context.Context, data []byte, mimeType string) error {
	return s.writeJSON(map[string]interface{}{
		"realtimeInput": map[string]interface{}{
			"mediaChunks": []map[string]interface{}{{
				"mimeType": mimeType,
				"data":     base64.StdEncoding.EncodeToString(data),
			}},
		},
	})
}

func (s *geminiLiveSession) SendToolResult(ctx context.Context, toolUseID, name, content string) error {
	return s.writeJSON(map[string]interface{}{
		"toolResponse": map[string]interface{}{
			"functionResponses": []map[string]interface{}{{
				"id":       toolUseID,
				"name":     name,
				"response": map[string]interface{}{"output": content},
			}},
		},
	})
}

// Interrupt is server-driven: Gemini cancels its own response when it hears
// the user and reports it on serverContent.interrupted.
func (s *geminiLiveSession) Interrupt(ctx context.Context) error {
	return nil
}

func (s *geminiLiveSession) Events() <-chan Event {
	return s.events
}

func (s *geminiLiveSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// geminiServerMessage is the subset of BidiGenerateContent server frames the
// relay consumes.
type geminiServerMessage struct {
	ServerContent *struct {
		ModelTurn *struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"modelTurn"`
		InputTranscription *struct {
			Text string `json:"text"`
		} `json:"inputTranscription"`
		OutputTranscription *struct {
			Text string `json:"text"`
		} `json:"outputTranscription"`
		Interrupted  bool `json:"interrupted"`
		TurnComplete bool `json:"turnComplete"`
	} `json:"serverContent"`
	ToolCall *struct {
		FunctionCalls []struct {
			ID   string                 `json:"id"`
			Name string                 `json:"name"`
			Args map[string]interface{} `json:"args"`
		} `json:"functionCalls"`
	} `json:"toolCall"`
}

func (s *geminiLiveSession) readLoop() {
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
				s.emit(Event{Err: errors.Wrapf(err, "Gemini Live stream failed")})
			}
			return
		}

		var msg geminiServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("skipping unparseable Gemini Live frame: %v", err)
			continue
		}

		if sc := msg.ServerContent; sc != nil {
			if sc.Interrupted {
				if !s.emit(Event{Interrupted: true}) {
					return
				}
			}
			if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
				if !s.emit(Event{Transcript: &Transcript{Text: sc.InputTranscription.Text}}) {
					return
				}
			}
			if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
				if !s.emit(Event{Text: &TextOutput{Role: "assistant", Text: sc.OutputTranscription.Text}}) {
					return
				}
			}
			if sc.ModelTurn != nil {
				for _, part := range sc.ModelTurn.Parts {
					if part.Text != "" {
						if !s.emit(Event{Text: &TextOutput{Role: "assistant", Text: part.Text}}) {
							return
						}
					}
					if part.InlineData != nil && part.InlineData.Data != "" {
						if !s.emit(Event{Audio: &AudioOutput{
							Audio:      part.InlineData.Data,
							SampleRate: geminiOutputRate,
						}}) {
							return
						}
					}
				}
			}
			if sc.TurnComplete {
				if !s.emit(Event{TurnDone: true}) {
					return
				}
			}
		}

		if msg.ToolCall != nil {
			for _, call := range msg.ToolCall.FunctionCalls {
				if !s.emit(Event{ToolUse: &ToolUse{
					ToolUseID: call.ID,
					Name:      call.Name,
					Input:     call.Args,
				}}) {
					return
				}
			}
		}
	}
}

func (s *geminiLiveSession) emit(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}
