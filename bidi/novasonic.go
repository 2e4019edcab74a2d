package bidi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/google/uuid"

	"github.com/tomdee2/samples/errors"
)

const (
	defaultNovaSonicModelID = "amazon.nova-sonic-v1:0"
	novaSonicInputRate      = 16000
	novaSonicOutputRate     = 24000
)

// NovaSonicModel connects speech-to-speech sessions against Amazon Nova
// Sonic via the Bedrock bidirectional streaming API.
type NovaSonicModel struct {
	ModelID string
	Region  string
}

// Connect opens the stream, announces the session and prompt, sends the
// system prompt and opens a long-lived audio content block for the user.
func (m *NovaSonicModel) Connect(ctx context.Context, opts ConnectOptions) (Session, error) {
	modelID := m.ModelID
	if modelID == "" {
		modelID = defaultNovaSonicModelID
	}
	region := m.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrapf(err, "could not load AWS configuration")
	}
	client := bedrockruntime.NewFromConfig(cfg)

	out, err := client.InvokeModelWithBidirectionalStream(ctx, &bedrockruntime.InvokeModelWithBidirectionalStreamInput{
		ModelId: aws.String(modelID),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open bidirectional stream for '%s'", modelID)
	}

	s := &novaSonicSession{
		stream:     out.GetStream(),
		promptName: uuid.New().String(),
		events:     make(chan Event, 64),
		done:       make(chan struct{}),
		outputRate: novaSonicOutputRate,
	}

	if err := s.startSession(ctx, opts); err != nil {
		s.Close()
		return nil, err
	}

	go s.readLoop()
	return s, nil
}

type novaSonicSession struct {
	stream     *bedrockruntime.InvokeModelWithBidirectionalStreamEventStream
	promptName string
	outputRate int

	sendMu           sync.Mutex
	audioContentName string

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// novaEvent is the {"event": {...}} envelope Nova Sonic speaks in both
// directions.
type novaEvent struct {
	Event map[string]json.RawMessage `json:"event"`
}

func (s *novaSonicSession) send(ctx context.Context, event map[string]interface{}) error {
	payload := mustJSON(map[string]interface{}{"event": event})
	err := s.stream.Send(ctx, &types.InvokeModelWithBidirectionalStreamInputMemberChunk{
		Value: types.BidirectionalInputPayloadPart{Bytes: payload},
	})
	return errors.Wrapf(err, "could not send event")
}

func (s *novaSonicSession) startSession(ctx context.Context, opts ConnectOptions) error {
	if err := s.send(ctx, map[string]interface{}{
		"sessionStart": map[string]interface{}{
			"inferenceConfiguration": map[string]interface{}{
				"maxTokens":   1024,
				"topP":        0.9,
				"temperature": 0.7,
			},
		},
	}); err != nil {
		return err
	}

	voice := opts.Voice
	if voice == "" {
		voice = "matthew"
	}
	outputRate := opts.OutputSampleRate
	if outputRate == 0 {
		outputRate = novaSonicOutputRate
	}
	s.outputRate = outputRate

	promptStart := map[string]interface{}{
		"promptName": s.promptName,
		"textOutputConfiguration": map[string]interface{}{
			"mediaType": "text/plain",
		},
		"audioOutputConfiguration": map[string]interface{}{
			"mediaType":       "audio/lpcm",
			"sampleRateHertz": outputRate,
			"sampleSizeBits":  16,
			"channelCount":    1,
			"voiceId":         voice,
			"encoding":        "base64",
			"audioType":       "SPEECH",
		},
	}
	if len(opts.Tools) > 0 {
		specs := make([]map[string]interface{}, 0, len(opts.Tools))
		for _, t := range opts.Tools {
			specs = append(specs, map[string]interface{}{
				"toolSpec": map[string]interface{}{
					"name":        t.Name(),
					"description": t.Description(),
					"inputSchema": map[string]interface{}{
						// Nova Sonic wants the schema as a JSON string.
						"json": string(mustJSON(t.Schema())),
					},
				},
			})
		}
		promptStart["toolUseOutputConfiguration"] = map[string]interface{}{
			"mediaType": "application/json",
		}
		promptStart["toolConfiguration"] = map[string]interface{}{"tools": specs}
	}
	if err := s.send(ctx, map[string]interface{}{"promptStart": promptStart}); err != nil {
		return err
	}

	if opts.SystemPrompt != "" {
		if err := s.sendTextContent(ctx, "SYSTEM", opts.SystemPrompt); err != nil {
			return err
		}
	}

	inputRate := opts.InputSampleRate
	if inputRate == 0 {
		inputRate = novaSonicInputRate
	}
	return s.openAudioContent(ctx, inputRate)
}

// sendTextContent emits a complete contentStart/textInput/contentEnd block.
func (s *novaSonicSession) sendTextContent(ctx context.Context, role, text string) error {
	contentName := uuid.New().String()
	if err := s.send(ctx, map[string]interface{}{
		"contentStart": map[string]interface{}{
			"promptName":  s.promptName,
			"contentName": contentName,
			"type":        "TEXT",
			"role":        role,
			"interactive": true,
			"textInputConfiguration": map[string]interface{}{
				"mediaType": "text/plain",
			},
		},
	}); err != nil {
		return err
	}
	if err := s.send(ctx, map[string]interface{}{
		"textInput": map[string]interface{}{
			"promptName":  s.promptName,
			"contentName": contentName,
			"content":     text,
		},
	}); err != nil {
		return err
	}
	return s.send(ctx, map[string]interface{}{
		"contentEnd": map[string]interface{}{
			"promptName":  s.promptName,
			"contentName": contentName,
		},
	})
}

// openAudioContent starts the user audio block that SendAudio streams into.
// The block stays open for the life of the session.
func (s *novaSonicSession) openAudioContent(ctx context.Context, sampleRate int) error {
	contentName := uuid.New().String()
	if err := s.send(ctx, map[string]interface{}{
		"contentStart": map[string]interface{}{
			"promptName":  s.promptName,
			"contentName": contentName,
			"type":        "AUDIO",
			"role":        "USER",
			"interactive": true,
			"audioInputConfiguration": map[string]interface{}{
				"mediaType":       "audio/lpcm",
				"sampleRateHertz": sampleRate,
				"sampleSizeBits":  16,
				"channelCount":    1,
				"audioType":       "SPEECH",
				"encoding":        "base64",
			},
		},
	}); err != nil {
		return err
	}
	s.audioContentName = contentName
	return nil
}

func (s *novaSonicSession) SendAudio(ctx context.Context, audio []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.send(ctx, map[string]interface{}{
		"audioInput": map[string]interface{}{
			"promptName":  s.promptName,
			"contentName": s.audioContentName,
			"content":     base64.StdEncoding.EncodeToString(audio),
		},
	})
}

func (s *novaSonicSession) SendText(ctx context.Context, text string) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.sendTextContent(ctx, "USER", text)
}

func (s *novaSonicSession) SendImage(ctx context.Context, data []byte, mimeType string) error {
	return errors.New("Nova Sonic does not accept image input")
}

func (s *novaSonicSession) SendToolResult(ctx context.Context, toolUseID, name, content string) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	contentName := uuid.New().String()
	if err := s.send(ctx, map[string]interface{}{
		"contentStart": map[string]interface{}{
			"promptName":  s.promptName,
			"contentName": contentName,
			"type":        "TOOL",
			"role":        "TOOL",
			"interactive": false,
			"toolResultInputConfiguration": map[string]interface{}{
				"toolUseId": toolUseID,
				"type":      "TEXT",
				"textInputConfiguration": map[string]interface{}{
					"mediaType": "text/plain",
				},
			},
		},
	}); err != nil {
		return err
	}
	if err := s.send(ctx, map[string]interface{}{
		"toolResult": map[string]interface{}{
			"promptName":  s.promptName,
			"contentName": contentName,
			"content":     content,
		},
	}); err != nil {
		return err
	}
	return s.send(ctx, map[string]interface{}{
		"contentEnd": map[string]interface{}{
			"promptName":  s.promptName,
			"contentName": contentName,
		},
	})
}

// Interrupt is a no-op for Nova Sonic: the service barges in on its own when
// it detects user speech and reports it with an INTERRUPTED stop reason.
func (s *novaSonicSession) Interrupt(ctx context.Context) error {
	return nil
}

func (s *novaSonicSession) Events() <-chan Event {
	return s.events
}

func (s *novaSonicSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		ctx := context.Background()
		s.sendMu.Lock()
		if s.audioContentName != "" {
			_ = s.send(ctx, map[string]interface{}{
				"contentEnd": map[string]interface{}{
					"promptName":  s.promptName,
					"contentName": s.audioContentName,
				},
			})
		}
		_ = s.send(ctx, map[string]interface{}{
			"promptEnd": map[string]interface{}{"promptName": s.promptName},
		})
		_ = s.send(ctx, map[string]interface{}{
			"sessionEnd": map[string]interface{}{},
		})
		s.sendMu.Unlock()
		err = s.stream.Close()
	})
	return err
}

// readLoop drains the response stream and translates Nova Sonic events into
// the provider-neutral form.
func (s *novaSonicSession) readLoop() {
	defer close(s.events)

	for raw := range s.stream.Events() {
		chunk, ok := raw.(*types.InvokeModelWithBidirectionalStreamOutputMemberChunk)
		if !ok {
			continue
		}
		var env novaEvent
		if err := json.Unmarshal(chunk.Value.Bytes, &env); err != nil {
			log.Printf("skipping unparseable Nova Sonic event: %v", err)
			continue
		}
		for name, body := range env.Event {
			if ev, ok := s.translate(name, body); ok {
				select {
				case s.events <- ev:
				case <-s.done:
					return
				}
			}
		}
	}

	if err := s.stream.Err(); err != nil {
		select {
		case s.events <- Event{Err: errors.Wrapf(err, "Nova Sonic stream failed")}:
		case <-s.done:
		}
	}
}

func (s *novaSonicSession) translate(name string, body json.RawMessage) (Event, bool) {
	switch name {
	case "textOutput":
		var out struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(body, &out); err != nil || out.Content == "" {
			return Event{}, false
		}
		// Barge-in shows up as a sentinel on the text channel.
		if strings.Contains(out.Content, "{ \"interrupted\" : true }") {
			return Event{Interrupted: true}, true
		}
		if out.Role == "USER" {
			return Event{Transcript: &Transcript{Text: out.Content}}, true
		}
		return Event{Text: &TextOutput{Role: "assistant", Text: out.Content}}, true

	case "audioOutput":
		var out struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(body, &out); err != nil || out.Content == "" {
			return Event{}, false
		}
		return Event{Audio: &AudioOutput{Audio: out.Content, SampleRate: s.outputRate}}, true

	case "toolUse":
		var out struct {
			ToolUseID string `json:"toolUseId"`
			ToolName  string `json:"toolName"`
			Content   string `json:"content"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return Event{}, false
		}
		args := map[string]interface{}{}
		if out.Content != "" {
			if err := json.Unmarshal([]byte(out.Content), &args); err != nil {
				log.Printf("unparseable tool arguments for '%s': %v", out.ToolName, err)
			}
		}
		return Event{ToolUse: &ToolUse{
			ToolUseID: out.ToolUseID,
			Name:      out.ToolName,
			Input:     args,
		}}, true

	case "contentEnd":
		var out struct {
			StopReason string `json:"stopReason"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return Event{}, false
		}
		switch out.StopReason {
		case "INTERRUPTED":
			return Event{Interrupted: true}, true
		case "END_TURN":
			return Event{TurnDone: true}, true
		}
		return Event{}, false

	case "completionEnd":
		return Event{TurnDone: true}, true
	}

	return Event{}, false
}
