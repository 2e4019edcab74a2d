package bidi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/tomdee2/samples/errors"
	"github.com/tomdee2/samples/tools"
)

// InputSource produces the next inbound event. It blocks until an event is
// available and returns io.EOF when the input is exhausted.
type InputSource func(ctx context.Context) (InputEvent, error)

// OutputSink renders one outbound event. Sink errors end the run.
type OutputSink func(ev Event) error

// Agent relays events between input sources, a bidirectional model session
// and output sinks, executing tools the model requests along the way.
type Agent struct {
	Model        Model
	Tools        []tools.Tool
	SystemPrompt string
	Voice        string
}

// Run connects a session and relays until the context is canceled, every
// input source is exhausted and the session ends, or a sink fails. Events
// are forwarded to sinks in arrival order. Input decode failures are logged
// and skipped rather than ending the conversation.
func (a *Agent) Run(ctx context.Context, inputs []InputSource, outputs []OutputSink) error {
	sess, err := a.Model.Connect(ctx, ConnectOptions{
		SystemPrompt: a.SystemPrompt,
		Tools:        a.Tools,
		Voice:        a.Voice,
	})
	if err != nil {
		return errors.Wrapf(err, "could not connect bidirectional session")
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, input := range inputs {
		wg.Add(1)
		go func(src InputSource) {
			defer wg.Done()
			a.pumpInput(ctx, src, sess)
		}(input)
	}
	if len(inputs) > 0 {
		// Once every input is exhausted the conversation is over; closing the
		// session drains the event loop below.
		go func() {
			wg.Wait()
			sess.Close()
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sess.Events():
			if !ok {
				return nil
			}
			if ev.Err != nil {
				// Surface the failure to the sinks, then stop.
				for _, sink := range outputs {
					if err := sink(ev); err != nil {
						break
					}
				}
				return ev.Err
			}
			if ev.ToolUse != nil {
				a.handleToolUse(ctx, sess, ev.ToolUse)
			}
			for _, sink := range outputs {
				if err := sink(ev); err != nil {
					return errors.Wrapf(err, "output sink failed")
				}
			}
		}
	}
}

// pumpInput forwards events from one source into the session until EOF or
// cancellation.
func (a *Agent) pumpInput(ctx context.Context, src InputSource, sess Session) {
	for {
		ev, err := src(ctx)
		if err == io.EOF || ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("input source error: %v", err)
			return
		}
		if ev == nil {
			continue
		}
		if err := a.dispatchInput(ctx, sess, ev); err != nil {
			log.Printf("input dispatch error: %v", err)
		}
	}
}

func (a *Agent) dispatchInput(ctx context.Context, sess Session, ev InputEvent) error {
	switch e := ev.(type) {
	case AudioInput:
		audio, err := base64.StdEncoding.DecodeString(e.Audio)
		if err != nil {
			return errors.Wrapf(err, "invalid base64 audio")
		}
		return sess.SendAudio(ctx, audio)
	case TextInput:
		return sess.SendText(ctx, e.Text)
	case ImageInput:
		data, err := base64.StdEncoding.DecodeString(e.Image)
		if err != nil {
			return errors.Wrapf(err, "invalid base64 image")
		}
		return sess.SendImage(ctx, data, e.MimeType)
	default:
		return errors.New("unsupported input event %T", ev)
	}
}

// handleToolUse executes a requested tool and returns the result to the
// session. Failures are reported to the model as text.
func (a *Agent) handleToolUse(ctx context.Context, sess Session, tu *ToolUse) {
	var tool tools.Tool
	for _, t := range a.Tools {
		if t.Name() == tu.Name {
			tool = t
			break
		}
	}

	var result string
	if tool == nil {
		result = fmt.Sprintf("Error: tool '%s' is not available.", tu.Name)
	} else {
		out, err := tool.Execute(ctx, tu.Input)
		if err != nil {
			result = "Error: " + err.Error()
		} else {
			result = out
		}
	}

	if err := sess.SendToolResult(ctx, tu.ToolUseID, tu.Name, result); err != nil {
		log.Printf("could not send tool result for '%s': %v", tu.Name, err)
	}
}

// JSONFrameSource adapts a reader of JSON frames (e.g. a WebSocket receive
// function) into an InputSource.
func JSONFrameSource(next func(ctx context.Context) ([]byte, error)) InputSource {
	return func(ctx context.Context) (InputEvent, error) {
		for {
			data, err := next(ctx)
			if err != nil {
				return nil, err
			}
			ev, err := DecodeInputFrame(data)
			if err != nil {
				// Skip unparseable frames; the conversation continues.
				log.Printf("dropping input frame: %v", err)
				continue
			}
			return ev, nil
		}
	}
}

// JSONFrameSink adapts a writer of JSON frames (e.g. a WebSocket send
// function) into an OutputSink.
func JSONFrameSink(send func(data []byte) error) OutputSink {
	return func(ev Event) error {
		frame, err := EncodeOutputFrame(ev)
		if err != nil || frame == nil {
			return err
		}
		return send(frame)
	}
}

// helper shared by providers when composing raw JSON wire messages.
func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err) // marshaling map/struct literals cannot fail
	}
	return data
}
