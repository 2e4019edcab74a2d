package bidi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// ModelFor maps a short provider name to its Model. Unknown names return an
// error so callers can reject them up front.
func ModelFor(name string) (Model, error) {
	switch strings.ToLower(name) {
	case "novasonic":
		return &NovaSonicModel{}, nil
	case "gemini":
		return &GeminiLiveModel{}, nil
	case "openai":
		return &OpenAIRealtimeModel{}, nil
	default:
		return nil, fmt.Errorf("unknown bidirectional model '%s'", name)
	}
}

// ReaderTextSource reads lines from r and yields them as text input. It
// returns io.EOF when the reader is exhausted or a quit command is entered.
func ReaderTextSource(r io.Reader) InputSource {
	scanner := bufio.NewScanner(r)
	return func(ctx context.Context) (InputEvent, error) {
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			switch strings.ToLower(line) {
			case "/quit", "/exit", "quit", "exit", "bye", "q":
				return nil, io.EOF
			}
			return TextInput{Text: line}, nil
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
}

// WriterTextSink prints text, transcripts and tool activity to w, dropping
// audio. Assistant text streams on one line until the turn completes.
func WriterTextSink(w io.Writer) OutputSink {
	inTurn := false
	return func(ev Event) error {
		switch {
		case ev.Transcript != nil:
			if inTurn {
				fmt.Fprintln(w)
				inTurn = false
			}
			_, err := fmt.Fprintf(w, "You (voice): %s\n", ev.Transcript.Text)
			return err
		case ev.Text != nil:
			if !inTurn {
				fmt.Fprint(w, "Assistant: ")
				inTurn = true
			}
			_, err := fmt.Fprint(w, ev.Text.Text)
			return err
		case ev.ToolUse != nil:
			if inTurn {
				fmt.Fprintln(w)
				inTurn = false
			}
			_, err := fmt.Fprintf(w, "[tool] %s\n", ev.ToolUse.Name)
			return err
		case ev.Interrupted:
			if inTurn {
				fmt.Fprintln(w)
				inTurn = false
			}
			_, err := fmt.Fprintln(w, "[interrupted]")
			return err
		case ev.TurnDone:
			if inTurn {
				fmt.Fprintln(w)
				inTurn = false
			}
			return nil
		}
		return nil
	}
}
