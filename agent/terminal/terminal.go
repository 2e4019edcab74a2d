// Package terminal implements the interactive command-line front-end for an
// agent: a read-prompt-render loop with optional streaming output.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tomdee2/samples/agent"
	"github.com/tomdee2/samples/llm"
	"github.com/tomdee2/samples/session"
)

// Terminal drives an agent from stdin/stdout.
type Terminal struct {
	agent *agent.Agent
	// Label prefixes assistant output, e.g. "Assistant".
	Label string
	// Stream selects token-by-token output when the model supports it.
	Stream bool
}

// New creates a Terminal for the given agent.
func New(a *agent.Agent) *Terminal {
	return &Terminal{agent: a, Label: "Assistant"}
}

// Run starts the interactive loop. An initial prompt, when non-empty, is
// processed before reading from stdin.
func (t *Terminal) Run(ctx context.Context, initialPrompt string) error {
	if initialPrompt != "" {
		if err := t.processTurn(ctx, initialPrompt); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}

		userInput := strings.TrimSpace(scanner.Text())
		if userInput == "" {
			continue
		}
		switch strings.ToLower(userInput) {
		case "/quit", "/exit", "quit", "exit", "bye", "q":
			fmt.Println("Goodbye!")
			return nil
		}

		if err := t.processTurn(ctx, userInput); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}

	return scanner.Err()
}

// ProcessOnce handles a single prompt without entering the interactive loop.
func (t *Terminal) ProcessOnce(ctx context.Context, userInput string) error {
	return t.processTurn(ctx, userInput)
}

func (t *Terminal) processTurn(ctx context.Context, userInput string) error {
	streamedAny := false

	callbacks := agent.ProcessCallbacks{
		OnAssistantMessage: func(message string) {
			if streamedAny {
				// The streamed tokens already printed the message body.
				fmt.Println()
				return
			}
			fmt.Printf("%s: %s\n", t.Label, message)
		},
		OnToolCall: func(toolCall session.ToolCall) {
			switch t.agent.Verbosity {
			case agent.ToolVerbosityAll:
				fmt.Printf("%s wants to call tool `%s` with args: %v\n", t.Label, toolCall.Name, toolCall.Args)
			case agent.ToolVerbosityInfo:
				fmt.Printf("%s wants to call tool `%s`\n", t.Label, toolCall.Name)
			}
		},
		OnToolResult: func(toolCall session.ToolCall, result string) {
			if t.agent.Verbosity == agent.ToolVerbosityAll {
				fmt.Printf("Tool `%s` output: %s\n", toolCall.Name, result)
			}
		},
		ShouldExecuteTool: func(toolCall session.ToolCall) bool {
			if t.agent.Mode != agent.ModePrompt {
				return true
			}
			fmt.Print("Do you want to allow this? (y/n): ")
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			return strings.TrimSpace(strings.ToLower(answer)) == "y"
		},
		OnWarning: func(warning string) {
			fmt.Printf("Warning: %s\n", warning)
		},
	}

	if t.Stream {
		callbacks.OnStreamEvent = func(event llm.StreamEvent) {
			if event.Data == "" {
				return
			}
			if !streamedAny {
				fmt.Printf("%s: ", t.Label)
				streamedAny = true
			}
			fmt.Print(event.Data)
		}
	}

	return t.agent.ProcessUserInput(ctx, userInput, callbacks)
}
