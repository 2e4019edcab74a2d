package agent

import (
	"context"

	"github.com/tomdee2/samples/config"
	"github.com/tomdee2/samples/errors"
	"github.com/tomdee2/samples/llm"
	"github.com/tomdee2/samples/session"
	"github.com/tomdee2/samples/tools"
)

// Mode selects how tool execution is authorized.
type Mode string

const (
	// ModeAuto executes requested tools without confirmation.
	ModeAuto Mode = "auto"
	// ModePrompt asks the front-end (via ShouldExecuteTool) before running
	// each tool.
	ModePrompt Mode = "prompt"
)

// ToolVerbosity controls how much tool detail front-ends display.
type ToolVerbosity string

const (
	ToolVerbosityNone ToolVerbosity = "none"
	ToolVerbosityInfo ToolVerbosity = "info"
	ToolVerbosityAll  ToolVerbosity = "all"
)

// ProcessCallbacks lets each interaction mode (terminal, WebSocket, web chat)
// decide how agent events are rendered. Nil callbacks are skipped.
type ProcessCallbacks struct {
	// OnAssistantMessage receives each complete assistant text response.
	OnAssistantMessage func(message string)
	// OnStreamEvent receives partial output as it arrives, when the model
	// client supports streaming. Events arrive in emission order.
	OnStreamEvent func(event llm.StreamEvent)
	// OnToolCall is invoked when the model requests a tool.
	OnToolCall func(toolCall session.ToolCall)
	// OnToolResult is invoked after a tool executed.
	OnToolResult func(toolCall session.ToolCall, result string)
	// ShouldExecuteTool gates tool execution in prompt mode.
	ShouldExecuteTool func(toolCall session.ToolCall) bool
	// OnWarning receives non-fatal conditions.
	OnWarning func(warning string)
}

func (cb *ProcessCallbacks) warn(msg string) {
	if cb.OnWarning != nil {
		cb.OnWarning(msg)
	}
}

// Agent ties a model client, a conversation session and a toolset together
// and runs the model → tool → model loop. One Agent serves one conversation;
// concurrent sessions each get their own Agent.
type Agent struct {
	Config         *config.Config
	Session        *session.Session
	Client         llm.Client
	AvailableTools []tools.Tool
	Mode           Mode
	Verbosity      ToolVerbosity
}

// New creates an agent using the named toolset from the configuration.
func New(cfg *config.Config, sess *session.Session, toolset string, mode Mode, client llm.Client, verbosity ToolVerbosity) (*Agent, error) {
	ts, err := cfg.GetToolset(toolset)
	if err != nil {
		return nil, err
	}

	registry := tools.NewRegistry(cfg)
	activeTools, err := registry.ActiveTools(ts)
	if err != nil {
		return nil, err
	}

	return &Agent{
		Config:         cfg,
		Session:        sess,
		Client:         client,
		AvailableTools: activeTools,
		Mode:           mode,
		Verbosity:      verbosity,
	}, nil
}

// maxToolRounds bounds the model → tool → model loop for a single user turn.
const maxToolRounds = 16

// ProcessUserInput runs one conversation turn: it appends the user message,
// calls the model, executes any requested tools, and repeats until the model
// answers with plain text.
func (a *Agent) ProcessUserInput(ctx context.Context, userInput string, callbacks ProcessCallbacks) error {
	a.Session.AddMessage(session.Message{Role: "user", Content: userInput})

	for round := 0; ; round++ {
		if round >= maxToolRounds {
			return errors.New("model requested tools %d times in a row; giving up on this turn", round)
		}

		response, err := a.chat(ctx, callbacks)
		if err != nil {
			return errors.Wrapf(err, "model chat failed")
		}

		a.Session.AddMessage(*response)

		if response.Content != "" && callbacks.OnAssistantMessage != nil {
			callbacks.OnAssistantMessage(response.Content)
		}

		if err := a.Session.Save(); err != nil {
			callbacks.warn("failed to save session: " + err.Error())
		}

		if len(response.ToolCalls) == 0 {
			return nil
		}

		for _, toolCall := range response.ToolCalls {
			if callbacks.OnToolCall != nil {
				callbacks.OnToolCall(toolCall)
			}
			result := a.executeTool(ctx, toolCall, callbacks)
			a.Session.AddMessage(session.Message{
				Role:      "tool",
				Content:   result,
				ToolCalls: []session.ToolCall{toolCall},
			})
		}
	}
}

// chat dispatches to the streaming path when both the client and the caller
// support it.
func (a *Agent) chat(ctx context.Context, callbacks ProcessCallbacks) (*session.Message, error) {
	if callbacks.OnStreamEvent != nil {
		if sc, ok := a.Client.(llm.StreamingClient); ok {
			return sc.ChatStream(ctx, a.Session.Messages, a.AvailableTools, callbacks.OnStreamEvent)
		}
	}
	return a.Client.Chat(ctx, a.Session.Messages, a.AvailableTools)
}

// executeTool runs one requested tool, honoring prompt mode. Tool failures
// are reported back to the model as text rather than aborting the turn.
func (a *Agent) executeTool(ctx context.Context, toolCall session.ToolCall, callbacks ProcessCallbacks) string {
	if a.Mode == ModePrompt && callbacks.ShouldExecuteTool != nil && !callbacks.ShouldExecuteTool(toolCall) {
		return "Tool execution was declined by the user."
	}

	var tool tools.Tool
	for _, t := range a.AvailableTools {
		if t.Name() == toolCall.Name {
			tool = t
			break
		}
	}
	if tool == nil {
		callbacks.warn("model requested unknown tool '" + toolCall.Name + "'")
		return "Error: tool '" + toolCall.Name + "' is not available."
	}

	result, err := tool.Execute(ctx, toolCall.Args)
	if err != nil {
		callbacks.warn("tool '" + toolCall.Name + "' failed: " + err.Error())
		result = "Error: " + err.Error()
	}
	if callbacks.OnToolResult != nil {
		callbacks.OnToolResult(toolCall, result)
	}
	return result
}
