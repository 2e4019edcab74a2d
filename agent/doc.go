// Package agent contains the shared conversation loop used by every sample
// front-end in this repository.
//
// An Agent binds a model client, a session (the append-only conversation
// history) and a toolset, and runs the processing loop for a user turn:
// call the model, execute any tools it requests, feed the results back, and
// repeat until the model answers with text.
//
// Front-ends customize rendering through ProcessCallbacks rather than by
// subclassing: the terminal CLI prints to stdout, the WebSocket server
// forwards JSON frames, and the web chat demo appends to a relay buffer.
// When the model client implements llm.StreamingClient and the caller sets
// OnStreamEvent, partial output (text tokens, reasoning fragments, tool-use
// progress) is delivered in emission order while the turn runs.
//
// Two modes govern tool execution: ModeAuto runs requested tools
// immediately, ModePrompt defers to the front-end's ShouldExecuteTool
// callback first. ToolVerbosity is advisory and only affects what
// front-ends choose to display.
//
// The terminal subpackage implements the interactive CLI front-end.
package agent
