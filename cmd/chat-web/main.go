// Command chat-web serves a streaming chat UI over HTTP. Each WebSocket
// connection gets its own agent and session; while a turn streams, the
// server mirrors the relay buffer to the browser after every change, so the
// page shows text, reasoning and tool activity as distinct blocks in the
// order they happened.
package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tomdee2/samples/agent"
	"github.com/tomdee2/samples/config"
	"github.com/tomdee2/samples/llm"
	"github.com/tomdee2/samples/relay"
	"github.com/tomdee2/samples/session"
)

//go:embed index.html
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	port := flag.Int("port", 8501, "port to listen on")
	provider := flag.String("provider", "", "model provider override (bedrock, anthropic, openai, gemini)")
	model := flag.String("model", "", "model id override")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load configuration: %v", err)
	}
	if *provider != "" {
		cfg.Provider = *provider
	}
	if *model != "" {
		cfg.Model = *model
	}
	if cfg.Provider == "" {
		cfg.Provider = "bedrock"
	}
	if _, err := cfg.GetToolset(""); err != nil {
		cfg.Toolsets = append(cfg.Toolsets, config.Toolset{
			Name:  "default",
			Tools: []string{"calculator", "current_time", "create_appointment", "list_appointments", "update_appointment"},
		})
	}

	client, err := llm.NewClientForProvider(context.Background(), cfg.Provider, cfg.Model, cfg.Region)
	if err != nil {
		log.Fatalf("could not create model client: %v", err)
	}

	http.Handle("/", http.FileServer(http.FS(staticFiles)))
	http.HandleFunc("/ws", handleWS(cfg, client))

	fmt.Printf("Chat UI running on http://localhost:%d\n", *port)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", *port), nil))
}

// clientFrame is what the browser sends: one user message per turn.
type clientFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func handleWS(cfg *config.Config, client llm.Client) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("Upgrade error:", err)
			return
		}
		defer conn.Close()

		sess, err := session.New("web-" + uuid.New().String())
		if err != nil {
			log.Println("Session error:", err)
			return
		}
		a, err := agent.New(cfg, sess, "", agent.ModeAuto, client, agent.ToolVerbosityNone)
		if err != nil {
			log.Println("Agent error:", err)
			return
		}

		for {
			var frame clientFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			if frame.Type != "user_message" || frame.Text == "" {
				continue
			}
			if err := runTurn(r.Context(), a, conn, frame.Text); err != nil {
				_ = conn.WriteJSON(map[string]string{"type": "error", "message": err.Error()})
			}
			if err := conn.WriteJSON(map[string]string{"type": "turn_complete"}); err != nil {
				return
			}
		}
	}
}

// runTurn processes one user message, mirroring the relay buffer to the
// browser after every change.
func runTurn(ctx context.Context, a *agent.Agent, conn *websocket.Conn, text string) error {
	buffer := relay.New()
	buffer.OnChange(func(entries []relay.Entry) {
		_ = conn.WriteJSON(map[string]interface{}{"type": "entries", "entries": entries})
	})

	streamed := false
	callbacks := agent.ProcessCallbacks{
		OnStreamEvent: func(event llm.StreamEvent) {
			streamed = true
			buffer.Append(event)
		},
		OnAssistantMessage: func(message string) {
			// Non-streaming clients land here with the whole message at once.
			if !streamed {
				buffer.Append(llm.StreamEvent{Data: message})
			}
		},
		OnWarning: func(warning string) {
			log.Printf("Warning: %s", warning)
		},
	}

	return a.ProcessUserInput(ctx, text, callbacks)
}
