// Command bidi-ws serves bidirectional voice conversations over WebSocket.
// Each connection to /ws/{model} gets its own model session; frames use a
// "type" field to distinguish audio, text and image input, and the server
// mirrors model output back with the matching output frame types.
package main

import (
	"context"
	"embed"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomdee2/samples/bidi"
	"github.com/tomdee2/samples/config"
	"github.com/tomdee2/samples/tools"
)

//go:embed index.html
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const systemPrompt = "You are a friendly voice assistant. Keep your answers " +
	"short and conversational, and use the tools you are given when they help."

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	flag.Parse()

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("could not read environment: %v", err)
	}
	availability := env.BidiAvailability()
	for model, ok := range availability {
		if ok {
			log.Printf("Model available: %s", model)
		} else {
			log.Printf("Model unavailable (missing credentials): %s", model)
		}
	}

	http.Handle("/", http.FileServer(http.FS(staticFiles)))
	http.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(availability); err != nil {
			log.Printf("could not write model list: %v", err)
		}
	})
	http.HandleFunc("/ws/", handleWS)

	fmt.Printf("Voice server running on http://localhost:%d (WebSocket at /ws/{model})\n", *port)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", *port), nil))
}

func handleWS(w http.ResponseWriter, r *http.Request) {
	modelName := strings.TrimPrefix(r.URL.Path, "/ws/")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}
	defer conn.Close()

	model, err := bidi.ModelFor(modelName)
	if err != nil {
		// 1003: the endpoint cannot serve this kind of data.
		msg := websocket.FormatCloseMessage(websocket.CloseUnsupportedData, err.Error())
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		return
	}

	log.Printf("Session started: model=%s remote=%s", modelName, r.RemoteAddr)
	defer log.Printf("Session ended: model=%s remote=%s", modelName, r.RemoteAddr)

	agent := &bidi.Agent{
		Model:        model,
		Tools:        []tools.Tool{&tools.CalculatorTool{}, &tools.CurrentTimeTool{}},
		SystemPrompt: systemPrompt,
	}

	source := bidi.JSONFrameSource(func(ctx context.Context) ([]byte, error) {
		_, data, err := conn.ReadMessage()
		return data, err
	})
	sink := bidi.JSONFrameSink(func(data []byte) error {
		return conn.WriteMessage(websocket.TextMessage, data)
	})

	if err := agent.Run(r.Context(), []bidi.InputSource{source}, []bidi.OutputSink{sink}); err != nil {
		log.Printf("Session error: %v", err)
	}
}
