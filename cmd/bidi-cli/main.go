// Command bidi-cli runs a text conversation against a bidirectional model
// from the terminal. It exercises the same session machinery as the
// WebSocket server, which makes it a quick connectivity check for Nova Sonic
// and friends without a browser or microphone.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tomdee2/samples/bidi"
	"github.com/tomdee2/samples/config"
	"github.com/tomdee2/samples/tools"
)

const systemPrompt = "You are a friendly assistant. Keep your answers short " +
	"and use the calculator tool for any arithmetic."

func main() {
	modelName := flag.String("model", "novasonic", "bidirectional model: novasonic, gemini or openai")
	flag.Parse()

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("could not read environment: %v", err)
	}
	if ok := env.BidiAvailability()[*modelName]; !ok {
		fmt.Printf("Warning: credentials for '%s' were not found; the connection will likely fail.\n", *modelName)
	}

	model, err := bidi.ModelFor(*modelName)
	if err != nil {
		log.Fatal(err)
	}

	agent := &bidi.Agent{
		Model:        model,
		Tools:        []tools.Tool{&tools.CalculatorTool{}, &tools.CurrentTimeTool{}},
		SystemPrompt: systemPrompt,
	}

	fmt.Printf("Connected to %s. Try: 'What is 25 times 8?' (type 'quit' to leave)\n", *modelName)

	err = agent.Run(context.Background(),
		[]bidi.InputSource{bidi.ReaderTextSource(os.Stdin)},
		[]bidi.OutputSink{bidi.WriterTextSink(os.Stdout)},
	)
	if err != nil && err != context.Canceled {
		log.Fatalf("session failed: %v", err)
	}
	fmt.Println("Goodbye!")
}
