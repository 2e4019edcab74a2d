// Command research runs a deep research assistant: a Bedrock-hosted model
// with Exa web search and content retrieval tools. Pass a question as the
// argument, use -i for an interactive session, or run with no arguments for
// a demo query.
package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomdee2/samples/agent"
	"github.com/tomdee2/samples/agent/terminal"
	"github.com/tomdee2/samples/config"
	"github.com/tomdee2/samples/llm"
	"github.com/tomdee2/samples/session"
	"github.com/tomdee2/samples/tools"
	"github.com/tomdee2/samples/tools/exa"
)

//go:embed research_assistant.prompt
var systemPrompt string

const (
	defaultModelID = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"
	defaultRegion  = "us-west-2"
	demoQuery      = "What are the latest developments in battery technology for electric vehicles?"
	// recencyWindow bounds search results to recent publications.
	recencyWindow = 30 * 24 * time.Hour
)

func main() {
	interactive := flag.Bool("i", false, "interactive session instead of a single query")
	modelID := flag.String("model", defaultModelID, "Bedrock model id")
	region := flag.String("region", defaultRegion, "AWS region")
	flag.Parse()

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("could not read environment: %v", err)
	}
	if !env.HasAWS() {
		fmt.Println("Warning: no AWS credentials found; Bedrock calls will fail.")
	}
	if env.ExaAPIKey == "" {
		log.Fatal("EXA_API_KEY is not set; the research tools need it")
	}

	ctx := context.Background()
	client, err := llm.NewBedrockClient(ctx, *modelID, *region)
	if err != nil {
		log.Fatalf("could not create Bedrock client: %v", err)
	}

	exaClient, err := exa.NewClient(env.ExaAPIKey)
	if err != nil {
		log.Fatal(err)
	}

	sess, err := session.New("research-" + uuid.New().String())
	if err != nil {
		log.Fatalf("could not create session: %v", err)
	}

	startDate := time.Now().Add(-recencyWindow).Format("2006-01-02")
	prompt := fmt.Sprintf("%s\nToday's date is %s. Use start_published_date=%s when searching.",
		systemPrompt, time.Now().Format("2006-01-02"), startDate)
	sess.AddMessage(session.Message{Role: "system", Content: prompt})

	a := &agent.Agent{
		Session: sess,
		Client:  client,
		AvailableTools: []tools.Tool{
			&exa.SearchTool{Client: exaClient},
			&exa.GetContentsTool{Client: exaClient},
			&tools.CurrentTimeTool{},
		},
		Mode:      agent.ModeAuto,
		Verbosity: agent.ToolVerbosityInfo,
	}

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))

	term := terminal.New(a)
	term.Label = "Researcher"
	term.Stream = true

	if *interactive {
		if err := term.Run(ctx, query); err != nil {
			log.Fatalf("session failed: %v", err)
		}
		return
	}

	if query == "" {
		query = demoQuery
		fmt.Printf("No question given; running the demo query:\n  %s\n\n", query)
	}
	if err := term.ProcessOnce(ctx, query); err != nil {
		log.Fatalf("research failed: %v", err)
	}
}
