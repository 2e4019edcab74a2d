package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/tomdee2/samples/errors"
	"github.com/tomdee2/samples/session"
	"github.com/tomdee2/samples/tools"
)

const defaultMaxTokens = 16384

// BedrockClient talks to Anthropic models hosted on Amazon Bedrock.
type BedrockClient struct {
	client    *bedrockruntime.Client
	modelID   string
	maxTokens int
}

// NewBedrockClient creates a BedrockClient. AWS credentials must be
// configured in the environment; region selects the Bedrock endpoint and
// falls back to AWS_REGION / us-west-2.
func NewBedrockClient(ctx context.Context, modelID, region string) (*BedrockClient, error) {
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-west-2"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}

	return &BedrockClient{
		client:    bedrockruntime.NewFromConfig(cfg),
		modelID:   modelID,
		maxTokens: defaultMaxTokens,
	}, nil
}

// Chat sends a single non-streaming request.
func (b *BedrockClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	body, err := buildAnthropicRequest(messages, availableTools, b.maxTokens)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to invoke Bedrock model")
	}

	return parseAnthropicResponse(resp.Body)
}

// ChatStream sends a streaming request, invoking onEvent for each text,
// reasoning and tool-use fragment in arrival order.
func (b *BedrockClient) ChatStream(ctx context.Context, messages []session.Message, availableTools []tools.Tool, onEvent func(StreamEvent)) (*session.Message, error) {
	body, err := buildAnthropicRequest(messages, availableTools, b.maxTokens)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to start Bedrock response stream")
	}

	stream := resp.GetStream()
	defer stream.Close()

	asm := newAnthropicStreamAssembler(onEvent)
	for event := range stream.Events() {
		chunk, ok := event.(*types.ResponseStreamMemberChunk)
		if !ok {
			continue
		}
		if err := asm.feed(chunk.Value.Bytes); err != nil {
			return nil, err
		}
	}
	if err := stream.Err(); err != nil {
		return nil, errors.Wrapf(err, "Bedrock response stream failed")
	}

	return asm.message(), nil
}

// buildAnthropicRequest assembles the Anthropic-on-Bedrock request body from
// the conversation and the advertised tools.
func buildAnthropicRequest(messages []session.Message, availableTools []tools.Tool, maxTokens int) ([]byte, error) {
	var apiMessages []map[string]interface{}
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemPrompt = msg.Content
		case "user":
			apiMessages = append(apiMessages, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": msg.Content},
				},
			})
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				var blocks []map[string]interface{}
				if msg.Content != "" {
					blocks = append(blocks, map[string]interface{}{"type": "text", "text": msg.Content})
				}
				for _, tc := range msg.ToolCalls {
					blocks = append(blocks, map[string]interface{}{
						"type":  "tool_use",
						"id":    tc.ToolCallID,
						"name":  tc.Name,
						"input": tc.Args,
					})
				}
				apiMessages = append(apiMessages, map[string]interface{}{
					"role":    "assistant",
					"content": blocks,
				})
			} else if msg.Content != "" {
				apiMessages = append(apiMessages, map[string]interface{}{
					"role": "assistant",
					"content": []map[string]interface{}{
						{"type": "text", "text": msg.Content},
					},
				})
			}
		case "tool":
			if len(msg.ToolCalls) > 0 {
				apiMessages = append(apiMessages, map[string]interface{}{
					"role": "user",
					"content": []map[string]interface{}{
						{
							"type":        "tool_result",
							"tool_use_id": msg.ToolCalls[0].ToolCallID,
							"content":     msg.Content,
						},
					},
				})
			}
		}
	}

	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"messages":          apiMessages,
	}
	if systemPrompt != "" {
		request["system"] = systemPrompt
	}
	if len(availableTools) > 0 {
		var toolSpecs []map[string]interface{}
		for _, t := range availableTools {
			toolSpecs = append(toolSpecs, map[string]interface{}{
				"name":         t.Name(),
				"description":  t.Description(),
				"input_schema": t.Schema(),
			})
		}
		request["tools"] = toolSpecs
	}

	return json.Marshal(request)
}

// parseAnthropicResponse converts a non-streaming Bedrock response body into
// a session message.
func parseAnthropicResponse(body []byte) (*session.Message, error) {
	var response struct {
		Error   interface{} `json:"error"`
		Content []struct {
			Type  string          `json:"type"`
			Text  string          `json:"text"`
			ID    string          `json:"id"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal Bedrock response")
	}
	if response.Error != nil {
		return nil, errors.New("Bedrock API error: %v", response.Error)
	}

	msg := &session.Message{Role: "assistant"}
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			msg.Content += block.Text
		case "tool_use":
			var args map[string]interface{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return nil, errors.Wrapf(err, "failed to unmarshal tool input for '%s'", block.Name)
				}
			}
			msg.ToolCalls = append(msg.ToolCalls, session.ToolCall{
				ToolCallID: block.ID,
				Name:       block.Name,
				Args:       args,
			})
		}
	}
	return msg, nil
}

// anthropicStreamAssembler folds the chunked streaming events back into a
// complete assistant message while forwarding deltas to the caller.
type anthropicStreamAssembler struct {
	onEvent func(StreamEvent)

	text      string
	toolCalls []session.ToolCall

	// Per content block state, keyed by the block index.
	blockType map[int]string
	toolID    map[int]string
	toolName  map[int]string
	toolInput map[int]string
}

func newAnthropicStreamAssembler(onEvent func(StreamEvent)) *anthropicStreamAssembler {
	if onEvent == nil {
		onEvent = func(StreamEvent) {}
	}
	return &anthropicStreamAssembler{
		onEvent:   onEvent,
		blockType: make(map[int]string),
		toolID:    make(map[int]string),
		toolName:  make(map[int]string),
		toolInput: make(map[int]string),
	}
}

func (a *anthropicStreamAssembler) feed(chunk []byte) error {
	var event struct {
		Type         string `json:"type"`
		Index        int    `json:"index"`
		ContentBlock struct {
			Type string `json:"type"`
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"content_block"`
		Delta struct {
			Type        string `json:"type"`
			Text        string `json:"text"`
			Thinking    string `json:"thinking"`
			PartialJSON string `json:"partial_json"`
		} `json:"delta"`
	}
	if err := json.Unmarshal(chunk, &event); err != nil {
		return errors.Wrapf(err, "failed to parse stream chunk")
	}

	switch event.Type {
	case "content_block_start":
		a.blockType[event.Index] = event.ContentBlock.Type
		if event.ContentBlock.Type == "tool_use" {
			a.toolID[event.Index] = event.ContentBlock.ID
			a.toolName[event.Index] = event.ContentBlock.Name
			a.onEvent(StreamEvent{ToolUse: &ToolUseEvent{
				ToolUseID: event.ContentBlock.ID,
				Name:      event.ContentBlock.Name,
			}})
		}
	case "content_block_delta":
		switch event.Delta.Type {
		case "text_delta":
			a.text += event.Delta.Text
			a.onEvent(StreamEvent{Data: event.Delta.Text})
		case "thinking_delta":
			a.onEvent(StreamEvent{Reasoning: event.Delta.Thinking})
		case "input_json_delta":
			a.toolInput[event.Index] += event.Delta.PartialJSON
			a.onEvent(StreamEvent{ToolUse: &ToolUseEvent{
				ToolUseID:    a.toolID[event.Index],
				Name:         a.toolName[event.Index],
				PartialInput: a.toolInput[event.Index],
			}})
		}
	case "content_block_stop":
		if a.blockType[event.Index] != "tool_use" {
			return nil
		}
		args := map[string]interface{}{}
		if input := a.toolInput[event.Index]; input != "" {
			if err := json.Unmarshal([]byte(input), &args); err != nil {
				return errors.Wrapf(err, "failed to parse tool input for '%s'", a.toolName[event.Index])
			}
		}
		a.toolCalls = append(a.toolCalls, session.ToolCall{
			ToolCallID: a.toolID[event.Index],
			Name:       a.toolName[event.Index],
			Args:       args,
		})
	}
	return nil
}

func (a *anthropicStreamAssembler) message() *session.Message {
	return &session.Message{
		Role:      "assistant",
		Content:   a.text,
		ToolCalls: a.toolCalls,
	}
}
