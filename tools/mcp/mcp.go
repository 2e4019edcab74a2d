// Package mcp bridges tools served by external MCP server subprocesses into
// the agent's tool registry.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tomdee2/samples/errors"
)

// Client manages the connection to a single MCP server subprocess and the
// tools it advertises.
type Client struct {
	Name  string
	cmd   *exec.Cmd
	conn  *mcpsdk.ClientSession
	tools []*Tool
}

// NewClient starts the MCP server subprocess, connects, and discovers its
// tools.
func NewClient(name, command string, args []string) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "samples-mcp-client", Version: "v1.0.0"}, nil)
	ctx := context.Background()
	conn, err := mcpClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		cmd.Process.Kill()
		return nil, errors.Wrapf(err, "failed to connect to MCP server '%s'", name)
	}

	client := &Client{Name: name, cmd: cmd, conn: conn}

	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			cmd.Process.Kill()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server '%s'", name)
		}
		for _, t := range list.Tools {
			client.tools = append(client.tools, &Tool{
				serverName:  name,
				toolName:    t.Name,
				description: t.Description,
				schema:      schemaToMap(t.InputSchema),
				client:      client,
			})
		}
		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}

	fmt.Printf("Initialized MCP client for '%s' with %d tools\n", name, len(client.tools))
	return client, nil
}

// Tools returns the tools discovered from this server.
func (c *Client) Tools() []*Tool {
	return c.tools
}

// Stop terminates the MCP server subprocess.
func (c *Client) Stop() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}

// schemaToMap converts the SDK's schema representation into the generic map
// form the rest of the tool layer uses.
func schemaToMap(schema any) map[string]interface{} {
	fallback := map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	if schema == nil {
		return fallback
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return fallback
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return fallback
	}
	return m
}

// Tool is a tool served by an external MCP server. It satisfies the parent
// tools.Tool interface.
type Tool struct {
	serverName  string
	toolName    string
	description string
	schema      map[string]interface{}
	client      *Client
}

func (t *Tool) Name() string        { return t.toolName }
func (t *Tool) Description() string { return t.description }

func (t *Tool) Schema() map[string]interface{} { return t.schema }

// Execute forwards the call to the MCP server and concatenates any text
// content in the result.
func (t *Tool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	result, err := t.client.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.toolName,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call tool '%s' on MCP server '%s'", t.toolName, t.serverName)
	}

	out := ""
	for _, c := range result.Content {
		if text, ok := c.(*mcpsdk.TextContent); ok {
			out += text.Text
		}
	}
	return out, nil
}
