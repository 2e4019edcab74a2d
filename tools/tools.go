package tools

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tomdee2/samples/config"
	"github.com/tomdee2/samples/tools/mcp"
)

// Tool defines the interface for any action the agent can take. Schema
// returns the JSON schema of the tool's arguments so model providers can
// advertise typed parameters.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry holds all available tools, including those discovered from
// configured MCP servers.
type Registry struct {
	tools      map[string]Tool
	mcpClients map[string]*mcp.Client
}

// NewRegistry builds a registry with the built-in tools registered and MCP
// servers from the configuration started and queried for theirs.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		tools:      make(map[string]Tool),
		mcpClients: make(map[string]*mcp.Client),
	}

	r.Register(&CalculatorTool{})
	r.Register(&CurrentTimeTool{})
	r.Register(&ReadFileTool{fsAccess: &cfg.FilesystemAccess})
	r.Register(&WriteFileTool{fsAccess: &cfg.FilesystemAccess})
	r.Register(&ShellTool{allowedCommands: cfg.AllowedCommands})

	store := NewAppointmentStore("")
	r.Register(&CreateAppointmentTool{store: store})
	r.Register(&ListAppointmentsTool{store: store})
	r.Register(&UpdateAppointmentTool{store: store})

	for _, srv := range cfg.MCPServers {
		client, err := mcp.NewClient(srv.Name, srv.Command, srv.Args)
		if err != nil {
			fmt.Printf("Warning: could not start MCP server '%s': %v\n", srv.Name, err)
			continue
		}
		r.mcpClients[srv.Name] = client
		for _, t := range client.Tools() {
			r.Register(t)
		}
	}

	return r
}

// Register adds a tool, replacing any previous tool of the same name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Close stops any MCP server subprocesses the registry started.
func (r *Registry) Close() {
	for _, c := range r.mcpClients {
		if err := c.Stop(); err != nil {
			fmt.Printf("Warning: could not stop MCP server '%s': %v\n", c.Name, err)
		}
	}
}

// ActiveTools returns the tool instances selected by a toolset. An entry
// containing '*' is a glob over registered tool names, which is how a
// toolset pulls in everything an MCP server exposes (e.g. "gopls.*"); a
// wildcard matching nothing is not an error, since the server may simply be
// unavailable.
func (r *Registry) ActiveTools(ts *config.Toolset) ([]Tool, error) {
	var active []Tool
	for _, name := range ts.Tools {
		if strings.ContainsRune(name, '*') {
			for _, toolName := range r.sortedNames() {
				if match, _ := doublestar.Match(name, toolName); match {
					active = append(active, r.tools[toolName])
				}
			}
			continue
		}
		if t, ok := r.Get(name); ok {
			active = append(active, t)
			continue
		}
		return nil, fmt.Errorf("tool '%s' from toolset '%s' is not registered", name, ts.Name)
	}
	return active, nil
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isPathRestricted checks whether a path matches any of the glob patterns.
func isPathRestricted(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return false, fmt.Errorf("invalid glob pattern '%s': %w", pattern, err)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// isCommandAllowed checks a command against the allowlist, treating each
// entry as a regular expression with literal fallback.
func isCommandAllowed(command string, allowed []string) (bool, error) {
	if len(strings.Fields(command)) == 0 {
		return false, nil
	}

	for _, pattern := range allowed {
		re, err := regexp.Compile(pattern)
		if err != nil {
			if command == pattern {
				return true, nil
			}
			continue
		}
		if re.MatchString(command) {
			return true, nil
		}
	}
	return false, nil
}

// stringArg extracts a required string argument.
func stringArg(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok
}
