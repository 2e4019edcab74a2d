package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tomdee2/samples/errors"
)

// FilesystemAccess restricts what the file tools may touch.
type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

// MCPServer describes an external MCP server subprocess whose tools should be
// made available to the agent.
type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Toolset is a named selection of tools an agent may use.
type Toolset struct {
	Name  string   `yaml:"name"`
	Tools []string `yaml:"tools"`
}

// Config is the file-based configuration shared by all sample programs.
type Config struct {
	Provider         string           `yaml:"provider"` // bedrock, anthropic, openai, gemini
	Model            string           `yaml:"model"`
	Region           string           `yaml:"region"`
	SystemPromptFile string           `yaml:"system_prompt_file"`
	Toolsets         []Toolset        `yaml:"toolsets"`
	MCPServers       []MCPServer      `yaml:"mcp_servers"`
	AllowedCommands  []string         `yaml:"allowed_commands"`
	FilesystemAccess FilesystemAccess `yaml:"filesystem_access"`
}

const configDir = ".strands"

// Load reads configuration from the user's home directory and the current
// working directory, with the latter taking precedence.
func Load() (*Config, error) {
	cfg := &Config{}

	// The config directory itself is never exposed to file tools.
	cfg.FilesystemAccess.Hidden = append(cfg.FilesystemAccess.Hidden, configDir, configDir+"/**")

	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, configDir, "config.yaml")
		if _, err := os.Stat(userPath); err == nil {
			if err := loadFromFile(userPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectPath := filepath.Join(wd, configDir, "config.yaml")
	if _, err := os.Stat(projectPath); err == nil {
		if err := loadFromFile(projectPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, giving a simple merge
	// where project-level values replace user-level ones.
	return yaml.Unmarshal(data, cfg)
}

// GetToolset finds a toolset by name. An empty name selects "default".
func (c *Config) GetToolset(name string) (*Toolset, error) {
	if name == "" {
		name = "default"
	}
	for i := range c.Toolsets {
		if c.Toolsets[i].Name == name {
			return &c.Toolsets[i], nil
		}
	}
	if name == "default" {
		return nil, errors.New("mandatory 'default' toolset not found in configuration")
	}
	return c.GetToolset("default")
}

// SystemPrompt reads the configured system prompt file, if any.
func (c *Config) SystemPrompt() (string, error) {
	if c.SystemPromptFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.SystemPromptFile)
	if err != nil {
		return "", errors.Wrapf(err, "could not read system prompt file %s", c.SystemPromptFile)
	}
	return string(data), nil
}
