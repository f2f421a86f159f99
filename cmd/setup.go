package cmd

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"gopkg.in/yaml.v3"
)

// SetupCmd writes MCP client configuration that launches
// `schemadoc serve` for the current project.
type SetupCmd struct {
	Claude   bool   `help:"Configure for Claude Code"`
	Cursor   bool   `help:"Configure for Cursor"`
	Qwen     bool   `help:"Configure for Qwen CLI"`
	Local    bool   `help:"Create project-local configuration"`
	Global   bool   `help:"Create global configuration"`
	Watch    bool   `default:"true" negatable:"" help:"Serve with --watch so the index follows source edits"`
	Format   string `help:"Output format (json|yaml)" enum:"json,yaml" default:"json"`
	FilePath string `help:"Custom directory for the configuration file" type:"path"`
}

// mcpClients maps client names to their configuration directory.
var mcpClients = []struct {
	name string
	dir  string
}{
	{"claude", ".claude"},
	{"cursor", ".cursor"},
	{"qwen", ".qwen"},
}

// Run executes the setup command.
func (c *SetupCmd) Run(g *Globals) error {
	cfg := c.serverConfig(g)

	selected := map[string]bool{"claude": c.Claude, "cursor": c.Cursor, "qwen": c.Qwen}
	if !c.Claude && !c.Cursor && !c.Qwen {
		data, err := encodeConfig(cfg, c.Format)
		if err != nil {
			return err
		}
		_, err = g.stdout().Write(data)
		return err
	}

	if !c.Local && !c.Global {
		c.Local = true
	}

	for _, client := range mcpClients {
		if !selected[client.name] {
			continue
		}
		var paths []string
		if c.Global {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("locating home directory: %w", err)
			}
			paths = append(paths, filepath.Join(home, client.dir, "global", c.fileName()))
		}
		if c.Local {
			dir := filepath.Join(g.Dir, client.dir)
			if c.FilePath != "" {
				dir = c.FilePath
			}
			paths = append(paths, filepath.Join(dir, c.fileName()))
		}
		for _, path := range paths {
			if err := writeClientConfig(path, cfg, c.Format); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(g.stdout(), "✓ Created %s MCP config at %s\n", client.name, path)
		}
	}
	return nil
}

func (c *SetupCmd) fileName() string {
	if c.Format == "yaml" {
		return "mcp.yaml"
	}
	return "mcp.json"
}

// mcpServerEntry is one server in an MCP client configuration.
type mcpServerEntry struct {
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args" yaml:"args"`
}

// mcpClientConfig is a client configuration file. Keys other than
// mcpServers are carried through untouched.
type mcpClientConfig struct {
	MCPServers map[string]mcpServerEntry `json:"mcpServers" yaml:"mcpServers"`
	Other      map[string]any            `json:",unknown" yaml:",inline"`
}

func (c *SetupCmd) serverConfig(g *Globals) mcpClientConfig {
	args := []string{"serve"}
	if c.Watch {
		args = append(args, "--watch")
	}
	if dir, err := filepath.Abs(g.Dir); err == nil {
		args = append(args, "--dir", dir)
	}
	if g.Config != "" {
		args = append(args, "--config", g.Config)
	}
	return mcpClientConfig{MCPServers: map[string]mcpServerEntry{
		"schemadoc": {Command: "schemadoc", Args: args},
	}}
}

func encodeConfig(cfg mcpClientConfig, format string) ([]byte, error) {
	switch format {
	case "yaml":
		return yaml.Marshal(cfg)
	case "json", "":
		data, err := json.Marshal(cfg, jsontext.WithIndent("  "), json.Deterministic(true))
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("invalid format: %s (must be json or yaml)", format)
	}
}

// writeClientConfig writes cfg to path, keeping servers other than
// schemadoc that are already configured there.
func writeClientConfig(path string, cfg mcpClientConfig, format string) error {
	cfg.MCPServers = maps.Clone(cfg.MCPServers)
	if existing, err := os.ReadFile(path); err == nil {
		var prev mcpClientConfig
		if format == "yaml" {
			err = yaml.Unmarshal(existing, &prev)
		} else {
			err = json.Unmarshal(existing, &prev)
		}
		if err != nil {
			return fmt.Errorf("parsing existing %s: %w", path, err)
		}
		cfg.Other = prev.Other
		for name, entry := range prev.MCPServers {
			if _, ok := cfg.MCPServers[name]; !ok {
				cfg.MCPServers[name] = entry
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	data, err := encodeConfig(cfg, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
