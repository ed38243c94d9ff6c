package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dusk-indust/pdfcompare/internal/config"
	"github.com/spf13/cobra"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// pdfcompareMCPEntry is the MCP server configuration for the pdfcompare binary.
var pdfcompareMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "pdfcompare",
  "args": ["serve-mcp"]
}`)

const configHeader = `# pdfcompare configuration. Every key can be overridden with a
# PDFCOMPARE_* environment variable (dots become underscores) or a flag.
`

func (a *app) initCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter pdfcompare.yml and register the MCP server in .mcp.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return a.runInit(dir, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files and entries")
	return cmd
}

// runInit writes the default configuration and MCP entry into dir.
func (a *app) runInit(dir string, force bool) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", abs, err)
	}

	if err := a.writeStarterConfig(filepath.Join(abs, "pdfcompare.yml"), abs, force); err != nil {
		return err
	}
	if err := a.mergeMCPConfig(filepath.Join(abs, ".mcp.json"), force); err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, "\nSetup complete. Run 'pdfcompare probe' to check the comparison engine.")
	return nil
}

func (a *app) writeStarterConfig(path, base string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(a.stdout, "  skipped %s (exists, use --force to overwrite)\n", dotRelative(base, path))
			return nil
		}
	}

	data, err := config.Defaults().YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(a.stdout, "  created %s\n", dotRelative(base, path))
	return nil
}

// mergeMCPConfig creates or merges the pdfcompare entry into .mcp.json.
func (a *app) mergeMCPConfig(mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["pdfcompare"]; exists && !force {
		fmt.Fprintln(a.stdout, "  skipped .mcp.json pdfcompare entry (exists, use --force to overwrite)")
		return nil
	}

	cfg.MCPServers["pdfcompare"] = pdfcompareMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(a.stdout, "  %s .mcp.json with pdfcompare MCP server\n", action)
	return nil
}

// dotRelative returns a display path relative to base, prefixed with "./".
func dotRelative(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return "./" + rel
}
