package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskboard/internal/config"
	"taskboard/internal/exitcode"
)

func init() {
	Register(&InitCmd{})
}

// InitCmd writes config.yaml with default settings.
type InitCmd struct {
	apiURL string
	token  string
	mode   string
	force  bool
}

func (c *InitCmd) Name() string      { return "init" }
func (c *InitCmd) Aliases() []string { return nil }
func (c *InitCmd) Synopsis() string  { return "Write a default config file" }
func (c *InitCmd) Usage() string {
	return "taskboard init [--api-url <url>] [--token <token>] [--mode <mode>] [--force]"
}
func (c *InitCmd) NeedsBoard() bool { return false }

func (c *InitCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.apiURL, "api-url", "", "")
	fs.StringVar(&c.token, "token", "", "")
	fs.StringVar(&c.mode, "mode", "", "")
	fs.BoolVar(&c.force, "force", false, "")
}

func (c *InitCmd) Run(ctx context.Context, cfg *config.Config, _ *Session, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if cfg.HasSettings() && !c.force {
		fmt.Fprintf(errOut, "error: %s already exists (use --force to overwrite)\n", cfg.SettingsPath())
		return exitcode.UserError
	}

	// Start from defaults so environment overrides are not persisted.
	s := config.DefaultSettings()
	if c.apiURL != "" {
		s.APIURL = c.apiURL
	}
	if c.token != "" {
		s.Token = c.token
	}
	if c.mode != "" {
		s.Mode = c.mode
	}
	if err := s.Validate(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	cfg.Settings = s
	if err := cfg.Save(); err != nil {
		fmt.Fprintf(errOut, "error: failed to write config: %v\n", err)
		return exitcode.ConfigError
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "wrote %s\n", cfg.SettingsPath())
	}
	return exitcode.Success
}
