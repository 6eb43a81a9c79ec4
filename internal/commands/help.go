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
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "taskboard help" }
func (c *HelpCmd) NeedsBoard() bool  { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, _ *Session, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  taskboard                                          Show the board
  taskboard list [common flags] [--search <query>] [--fuzzy] [--long]
  taskboard add [common flags] [--column <column>] [--description <text>] <title...>
  taskboard edit [common flags] [--title <text>] [--description <text>] <id>
  taskboard rm [common flags] <id>
  taskboard move [common flags] (--column <column> | --onto <id>) <id>
  taskboard mode [common flags]
  taskboard serve [common flags] [--addr <host:port>] [--empty]
  taskboard init [common flags] [--api-url <url>] [--token <token>] [--mode <mode>] [--force]
  taskboard help
  taskboard version

Columns:
  backlog, in_progress, review, done

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
