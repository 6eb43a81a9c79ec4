package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/engine"
	"taskboard/internal/exitcode"
	"taskboard/internal/output"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `taskboard` (no args) and `taskboard list --search <q>`.
type ListCmd struct {
	search string
	fuzzy  bool
	long   bool
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "Show the board" }
func (c *ListCmd) Usage() string {
	return "taskboard list [--search <query>] [--fuzzy] [--long]"
}
func (c *ListCmd) NeedsBoard() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.search, "s", "", "")
	fs.BoolVar(&c.fuzzy, "fuzzy", false, "")
	fs.BoolVar(&c.long, "long", false, "")
	fs.BoolVar(&c.long, "l", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	v := sess.Engine.View()
	if v.Status == engine.QueryError {
		return report(errOut, v.Err)
	}

	sess.State.SetSearch(c.search)
	query := sess.State.Search()
	tasks := board.Filter(v.Tasks, query, c.fuzzy || cfg.Settings.FuzzySearch)

	if len(tasks) == 0 {
		if !cfg.Quiet {
			if strings.TrimSpace(query) != "" {
				fmt.Fprintf(out, "no tasks match %q\n", query)
			} else {
				fmt.Fprintln(out, "no tasks found")
			}
		}
		return exitcode.Success
	}

	output.FormatBoard(out, board.GroupByColumn(tasks), c.long)
	return exitcode.Success
}
