package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/task"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	column      string
	description string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "taskboard add [--column <column>] [--description <text>] <title...>"
}
func (c *AddCmd) NeedsBoard() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.column, "column", string(task.Backlog), "")
	fs.StringVar(&c.column, "c", string(task.Backlog), "")
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int {
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}
	if _, err := task.ParseColumn(c.column); err != nil {
		fmt.Fprintf(errOut, "error: unknown column: %s\n", c.column)
		return exitcode.UserError
	}

	sess.State.OpenCreate(c.column)
	m, err := board.Submit(ctx, sess.Engine, sess.State.Modal(), board.Form{Title: title, Description: c.description})
	if err != nil {
		return report(errOut, err)
	}
	if code := await(ctx, m, errOut); code != exitcode.Success {
		return code
	}
	sess.State.Close()

	if !cfg.Quiet {
		created, _ := m.Result()
		fmt.Fprintf(out, "created %d\n", created.ID)
	}
	return exitcode.Success
}
