package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/exitcode"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Only the flags given are changed.
type EditCmd struct {
	title       *string
	description *string
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task's title or description" }
func (c *EditCmd) Usage() string {
	return "taskboard edit [--title <text>] [--description <text>] <id>"
}
func (c *EditCmd) NeedsBoard() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title, c.description = nil, nil
	setTitle := func(s string) error { c.title = &s; return nil }
	setDesc := func(s string) error { c.description = &s; return nil }
	fs.Func("title", "", setTitle)
	fs.Func("t", "", setTitle)
	fs.Func("description", "", setDesc)
	fs.Func("d", "", setDesc)
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int {
	id, err := ParseTaskID(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if c.title == nil && c.description == nil {
		fmt.Fprintln(errOut, "error: nothing to change (use --title or --description)")
		return exitcode.UserError
	}
	if _, err := lookupTask(sess, id); err != nil {
		return report(errOut, err)
	}

	sess.State.OpenEdit(id)
	modal := sess.State.Modal()
	form := board.Prefill(modal, sess.Engine.Tasks())
	if c.title != nil {
		form.Title = *c.title
	}
	if c.description != nil {
		form.Description = *c.description
	}

	m, err := board.Submit(ctx, sess.Engine, modal, form)
	if err != nil {
		return report(errOut, err)
	}
	if code := await(ctx, m, errOut); code != exitcode.Success {
		return code
	}
	sess.State.Close()

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
