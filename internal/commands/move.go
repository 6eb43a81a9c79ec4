package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/reorder"
	"taskboard/internal/task"
)

func init() {
	Register(&MoveCmd{})
}

// MoveCmd implements the move command: a drop onto a column's empty area
// (--column) or onto another task (--onto).
type MoveCmd struct {
	column string
	onto   string
}

func (c *MoveCmd) Name() string      { return "move" }
func (c *MoveCmd) Aliases() []string { return []string{"mv"} }
func (c *MoveCmd) Synopsis() string  { return "Move a task to a column or onto another task" }
func (c *MoveCmd) Usage() string {
	return "taskboard move (--column <column> | --onto <id>) <id>"
}
func (c *MoveCmd) NeedsBoard() bool { return true }

func (c *MoveCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.column, "column", "", "")
	fs.StringVar(&c.column, "c", "", "")
	fs.StringVar(&c.onto, "onto", "", "")
}

func (c *MoveCmd) Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int {
	id, err := ParseTaskID(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	var target reorder.DropTarget
	switch {
	case c.column != "" && c.onto != "":
		fmt.Fprintln(errOut, "error: cannot use both --column and --onto")
		return exitcode.UserError
	case c.column != "":
		col, err := task.ParseColumn(c.column)
		if err != nil {
			fmt.Fprintf(errOut, "error: unknown column: %s\n", c.column)
			return exitcode.UserError
		}
		target = reorder.ColumnArea{Column: col}
	case c.onto != "":
		over, err := parseID(c.onto)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		if _, err := lookupTask(sess, over); err != nil {
			return report(errOut, err)
		}
		target = reorder.SiblingTask{ID: over}
	default:
		fmt.Fprintln(errOut, "error: destination required (use --column or --onto)")
		return exitcode.UserError
	}

	if _, err := lookupTask(sess, id); err != nil {
		return report(errOut, err)
	}

	m := sess.Engine.Reorder(ctx, id, target)
	if code := await(ctx, m, errOut); code != exitcode.Success {
		return code
	}
	if !cfg.Quiet {
		if m.Noop() {
			fmt.Fprintln(out, "nothing to move")
		} else {
			fmt.Fprintln(out, "ok")
		}
	}
	return exitcode.Success
}
