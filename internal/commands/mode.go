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
	Register(&ModeCmd{})
}

// ModeCmd prints which store the board talks to.
type ModeCmd struct{}

func (c *ModeCmd) Name() string      { return "mode" }
func (c *ModeCmd) Aliases() []string { return nil }
func (c *ModeCmd) Synopsis() string  { return "Print network or fallback" }
func (c *ModeCmd) Usage() string     { return "taskboard mode" }
func (c *ModeCmd) NeedsBoard() bool  { return true }

func (c *ModeCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ModeCmd) Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int {
	fmt.Fprintln(out, sess.Mode.String())
	return exitcode.Success
}
