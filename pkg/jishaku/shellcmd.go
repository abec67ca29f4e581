package jishaku

import (
	"fmt"
	"strings"

	"github.com/Minion3665/jishaku/pkg/codeblocks"
	"github.com/Minion3665/jishaku/pkg/command"
	"github.com/Minion3665/jishaku/pkg/paginator"
	"github.com/Minion3665/jishaku/pkg/shell"
)

// shellCommand runs a command under the configured shell, streaming output
// into a live paginator as it arrives.
func (c *Cog) shellCommand(ctx *command.Context) error {
	block := codeblocks.Parse(ctx.RawArgs)
	if strings.TrimSpace(block.Content) == "" {
		_, err := ctx.Reply("What do you want to run?")
		return err
	}
	return c.streamShell(ctx, block.Content)
}

// gitCommand is sugar for "jsk sh git ...".
func (c *Cog) gitCommand(ctx *command.Context) error {
	args := strings.TrimSpace(ctx.RawArgs)
	if args == "" {
		_, err := ctx.Reply("What do you want git to do?")
		return err
	}
	return c.streamShell(ctx, "git "+args)
}

func (c *Cog) streamShell(ctx *command.Context, cmdline string) error {
	reader, err := shell.Run(ctx.Ctx(), c.cfg.ShellPath(), cmdline)
	if err != nil {
		return err
	}
	defer reader.Close()

	p := paginator.New("```sh", "```", paginator.DefaultMaxSize)
	for _, line := range strings.Split(cmdline, "\n") {
		p.AddLine("$ " + line)
	}

	iface := paginator.NewInterface(ctx.Session, p, ctx.Author().ID)
	if err := iface.SendTo(ctx.Ctx(), ctx.ChannelID()); err != nil {
		return err
	}

	for line := range reader.Lines() {
		// Closing the paginator kills the process; drain what remains so the
		// reader can finish.
		if iface.Closed() {
			reader.Close()
			continue
		}
		iface.AddLine(line)
	}

	if !iface.Closed() {
		iface.AddLine("")
		iface.AddLine(fmt.Sprintf("[status] Return code %d", reader.ExitCode()))
	}
	return nil
}
