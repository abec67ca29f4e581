package command

import (
	"fmt"
	"strings"
)

// NewHelpCommand returns a basic help command for the router: without
// arguments it lists visible top-level commands, with a command path it shows
// that command's description and subcommands. Hidden commands are omitted
// from listings but still resolvable by exact path.
func NewHelpCommand(r *Router) *Command {
	return &Command{
		Name:        "help",
		Description: "Lists commands, or shows help for one command.",
		Usage:       "help [command path]",
		Run: func(ctx *Context) error {
			if len(ctx.Args) == 0 {
				var b strings.Builder
				b.WriteString("**Commands**\n")
				for _, cmd := range r.Commands() {
					if cmd.Hidden {
						continue
					}
					fmt.Fprintf(&b, "`%s%s` — %s\n", r.Prefix(), cmd.Name, cmd.Description)
				}
				_, err := ctx.Reply(b.String())
				return err
			}

			cmd := r.Find(strings.Join(ctx.Args, " "))
			if cmd == nil {
				_, err := ctx.Reply(fmt.Sprintf("No command called `%s`.", strings.Join(ctx.Args, " ")))
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "**%s**\n%s\n", cmd.QualifiedName(), cmd.Description)
			if cmd.Usage != "" {
				fmt.Fprintf(&b, "Usage: `%s`\n", cmd.Usage)
			}
			subs := cmd.Subcommands()
			if len(subs) > 0 {
				b.WriteString("Subcommands: ")
				names := make([]string, 0, len(subs))
				for _, sub := range subs {
					if sub.Hidden {
						continue
					}
					names = append(names, "`"+sub.Name+"`")
				}
				b.WriteString(strings.Join(names, ", "))
			}
			_, err := ctx.Reply(b.String())
			return err
		},
	}
}
