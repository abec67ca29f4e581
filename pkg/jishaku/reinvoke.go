package jishaku

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Minion3665/jishaku/pkg/command"
)

// suCommand reruns a command line as another user. Checks run against the
// target, so a command the target could not use still rejects.
func (c *Cog) suCommand(ctx *command.Context) error {
	if len(ctx.Args) < 2 {
		_, err := ctx.Reply("Expected a user and a command to run.")
		return err
	}

	target, err := c.resolveUser(ctx, ctx.Args[0])
	if err != nil {
		_, replyErr := ctx.Reply(err.Error())
		return replyErr
	}

	line := argTail(ctx.RawArgs, 1)
	cmd, err := c.router.Reinvoke(ctx.WithAuthor(target), line, false)
	if cmd == nil {
		_, replyErr := ctx.Reply(notFoundMessage(line))
		return replyErr
	}
	return err
}

// inCommand reruns a command line as if it were sent in another channel.
func (c *Cog) inCommand(ctx *command.Context) error {
	if len(ctx.Args) < 2 {
		_, err := ctx.Reply("Expected a channel and a command to run.")
		return err
	}

	channelID := strings.Trim(ctx.Args[0], "<#>")
	line := argTail(ctx.RawArgs, 1)
	cmd, err := c.router.Reinvoke(ctx.WithChannel(channelID), line, false)
	if cmd == nil {
		_, replyErr := ctx.Reply(notFoundMessage(line))
		return replyErr
	}
	return err
}

// sudoCommand reruns a command line with every check along the chain
// skipped.
func (c *Cog) sudoCommand(ctx *command.Context) error {
	line := strings.TrimSpace(ctx.RawArgs)
	if line == "" {
		_, err := ctx.Reply("What command do you want to run?")
		return err
	}

	cmd, err := c.router.Reinvoke(ctx, line, true)
	if cmd == nil {
		_, replyErr := ctx.Reply(notFoundMessage(line))
		return replyErr
	}
	return err
}

// repeatCommand reruns a command line several times in a row. The loop runs
// under the task registry, so jsk cancel can interrupt it.
func (c *Cog) repeatCommand(ctx *command.Context) error {
	if len(ctx.Args) < 2 {
		_, err := ctx.Reply("Expected a repeat count and a command to run.")
		return err
	}
	times, err := strconv.Atoi(ctx.Args[0])
	if err != nil || times < 1 {
		_, replyErr := ctx.Reply("Expected a positive repeat count.")
		return replyErr
	}

	line := argTail(ctx.RawArgs, 1)
	for i := 0; i < times; i++ {
		select {
		case <-ctx.Ctx().Done():
			return ctx.Ctx().Err()
		default:
		}

		cmd, err := c.router.Reinvoke(ctx, line, false)
		if cmd == nil {
			_, replyErr := ctx.Reply(notFoundMessage(line))
			return replyErr
		}
		if err != nil {
			return fmt.Errorf("repeat %d/%d: %w", i+1, times, err)
		}
	}
	return nil
}

// debugCommand reruns a command line, timing it and reporting failures
// instead of letting them bubble silently.
func (c *Cog) debugCommand(ctx *command.Context) error {
	line := strings.TrimSpace(ctx.RawArgs)
	if line == "" {
		_, err := ctx.Reply("What command do you want to debug?")
		return err
	}

	start := time.Now()
	cmd, err := c.router.Reinvoke(ctx, line, false)
	elapsed := time.Since(start).Round(time.Millisecond)
	if cmd == nil {
		_, replyErr := ctx.Reply(notFoundMessage(line))
		return replyErr
	}
	if err != nil {
		_, replyErr := ctx.Reply(fmt.Sprintf(
			"Command `%s` failed after %s: %v", cmd.QualifiedName(), elapsed, err,
		))
		return replyErr
	}
	_, err = ctx.Reply(fmt.Sprintf("Command `%s` finished in %s.", cmd.QualifiedName(), elapsed))
	return err
}

// resolveUser turns a mention or ID into a user, preferring the guild member
// from state when one is cached.
func (c *Cog) resolveUser(ctx *command.Context, ref string) (*discordgo.User, error) {
	id := strings.Trim(ref, "<@!>")
	if id == "" {
		return nil, fmt.Errorf("could not resolve user %q", ref)
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("could not resolve user %q", ref)
		}
	}

	if guild := ctx.Guild(); guild != nil {
		for _, member := range guild.Members {
			if member.User != nil && member.User.ID == id {
				return member.User, nil
			}
		}
	}
	if ctx.Session != nil {
		if user, err := ctx.Session.User(id); err == nil {
			return user, nil
		}
	}
	return &discordgo.User{ID: id}, nil
}

func notFoundMessage(line string) string {
	name := line
	if fields := strings.Fields(line); len(fields) > 0 {
		name = fields[0]
	}
	return fmt.Sprintf("Command \"%s\" is not found.", name)
}

// argTail strips the first n whitespace-separated tokens from raw,
// preserving the remaining tail verbatim.
func argTail(raw string, n int) string {
	tail := raw
	for i := 0; i < n; i++ {
		tail = strings.TrimLeft(tail, " \t\r\n")
		if j := strings.IndexAny(tail, " \t\r\n"); j >= 0 {
			tail = tail[j:]
		} else {
			tail = ""
		}
	}
	return strings.TrimLeft(tail, " \t\r\n")
}
