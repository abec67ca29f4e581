package jishaku

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Minion3665/jishaku/pkg/codeblocks"
	"github.com/Minion3665/jishaku/pkg/command"
	"github.com/Minion3665/jishaku/pkg/paginator"
	"github.com/Minion3665/jishaku/pkg/repl"
)

// messageLimit is Discord's hard cap on message content length.
const messageLimit = 2000

// evalCommand evaluates submitted Go code. Each top-level expression result
// is dispatched by type: files upload, embeds embed, paginator interfaces
// attach, and everything else renders as text.
func (c *Cog) evalCommand(ctx *command.Context) error {
	block := codeblocks.Parse(ctx.RawArgs)
	if strings.TrimSpace(block.Content) == "" {
		_, err := ctx.Reply("What do you want to evaluate?")
		return err
	}

	scope, err := c.currentScope()
	if err != nil {
		return err
	}

	ex := repl.NewExecutor(scope, block.Content)
	if err := scope.Inject(ctx.Ctx(), c.replVars(ctx, ex)); err != nil {
		return fmt.Errorf("prepare scope: %w", err)
	}

	for y := range ex.Run(ctx.Ctx()) {
		sent, sendErr := c.handleResult(ctx, y.Value)
		if sendErr != nil {
			y.Respond(nil)
			return sendErr
		}
		c.setLastResult(y.Value)
		y.Respond(sent)
	}
	return ex.Err()
}

// inspectCommand evaluates like evalCommand but renders reflective facts
// about each result instead of the result itself.
func (c *Cog) inspectCommand(ctx *command.Context) error {
	block := codeblocks.Parse(ctx.RawArgs)
	if strings.TrimSpace(block.Content) == "" {
		_, err := ctx.Reply("What do you want to inspect?")
		return err
	}

	scope, err := c.currentScope()
	if err != nil {
		return err
	}

	ex := repl.NewExecutor(scope, block.Content)
	if err := scope.Inject(ctx.Ctx(), c.replVars(ctx, ex)); err != nil {
		return fmt.Errorf("prepare scope: %w", err)
	}

	for y := range ex.Run(ctx.Ctx()) {
		p := paginator.New("```prolog", "```", paginator.DefaultMaxSize)
		for _, fact := range repl.Inspections(y.Value) {
			p.AddLine(fmt.Sprintf("%-12s == %s", fact.Name, fact.Value))
		}
		if err := c.sendPages(ctx, p); err != nil {
			y.Respond(nil)
			return err
		}
		c.setLastResult(y.Value)
		y.Respond(nil)
	}
	return ex.Err()
}

// currentScope returns the retained scope, creating it on first use, or a
// fresh ephemeral scope when retention is off.
func (c *Cog) currentScope() (*repl.Scope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.retain {
		return repl.NewScope()
	}
	if c.scope == nil {
		scope, err := repl.NewScope()
		if err != nil {
			return nil, err
		}
		c.scope = scope
	}
	return c.scope, nil
}

func (c *Cog) setLastResult(v any) {
	c.mu.Lock()
	c.lastResult = v
	c.mu.Unlock()
}

// replVars builds the bindings evaluated code sees, named under the
// configured scope prefix.
func (c *Cog) replVars(ctx *command.Context, ex *repl.Executor) map[string]any {
	c.mu.Lock()
	prefix := c.scopePrefix
	last := c.lastResult
	c.mu.Unlock()

	vars := map[string]any{
		prefix + "ctx":  ctx,
		prefix + "bot":  ctx.Session,
		prefix + "last": last,
		prefix + "sent": ex.Sent,
	}
	if ctx.Message != nil {
		vars[prefix+"message"] = ctx.Message.Message
		vars[prefix+"author"] = ctx.Message.Author
	}
	if ctx.Session != nil && ctx.Session.State != nil {
		if channel, err := ctx.Session.State.Channel(ctx.ChannelID()); err == nil {
			vars[prefix+"channel"] = channel
		}
	}
	if guild := ctx.Guild(); guild != nil {
		vars[prefix+"guild"] = guild
	}
	return vars
}

// handleResult delivers one evaluation result and returns what was sent, so
// evaluated code can read the reply through the sent accessor.
func (c *Cog) handleResult(ctx *command.Context, v any) (any, error) {
	switch result := v.(type) {
	case *discordgo.File:
		return ctx.ReplyFile(result.Name, result.Reader)
	case *discordgo.MessageEmbed:
		return ctx.ReplyEmbed(result)
	case *paginator.Interface:
		if err := result.SendTo(ctx.Ctx(), ctx.ChannelID()); err != nil {
			return nil, err
		}
		return result, nil
	case *paginator.Paginator:
		if err := c.sendPages(ctx, result); err != nil {
			return nil, err
		}
		return result, nil
	case error:
		return ctx.Reply(fmt.Sprintf("%v", result))
	case string:
		return c.replyText(ctx, result)
	default:
		return c.replyText(ctx, fmt.Sprintf("%v", result))
	}
}

// replyText sends result text, paginating in a Go code fence once it passes
// the message limit. Short text goes out bare; an empty result becomes a
// zero-width space so the reply is still visible.
func (c *Cog) replyText(ctx *command.Context, text string) (any, error) {
	if text == "" {
		// Zero-width space keeps the reply visible for empty results.
		return ctx.Reply("​")
	}
	if len(text) <= messageLimit {
		return ctx.Reply(text)
	}

	p := paginator.New("```go", "```", paginator.DefaultMaxSize)
	p.AddText(text)
	iface := paginator.NewInterface(ctx.Session, p, ctx.Author().ID)
	if err := iface.SendTo(ctx.Ctx(), ctx.ChannelID()); err != nil {
		return nil, err
	}
	return iface, nil
}
