package jishaku

import (
	"fmt"

	"github.com/Minion3665/jishaku/pkg/command"
	"github.com/Minion3665/jishaku/pkg/logger"
	"github.com/Minion3665/jishaku/pkg/paginator"
)

type extensionAction int

const (
	actionLoad extensionAction = iota
	actionReload
	actionUnload
)

func (a extensionAction) icon() string {
	switch a {
	case actionLoad:
		return "📥"
	case actionReload:
		return "🔁"
	default:
		return "📤"
	}
}

func (a extensionAction) verb() string {
	switch a {
	case actionLoad:
		return "load"
	case actionReload:
		return "reload"
	default:
		return "unload"
	}
}

// extensionCommand builds the handler shared by load, reload, and unload.
// Each resolved extension gets its own result line, so a wildcard spec
// reports partial failures without aborting the batch.
func (c *Cog) extensionCommand(action extensionAction) command.HandlerFunc {
	return func(ctx *command.Context) error {
		if len(ctx.Args) == 0 {
			_, err := ctx.Reply(fmt.Sprintf("What do you want to %s?", action.verb()))
			return err
		}

		names, err := c.loader.ResolveAll(ctx.Args)
		if err != nil {
			return fmt.Errorf("resolve extensions: %w", err)
		}
		if len(names) == 0 {
			_, err := ctx.Reply("No extensions matched.")
			return err
		}

		p := paginator.New("", "", paginator.DefaultMaxSize)
		for _, name := range names {
			var actionErr error
			switch action {
			case actionLoad:
				actionErr = c.loader.Load(name)
			case actionReload:
				actionErr = c.loader.Reload(name)
			case actionUnload:
				actionErr = c.loader.Unload(name)
			}

			if actionErr != nil {
				logger.WarnCF("jishaku", "Extension operation failed", map[string]any{
					"action":    action.verb(),
					"extension": name,
					"error":     actionErr.Error(),
				})
				p.AddLine(fmt.Sprintf("⚠ `%s`: %v", name, actionErr))
				continue
			}
			p.AddLine(fmt.Sprintf("%s `%s`", action.icon(), name))
		}

		return c.sendPages(ctx, p)
	}
}
