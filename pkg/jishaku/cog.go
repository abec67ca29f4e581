package jishaku

import (
	"strings"
	"sync"
	"time"

	"github.com/Minion3665/jishaku/pkg/command"
	"github.com/Minion3665/jishaku/pkg/config"
	"github.com/Minion3665/jishaku/pkg/extensions"
	"github.com/Minion3665/jishaku/pkg/logger"
	"github.com/Minion3665/jishaku/pkg/repl"
	"github.com/Minion3665/jishaku/pkg/voice"
)

// Cog owns the jishaku command tree and its runtime state.
type Cog struct {
	cfg    config.Config
	router *command.Router
	loader *extensions.Loader
	voice  *voice.Manager
	tasks  *TaskRegistry

	mu          sync.Mutex
	retain      bool
	scope       *repl.Scope
	scopePrefix string
	lastResult  any

	loadTime   time.Time
	shutdownFn func()

	root *command.Command
}

// New builds a cog against the router. Install must be called to register
// the command tree.
func New(router *command.Router, cfg config.Config) *Cog {
	return &Cog{
		cfg:         cfg,
		router:      router,
		loader:      extensions.NewLoader(cfg.ExtensionDir, router),
		voice:       voice.NewManager(),
		tasks:       NewTaskRegistry(),
		retain:      cfg.Retain,
		scopePrefix: cfg.ScopePrefix(),
		loadTime:    time.Now(),
	}
}

// Loader exposes the extension loader, mainly for startup preloading.
func (c *Cog) Loader() *extensions.Loader {
	return c.loader
}

// SetShutdown wires the action run by the shutdown command; typically the
// main loop's cancel function.
func (c *Cog) SetShutdown(fn func()) {
	c.shutdownFn = fn
}

// Teardown releases cog resources: voice connections and the retained scope.
func (c *Cog) Teardown() {
	c.voice.Shutdown()
}

// Install registers the jishaku command tree on the router. Every command
// in the tree is owner-gated at the root.
func (c *Cog) Install() error {
	root := c.track(&command.Command{
		Name:        "jishaku",
		Aliases:     []string{"jsk"},
		Description: "Debugging and administration toolkit.",
		Hidden:      c.cfg.Hide,
		Check:       c.router.OwnerCheck,
	}, c.statusCommand)

	root.MustAdd(&command.Command{
		Name:        "hide",
		Description: "Hides jishaku from the help command.",
		Run:         c.hideCommand(true),
	})
	root.MustAdd(&command.Command{
		Name:        "show",
		Description: "Shows jishaku in the help command.",
		Run:         c.hideCommand(false),
	})
	root.MustAdd(&command.Command{
		Name:        "tasks",
		Description: "Shows running jishaku tasks.",
		Run:         c.tasksCommand,
	})
	root.MustAdd(&command.Command{
		Name:        "cancel",
		Description: "Cancels a task by index; -1 or no index cancels the most recent.",
		Usage:       "[index]",
		Run:         c.cancelCommand,
	})
	root.MustAdd(&command.Command{
		Name:        "retain",
		Description: "Turns variable retention for Go evaluation on or off.",
		Usage:       "[on|off]",
		Run:         c.retainCommand,
	})
	root.MustAdd(&command.Command{
		Name:        "prefix",
		Aliases:     []string{"prefixrepl"},
		Description: "Shows or sets the prefix on REPL variables, e.g. _ctx vs ctx.",
		Usage:       "[prefix|on|off]",
		Run:         c.prefixCommand,
	})
	root.MustAdd(&command.Command{
		Name:        "rtt",
		Aliases:     []string{"ping"},
		Description: "Measures REST and websocket latency.",
		Run:         c.rttCommand,
	})
	root.MustAdd(&command.Command{
		Name:        "shutdown",
		Aliases:     []string{"logout"},
		Description: "Logs the bot out and shuts it down.",
		Run:         c.shutdownCommand,
	})

	root.MustAdd(&command.Command{
		Name:        "su",
		Description: "Runs a command as someone else.",
		Usage:       "<user> <command...>",
		Run:         c.suCommand,
	})
	root.MustAdd(&command.Command{
		Name:        "in",
		Description: "Runs a command as if it were sent in another channel.",
		Usage:       "<channel> <command...>",
		Run:         c.inCommand,
	})
	root.MustAdd(&command.Command{
		Name:        "sudo",
		Description: "Runs a command, bypassing all checks.",
		Usage:       "<command...>",
		Run:         c.sudoCommand,
	})
	root.MustAdd(c.track(&command.Command{
		Name:        "repeat",
		Description: "Runs a command multiple times in a row.",
		Usage:       "<times> <command...>",
	}, c.repeatCommand))
	root.MustAdd(c.track(&command.Command{
		Name:        "debug",
		Aliases:     []string{"dbg"},
		Description: "Runs a command, timing execution and reporting failures.",
		Usage:       "<command...>",
	}, c.debugCommand))

	root.MustAdd(c.track(&command.Command{
		Name:        "load",
		Description: "Loads extensions; supports pkg.* and ~ specs.",
		Usage:       "<extensions...>",
	}, c.extensionCommand(actionLoad)))
	root.MustAdd(c.track(&command.Command{
		Name:        "reload",
		Description: "Reloads extensions; supports pkg.* and ~ specs.",
		Usage:       "<extensions...>",
	}, c.extensionCommand(actionReload)))
	root.MustAdd(c.track(&command.Command{
		Name:        "unload",
		Description: "Unloads extensions; supports pkg.* and ~ specs.",
		Usage:       "<extensions...>",
	}, c.extensionCommand(actionUnload)))

	root.MustAdd(c.track(&command.Command{
		Name:        "go",
		Aliases:     []string{"eval"},
		Description: "Evaluates Go code against the bot's runtime.",
		Usage:       "<codeblock>",
	}, c.evalCommand))
	root.MustAdd(c.track(&command.Command{
		Name:        "go_inspect",
		Aliases:     []string{"inspect"},
		Description: "Evaluates Go code and inspects each result.",
		Usage:       "<codeblock>",
	}, c.inspectCommand))

	root.MustAdd(c.track(&command.Command{
		Name:        "sh",
		Aliases:     []string{"shell"},
		Description: "Runs a shell command, streaming its output.",
		Usage:       "<codeblock>",
	}, c.shellCommand))
	root.MustAdd(c.track(&command.Command{
		Name:        "git",
		Description: "Shortcut for jsk sh git.",
		Usage:       "<arguments>",
	}, c.gitCommand))

	root.MustAdd(c.track(&command.Command{
		Name:        "cat",
		Description: "Displays a file, with optional #L line spans.",
		Usage:       "<path>[#L10-L20]",
	}, c.catCommand))
	root.MustAdd(c.track(&command.Command{
		Name:        "curl",
		Description: "Downloads a URL and displays it like cat.",
		Usage:       "<url>",
	}, c.curlCommand))
	root.MustAdd(c.track(&command.Command{
		Name:        "source",
		Aliases:     []string{"src"},
		Description: "Displays the source code of a command.",
		Usage:       "<command path>",
	}, c.sourceCommand))

	root.MustAdd(c.voiceCommand())

	if err := c.router.Register(root); err != nil {
		return err
	}
	c.root = root
	logger.InfoCF("jishaku", "Cog installed", map[string]any{
		"version": Version,
		"prefix":  c.router.Prefix(),
	})
	return nil
}

// track installs handler on cmd with task tracking, recording where the
// original handler lives so the source command points past the wrapper.
func (c *Cog) track(cmd *command.Command, handler command.HandlerFunc) *command.Command {
	cmd.SourcePath = handlerSource(handler)
	cmd.Run = c.tracked(handler)
	return cmd
}

// tracked wraps a handler so the invocation appears in the task registry and
// runs under a cancellable context.
func (c *Cog) tracked(handler command.HandlerFunc) command.HandlerFunc {
	return func(ctx *command.Context) error {
		name := ctx.Command.QualifiedName()
		if args := strings.TrimSpace(ctx.RawArgs); args != "" {
			name += " " + firstLine(args, 60)
		}
		_, taskCtx, release := c.tasks.Track(ctx.Ctx(), name)
		defer release()
		return handler(ctx.WithCtx(taskCtx))
	}
}

// firstLine truncates text to its first line, capped at limit runes.
func firstLine(text string, limit int) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i] + "…"
	}
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit]) + "…"
	}
	return text
}
