package jishaku

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Minion3665/jishaku/pkg/command"
	"github.com/Minion3665/jishaku/pkg/logger"
	"github.com/Minion3665/jishaku/pkg/paginator"
)

// statusCommand is the bare "jsk" invocation: a quick health summary.
func (c *Cog) statusCommand(ctx *command.Context) error {
	var lines []string

	lines = append(lines, fmt.Sprintf(
		"Jishaku v%s, discordgo `v%s`, `Go %s` on `%s %s`.",
		Version, discordgo.VERSION, strings.TrimPrefix(runtime.Version(), "go"),
		runtime.GOOS, runtime.GOARCH,
	))
	lines = append(lines, fmt.Sprintf("Module was loaded %s.", humanize.Time(c.loadTime)))

	if usage := processUsage(); usage != "" {
		lines = append(lines, usage)
	}
	lines = append(lines, fmt.Sprintf("Running on %d goroutines.", runtime.NumGoroutine()))

	if s := ctx.Session; s != nil {
		if s.ShardCount > 1 {
			lines = append(lines, fmt.Sprintf(
				"This bot is automatically sharded (shard %d of %d) and can see %s.",
				s.ShardID, s.ShardCount, cachePresence(s),
			))
		} else {
			lines = append(lines, fmt.Sprintf("This bot is not sharded and can see %s.", cachePresence(s)))
		}
		lines = append(lines, fmt.Sprintf(
			"Average websocket latency: %s", s.HeartbeatLatency().Round(time.Millisecond),
		))
	}

	_, err := ctx.Reply(strings.Join(lines, "\n"))
	return err
}

// processUsage reports RSS and thread count for this process; empty when the
// platform refuses the lookup.
func processUsage() string {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.DebugC("jishaku", "Process lookup unavailable: "+err.Error())
		return ""
	}

	var parts []string
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		parts = append(parts, fmt.Sprintf("using %s physical memory", humanize.IBytes(mem.RSS)))
	}
	if threads, err := proc.NumThreads(); err == nil {
		parts = append(parts, fmt.Sprintf("%d OS threads", threads))
	}
	if len(parts) == 0 {
		return ""
	}
	return "This process is " + strings.Join(parts, ", ") + "."
}

func cachePresence(s *discordgo.Session) string {
	if s.State == nil {
		return "an unknown number of guilds"
	}
	guilds := len(s.State.Guilds)
	users := 0
	for _, g := range s.State.Guilds {
		users += g.MemberCount
	}
	return fmt.Sprintf("%d guild(s) and %d member(s)", guilds, users)
}

// hideCommand toggles the root command's help visibility.
func (c *Cog) hideCommand(hide bool) command.HandlerFunc {
	return func(ctx *command.Context) error {
		c.mu.Lock()
		already := c.root.Hidden == hide
		c.root.Hidden = hide
		c.mu.Unlock()

		switch {
		case already && hide:
			_, err := ctx.Reply("Jishaku is already hidden.")
			return err
		case already:
			_, err := ctx.Reply("Jishaku is already visible.")
			return err
		case hide:
			_, err := ctx.Reply("Jishaku is now hidden.")
			return err
		default:
			_, err := ctx.Reply("Jishaku is now visible.")
			return err
		}
	}
}

// retainCommand toggles scope retention for Go evaluation. Idempotent calls
// say so instead of flipping state.
func (c *Cog) retainCommand(ctx *command.Context) error {
	var target bool
	switch {
	case len(ctx.Args) == 0:
		c.mu.Lock()
		target = !c.retain
		c.mu.Unlock()
	case ctx.Args[0] == "on" || ctx.Args[0] == "true":
		target = true
	case ctx.Args[0] == "off" || ctx.Args[0] == "false":
		target = false
	default:
		_, err := ctx.Reply("Expected `on` or `off`.")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.retain == target {
		if target {
			_, err := ctx.Reply("Variable retention is already set to ON.")
			return err
		}
		_, err := ctx.Reply("Variable retention is already set to OFF.")
		return err
	}

	c.retain = target
	if target {
		// Start retaining from a clean slate rather than adopting whatever
		// the last ephemeral run left behind.
		c.scope = nil
		_, err := ctx.Reply("Variable retention is ON. Future REPL sessions will retain their scope.")
		return err
	}
	c.scope = nil
	_, err := ctx.Reply("Variable retention is OFF. Future REPL sessions will dispose their scope when done.")
	return err
}

// prefixCommand shows or sets the prefix applied to injected REPL variable
// names, e.g. _ctx versus ctx. The setting lasts until restart.
func (c *Cog) prefixCommand(ctx *command.Context) error {
	if len(ctx.Args) == 0 {
		c.mu.Lock()
		prefix := c.scopePrefix
		c.mu.Unlock()
		if prefix == "" {
			_, err := ctx.Reply("REPL variables are not prefixed.")
			return err
		}
		_, err := ctx.Reply(fmt.Sprintf("REPL variable prefix: `%s`", prefix))
		return err
	}

	var prefix string
	switch ctx.Args[0] {
	case "on", "true":
		prefix = "_"
	case "off", "false", "none":
		prefix = ""
	default:
		prefix = ctx.Args[0]
	}
	if !validScopePrefix(prefix) {
		_, err := ctx.Reply(fmt.Sprintf("`%s` cannot start a Go identifier.", prefix))
		return err
	}

	c.mu.Lock()
	c.scopePrefix = prefix
	c.mu.Unlock()
	_, err := ctx.Reply("Done.")
	return err
}

// validScopePrefix reports whether prefix can lead a Go identifier, so the
// injected names stay evaluable.
func validScopePrefix(prefix string) bool {
	for i, r := range prefix {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// rttCommand measures REST latency with a live edit round trip and reports
// the websocket heartbeat alongside.
func (c *Cog) rttCommand(ctx *command.Context) error {
	before := time.Now()
	msg, err := ctx.Reply("Calculating round-trip time...")
	if err != nil {
		return err
	}
	rest := time.Since(before)

	var ws time.Duration
	if ctx.Session != nil {
		ws = ctx.Session.HeartbeatLatency()
	}

	report := fmt.Sprintf(
		"Pong! REST round-trip: %s, websocket latency: %s",
		rest.Round(time.Millisecond), ws.Round(time.Millisecond),
	)
	if ctx.Session != nil && msg != nil {
		if _, err := ctx.Session.ChannelMessageEdit(msg.ChannelID, msg.ID, report); err == nil {
			return nil
		}
	}
	_, err = ctx.Reply(report)
	return err
}

func (c *Cog) shutdownCommand(ctx *command.Context) error {
	if _, err := ctx.Reply("Logging out now..."); err != nil {
		return err
	}
	logger.InfoC("jishaku", "Shutdown requested by "+ctx.Author().ID)
	c.Teardown()
	if c.shutdownFn != nil {
		c.shutdownFn()
	}
	return nil
}

// tasksCommand lists the registry, paginated for long task sets.
func (c *Cog) tasksCommand(ctx *command.Context) error {
	tasks := c.tasks.List()
	if len(tasks) == 0 {
		_, err := ctx.Reply("No currently running tasks.")
		return err
	}

	p := paginator.New("```md", "```", paginator.DefaultMaxSize)
	for _, task := range tasks {
		p.AddLine(fmt.Sprintf("%d. `%s`, invoked %s", task.Index, task.Command, humanize.Time(task.Invoked)))
	}
	return c.sendPages(ctx, p)
}

func (c *Cog) cancelCommand(ctx *command.Context) error {
	index := -1
	if len(ctx.Args) > 0 {
		parsed, err := strconv.Atoi(ctx.Args[0])
		if err != nil {
			_, replyErr := ctx.Reply("Expected a task index or -1.")
			return replyErr
		}
		index = parsed
	}

	task, err := c.tasks.Cancel(index)
	if err != nil {
		return err
	}
	_, err = ctx.Reply(fmt.Sprintf("Cancelled task %d: `%s`", task.Index, task.Command))
	return err
}

// sendPages delivers a paginator: a single page goes out as one message, more
// pages get a reaction-driven interface.
func (c *Cog) sendPages(ctx *command.Context, p *paginator.Paginator) error {
	if p.PageCount() <= 1 {
		_, err := ctx.Reply(p.Pages()[0])
		return err
	}
	iface := paginator.NewInterface(ctx.Session, p, ctx.Author().ID)
	return iface.SendTo(ctx.Ctx(), ctx.ChannelID())
}
