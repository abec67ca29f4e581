package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/Minion3665/jishaku/pkg/logger"
)

// ErrNotOwner is returned by the owner gate for non-owner invocations.
var ErrNotOwner = errors.New("you must own this bot to use this command")

const errorReplyLimit = 1000

// Router binds top-level commands to a discordgo session and dispatches
// prefixed messages to them.
type Router struct {
	session *discordgo.Session
	prefix  string

	mu       sync.RWMutex
	commands []*Command
	index    map[string]*Command

	ownerIDs  []string
	ownerOnce sync.Once
	ownerSet  map[string]struct{}
	ownerErr  error

	removeHandler func()
}

// New creates a router listening for the given message prefix.
func New(session *discordgo.Session, prefix string) *Router {
	return &Router{
		session: session,
		prefix:  prefix,
		index:   make(map[string]*Command),
	}
}

// Prefix returns the configured message prefix.
func (r *Router) Prefix() string {
	return r.prefix
}

// Session returns the bound discordgo session.
func (r *Router) Session() *discordgo.Session {
	return r.session
}

// SetOwnerIDs overrides the owner gate with an explicit user-ID list.
// Without it, the application owner (and team) is fetched from the API on
// first use.
func (r *Router) SetOwnerIDs(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ownerIDs = ids
}

// Register adds a top-level command. Names and aliases must be unique.
func (r *Router) Register(cmd *Command) error {
	if cmd == nil {
		return errors.New("command is nil")
	}
	if strings.TrimSpace(cmd.Name) == "" {
		return errors.New("command name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range append([]string{cmd.Name}, cmd.Aliases...) {
		if _, exists := r.index[key]; exists {
			return fmt.Errorf("command %q already registered", key)
		}
	}
	for _, key := range append([]string{cmd.Name}, cmd.Aliases...) {
		r.index[key] = cmd
	}
	r.commands = append(r.commands, cmd)
	return nil
}

// Unregister removes a top-level command by name. Reports whether anything
// was removed.
func (r *Router) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.index[name]
	if !ok {
		return false
	}
	for _, key := range append([]string{cmd.Name}, cmd.Aliases...) {
		delete(r.index, key)
	}
	for i, c := range r.commands {
		if c == cmd {
			r.commands = append(r.commands[:i], r.commands[i+1:]...)
			break
		}
	}
	return true
}

// Commands returns top-level commands in registration order.
func (r *Router) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Find resolves a command by space-separated path, e.g. "jishaku voice play".
func (r *Router) Find(path string) *Command {
	tokens := strings.Fields(path)
	if len(tokens) == 0 {
		return nil
	}

	r.mu.RLock()
	cmd := r.index[tokens[0]]
	r.mu.RUnlock()
	if cmd == nil {
		return nil
	}

	resolved, rest, _ := cmd.resolve(tokens[1:])
	if len(rest) > 0 {
		return nil
	}
	return resolved
}

// Open attaches the router's message handler to the session.
func (r *Router) Open() {
	if r.removeHandler != nil {
		return
	}
	r.removeHandler = r.session.AddHandler(r.handleMessage)
	logger.InfoCF("command", "Router attached", map[string]any{"prefix": r.prefix})
}

// Close detaches the router from the session.
func (r *Router) Close() {
	if r.removeHandler != nil {
		r.removeHandler()
		r.removeHandler = nil
	}
}

// OwnerCheck is a CheckFunc restricting a command to the bot owner. It is
// evaluated before any subcommand logic runs.
func (r *Router) OwnerCheck(ctx *Context) error {
	author := ctx.Author()
	if author == nil {
		return ErrNotOwner
	}
	ok, err := r.IsOwner(author.ID)
	if err != nil {
		return fmt.Errorf("owner lookup failed: %w", err)
	}
	if !ok {
		return ErrNotOwner
	}
	return nil
}

// IsOwner reports whether the user passes the owner gate.
func (r *Router) IsOwner(userID string) (bool, error) {
	r.mu.RLock()
	ids := r.ownerIDs
	r.mu.RUnlock()

	if len(ids) > 0 {
		for _, id := range ids {
			if id == userID {
				return true, nil
			}
		}
		return false, nil
	}

	r.ownerOnce.Do(r.fetchOwners)
	if r.ownerErr != nil {
		return false, r.ownerErr
	}
	_, ok := r.ownerSet[userID]
	return ok, nil
}

func (r *Router) fetchOwners() {
	app, err := r.session.Application("@me")
	if err != nil {
		r.ownerErr = err
		return
	}

	set := make(map[string]struct{})
	if app.Owner != nil {
		set[app.Owner.ID] = struct{}{}
	}
	if app.Team != nil {
		for _, member := range app.Team.Members {
			if member.User != nil {
				set[member.User.ID] = struct{}{}
			}
		}
	}
	r.ownerSet = set
}

// Reinvoke runs commandLine as if the parent invocation's message had
// carried it, reusing the parent's transport and context. With bypassChecks
// the Check functions along the command chain are skipped. The resolved
// command is returned even when it rejects or fails, so callers can report
// on it.
func (r *Router) Reinvoke(parent *Context, commandLine string, bypassChecks bool) (*Command, error) {
	tokens := strings.Fields(commandLine)
	if len(tokens) == 0 {
		return nil, errors.New("no command given")
	}

	r.mu.RLock()
	top := r.index[tokens[0]]
	r.mu.RUnlock()
	if top == nil {
		return nil, fmt.Errorf("command %q is not found", tokens[0])
	}

	cmd, rest, chain := top.resolve(tokens[1:])
	consumed := 1 + (len(tokens) - 1 - len(rest))

	ctx := *parent
	ctx.Router = r
	ctx.Command = cmd
	ctx.InvokedWith = tokens[0]
	ctx.Args = rest
	ctx.RawArgs = cutTokens(commandLine, tokens[:consumed])

	if !bypassChecks {
		for _, link := range chain {
			if link.Check == nil {
				continue
			}
			if err := link.Check(&ctx); err != nil {
				return cmd, err
			}
		}
	}

	if cmd.Run == nil {
		return cmd, fmt.Errorf("`%s` requires a subcommand", cmd.QualifiedName())
	}
	return cmd, cmd.Run(&ctx)
}

func (r *Router) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	if !strings.HasPrefix(m.Content, r.prefix) {
		return
	}

	go r.dispatch(m)
}

func (r *Router) dispatch(m *discordgo.MessageCreate) {
	body := strings.TrimPrefix(m.Content, r.prefix)
	tokens := strings.Fields(body)
	if len(tokens) == 0 {
		return
	}

	r.mu.RLock()
	top := r.index[tokens[0]]
	r.mu.RUnlock()
	if top == nil {
		return
	}

	cmd, rest, chain := top.resolve(tokens[1:])
	consumed := 1 + (len(tokens) - 1 - len(rest))

	invokeCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx := &Context{
		Session:     r.session,
		Message:     m,
		Router:      r,
		Command:     cmd,
		Prefix:      r.prefix,
		InvokedWith: tokens[0],
		Args:        rest,
		RawArgs:     cutTokens(body, tokens[:consumed]),
		ctx:         invokeCtx,
	}

	for _, link := range chain {
		if link.Check == nil {
			continue
		}
		if err := link.Check(ctx); err != nil {
			// Permission failures reject before any subcommand logic runs.
			if _, replyErr := ctx.Reply(capError(err)); replyErr != nil {
				logger.ErrorCF("command", "Failed to deliver check rejection", map[string]any{
					"command": cmd.QualifiedName(),
					"error":   replyErr.Error(),
				})
			}
			return
		}
	}

	if cmd.Run == nil {
		_, _ = ctx.Reply(fmt.Sprintf("`%s` requires a subcommand.", cmd.QualifiedName()))
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorCF("command", "Handler panicked", map[string]any{
				"command": cmd.QualifiedName(),
				"panic":   fmt.Sprintf("%v", rec),
			})
			ctx.React("❗")
			_, _ = ctx.Reply(capError(fmt.Errorf("command panicked: %v", rec)))
		}
	}()

	if err := cmd.Run(ctx); err != nil {
		logger.WarnCF("command", "Handler returned error", map[string]any{
			"command": cmd.QualifiedName(),
			"error":   err.Error(),
		})
		ctx.React("⚠️")
		_, _ = ctx.Reply(capError(err))
	}
}

// cutTokens strips the given leading tokens from body, preserving the
// remaining tail verbatim (newlines included).
func cutTokens(body string, tokens []string) string {
	for _, token := range tokens {
		body = strings.TrimLeft(body, " \t\r\n")
		body = strings.TrimPrefix(body, token)
	}
	return strings.TrimLeft(body, " \t\r\n")
}

func capError(err error) string {
	msg := err.Error()
	if len(msg) > errorReplyLimit {
		msg = msg[:errorReplyLimit] + "…"
	}
	return "⚠️ " + msg
}
