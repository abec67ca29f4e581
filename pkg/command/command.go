// Package command implements a small prefix command framework on top of
// discordgo: named commands with aliases, nested subcommands, per-command
// checks and a message-dispatch router.
package command

import (
	"fmt"
	"strings"
	"sync"
)

// HandlerFunc runs a command invocation.
type HandlerFunc func(ctx *Context) error

// CheckFunc gates a command invocation. A non-nil error rejects the
// invocation before the handler runs.
type CheckFunc func(ctx *Context) error

// Command is a named handler, optionally with nested subcommands. A command
// with subcommands acts as a group: the first remaining token selects a
// subcommand, otherwise the group's own handler fires.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string

	// Hidden removes the command from help listings.
	Hidden bool

	// Check gates this command and everything below it.
	Check CheckFunc

	// Run handles the invocation. May be nil for group-only commands.
	Run HandlerFunc

	// SourcePath records where the handler is defined, when known. Used by
	// source display.
	SourcePath string

	mu     sync.RWMutex
	parent *Command
	subs   []*Command
	index  map[string]*Command
}

// AddCommand attaches a subcommand. Names and aliases must be unique within
// the parent.
func (c *Command) AddCommand(sub *Command) error {
	if sub == nil {
		return fmt.Errorf("subcommand is nil")
	}
	if strings.TrimSpace(sub.Name) == "" {
		return fmt.Errorf("subcommand name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil {
		c.index = make(map[string]*Command)
	}
	for _, key := range append([]string{sub.Name}, sub.Aliases...) {
		if _, exists := c.index[key]; exists {
			return fmt.Errorf("subcommand %q already registered under %q", key, c.Name)
		}
	}
	for _, key := range append([]string{sub.Name}, sub.Aliases...) {
		c.index[key] = sub
	}
	sub.parent = c
	c.subs = append(c.subs, sub)
	return nil
}

// MustAdd attaches subcommands and panics on registration conflicts. Intended
// for static command trees built at startup.
func (c *Command) MustAdd(subs ...*Command) *Command {
	for _, sub := range subs {
		if err := c.AddCommand(sub); err != nil {
			panic(err)
		}
	}
	return c
}

// Lookup resolves a direct subcommand by name or alias.
func (c *Command) Lookup(name string) *Command {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index[name]
}

// Subcommands returns direct subcommands in registration order.
func (c *Command) Subcommands() []*Command {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Command, len(c.subs))
	copy(out, c.subs)
	return out
}

// QualifiedName returns the full space-separated command path.
func (c *Command) QualifiedName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.QualifiedName() + " " + c.Name
}

// resolve walks the subcommand tree consuming matching tokens. It returns the
// deepest matched command, the unconsumed tokens, and the chain of commands
// from this one down (for check evaluation).
func (c *Command) resolve(tokens []string) (*Command, []string, []*Command) {
	chain := []*Command{c}
	current := c
	for len(tokens) > 0 {
		next := current.Lookup(tokens[0])
		if next == nil {
			break
		}
		current = next
		chain = append(chain, next)
		tokens = tokens[1:]
	}
	return current, tokens, chain
}
