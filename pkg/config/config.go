// Package config holds the extension's startup configuration. All settings
// are read once from the process environment and passed to the cog
// constructor; nothing reads the environment after startup.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Config controls the behaviour of the debugging extension.
type Config struct {
	// Hide removes the root command from the router's help listing.
	Hide bool `env:"JISHAKU_HIDE"`

	// Retain keeps REPL variables across invocations.
	Retain bool `env:"JISHAKU_RETAIN"`

	// NoUnderscore drops the underscore prefix from injected REPL variables,
	// so code refers to ctx instead of _ctx.
	NoUnderscore bool `env:"JISHAKU_NO_UNDERSCORE"`

	// CommandPrefix is the message prefix the router listens for.
	CommandPrefix string `env:"JISHAKU_PREFIX" envDefault:"!"`

	// ExtensionDir is the directory scanned for loadable script extensions.
	ExtensionDir string `env:"JISHAKU_EXTENSION_DIR" envDefault:"extensions"`

	// Shell overrides the shell binary used by the shell bridge. Empty means
	// $SHELL, falling back to /bin/sh.
	Shell string `env:"JISHAKU_SHELL"`

	// OwnerIDs restricts the owner gate to an explicit user list. Empty means
	// the application owner is fetched from the API instead.
	OwnerIDs []string `env:"JISHAKU_OWNER_IDS" envSeparator:","`
}

// FromEnv parses configuration from the process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Shell == "" {
		cfg.Shell = os.Getenv("SHELL")
	}
	return cfg, nil
}

// ScopePrefix returns the prefix applied to variables injected into REPL
// scopes.
func (c Config) ScopePrefix() string {
	if c.NoUnderscore {
		return ""
	}
	return "_"
}

// ShellPath resolves the shell binary to spawn.
func (c Config) ShellPath() string {
	if c.Shell != "" {
		return c.Shell
	}
	return "/bin/sh"
}
