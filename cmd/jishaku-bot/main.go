package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/Minion3665/jishaku/pkg/command"
	"github.com/Minion3665/jishaku/pkg/config"
	"github.com/Minion3665/jishaku/pkg/jishaku"
	"github.com/Minion3665/jishaku/pkg/logger"
	"github.com/Minion3665/jishaku/pkg/redaction"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		token   string
		prefix  string
		debug   bool
		preload []string
	)

	cmd := &cobra.Command{
		Use:     "jishaku-bot",
		Short:   "Discord bot carrying the jishaku debugging cog",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if debug {
				logger.SetLevel(logger.DEBUG)
			}
			if token == "" {
				token = os.Getenv("DISCORD_TOKEN")
			}
			if token == "" {
				return fmt.Errorf("no bot token: pass --token or set DISCORD_TOKEN")
			}
			return run(token, prefix, preload)
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "Discord bot token (falls back to DISCORD_TOKEN)")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Command prefix override")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().StringSliceVar(&preload, "load", nil, "Extensions to load at startup (supports pkg.* specs)")

	return cmd
}

func run(token, prefixOverride string, preload []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if prefixOverride != "" {
		cfg.CommandPrefix = prefixOverride
	}

	// The token must never surface through eval or shell output.
	redaction.AddSecret(token)

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsDirectMessageReactions |
		discordgo.IntentsMessageContent

	router := command.New(session, cfg.CommandPrefix)
	if len(cfg.OwnerIDs) > 0 {
		router.SetOwnerIDs(cfg.OwnerIDs)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cog := jishaku.New(router, cfg)
	cog.SetShutdown(cancel)
	if err := cog.Install(); err != nil {
		return fmt.Errorf("install cog: %w", err)
	}
	if err := router.Register(command.NewHelpCommand(router)); err != nil {
		return fmt.Errorf("install help: %w", err)
	}

	router.Open()
	if err := session.Open(); err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}
	defer session.Close()
	logger.InfoCF("bot", "Connected", map[string]any{
		"prefix":  cfg.CommandPrefix,
		"version": version,
	})

	if len(preload) > 0 {
		names, err := cog.Loader().ResolveAll(preload)
		if err != nil {
			return fmt.Errorf("resolve preload extensions: %w", err)
		}
		for _, name := range names {
			if err := cog.Loader().Load(name); err != nil {
				logger.WarnC("bot", "Failed to preload "+name+": "+err.Error())
				continue
			}
			logger.InfoC("bot", "Preloaded extension "+name)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.InfoC("bot", "Received "+s.String()+", shutting down")
	case <-ctx.Done():
		logger.InfoC("bot", "Shutdown requested, closing")
	}

	cog.Teardown()
	router.Close()
	return nil
}
