package jishaku

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Minion3665/jishaku/pkg/command"
	"github.com/Minion3665/jishaku/pkg/paginator"
	"github.com/Minion3665/jishaku/pkg/voice"
)

var errGuildOnly = errors.New("voice commands only work in a guild")

// voiceCommand builds the "jsk voice" group. Playback control operates on
// the invoking guild's player.
func (c *Cog) voiceCommand() *command.Command {
	root := &command.Command{
		Name:        "voice",
		Aliases:     []string{"vc"},
		Description: "Voice connection and playback control.",
		Check:       requireGuild,
	}

	root.MustAdd(&command.Command{
		Name:        "join",
		Aliases:     []string{"connect"},
		Description: "Joins your voice channel, or a named channel.",
		Usage:       "[channel]",
		Run:         c.voiceJoin,
	})
	root.MustAdd(&command.Command{
		Name:        "disconnect",
		Aliases:     []string{"dc"},
		Description: "Leaves the guild's voice channel.",
		Run:         c.voiceDisconnect,
	})
	root.MustAdd(&command.Command{
		Name:        "play",
		Aliases:     []string{"play_local"},
		Description: "Plays an audio file from the local filesystem.",
		Usage:       "<path>",
		Run:         c.tracked(c.voicePlay),
	})
	root.MustAdd(&command.Command{
		Name:        "stop",
		Description: "Stops the current track.",
		Run:         c.voiceStop,
	})
	root.MustAdd(&command.Command{
		Name:        "pause",
		Description: "Pauses the current track.",
		Run:         c.voiceTransport((*voice.Player).Pause, "Paused playback."),
	})
	root.MustAdd(&command.Command{
		Name:        "resume",
		Description: "Resumes a paused track.",
		Run:         c.voiceTransport((*voice.Player).Resume, "Resumed playback."),
	})
	root.MustAdd(&command.Command{
		Name:        "volume",
		Description: "Sets the playback volume percentage for future tracks.",
		Usage:       "<0-200>",
		Run:         c.voiceVolume,
	})
	root.MustAdd(&command.Command{
		Name:        "clients",
		Description: "Lists voice connections across guilds.",
		Run:         c.voiceClients,
	})
	return root
}

func requireGuild(ctx *command.Context) error {
	if ctx.GuildID() == "" {
		return errGuildOnly
	}
	return nil
}

func (c *Cog) voiceJoin(ctx *command.Context) error {
	channelID := ""
	if len(ctx.Args) > 0 {
		channelID = strings.Trim(ctx.Args[0], "<#>")
	} else {
		channelID = invokerVoiceChannel(ctx)
		if channelID == "" {
			_, err := ctx.Reply("You aren't in a voice channel; name one to join.")
			return err
		}
	}

	if _, err := c.voice.Join(ctx.Session, ctx.GuildID(), channelID); err != nil {
		return err
	}
	_, err := ctx.Reply(fmt.Sprintf("Connected to <#%s>.", channelID))
	return err
}

// invokerVoiceChannel finds the channel the invoking user is connected to,
// from guild voice state.
func invokerVoiceChannel(ctx *command.Context) string {
	guild := ctx.Guild()
	author := ctx.Author()
	if guild == nil || author == nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == author.ID {
			return vs.ChannelID
		}
	}
	return ""
}

func (c *Cog) voiceDisconnect(ctx *command.Context) error {
	if err := c.voice.Disconnect(ctx.GuildID()); err != nil {
		return err
	}
	_, err := ctx.Reply("Disconnected.")
	return err
}

func (c *Cog) voicePlay(ctx *command.Context) error {
	path := strings.TrimSpace(ctx.RawArgs)
	if path == "" {
		_, err := ctx.Reply("What file do you want to play?")
		return err
	}

	player, ok := c.voice.Get(ctx.GuildID())
	if !ok {
		return voice.ErrNotConnected
	}
	if err := player.Play(path); err != nil {
		return err
	}
	_, err := ctx.Reply(fmt.Sprintf("Playing `%s` at %d%% volume.", path, player.Volume()))
	return err
}

func (c *Cog) voiceStop(ctx *command.Context) error {
	player, ok := c.voice.Get(ctx.GuildID())
	if !ok {
		return voice.ErrNotConnected
	}
	if !player.Playing() {
		return voice.ErrNotPlaying
	}
	player.Stop()
	_, err := ctx.Reply("Stopped playback.")
	return err
}

// voiceTransport builds pause/resume style handlers sharing the connected
// player lookup.
func (c *Cog) voiceTransport(op func(*voice.Player) error, confirmation string) command.HandlerFunc {
	return func(ctx *command.Context) error {
		player, ok := c.voice.Get(ctx.GuildID())
		if !ok {
			return voice.ErrNotConnected
		}
		if err := op(player); err != nil {
			return err
		}
		_, err := ctx.Reply(confirmation)
		return err
	}
}

func (c *Cog) voiceVolume(ctx *command.Context) error {
	if len(ctx.Args) == 0 {
		player, ok := c.voice.Get(ctx.GuildID())
		if !ok {
			return voice.ErrNotConnected
		}
		_, err := ctx.Reply(fmt.Sprintf("Volume is set to %d%%.", player.Volume()))
		return err
	}

	percent, err := strconv.Atoi(strings.TrimSuffix(ctx.Args[0], "%"))
	if err != nil {
		_, replyErr := ctx.Reply("Expected a percentage between 0 and 200.")
		return replyErr
	}

	player, ok := c.voice.Get(ctx.GuildID())
	if !ok {
		return voice.ErrNotConnected
	}
	if err := player.SetVolume(percent); err != nil {
		if errors.Is(err, voice.ErrLiveVolumeUnsupported) {
			_, replyErr := ctx.Reply(fmt.Sprintf("Volume set to %d%%, but %v.", percent, err))
			return replyErr
		}
		return err
	}
	_, err = ctx.Reply(fmt.Sprintf("Volume set to %d%%.", percent))
	return err
}

func (c *Cog) voiceClients(ctx *command.Context) error {
	guilds := c.voice.Guilds()
	if len(guilds) == 0 {
		_, err := ctx.Reply("Not connected to voice anywhere.")
		return err
	}

	p := paginator.New("", "", paginator.DefaultMaxSize)
	for _, guildID := range guilds {
		player, ok := c.voice.Get(guildID)
		if !ok {
			continue
		}
		line := fmt.Sprintf("`%s`: %s", guildID, player.State())
		if track := player.Track(); track != "" {
			line += fmt.Sprintf(" `%s`", track)
		}
		p.AddLine(line)
	}
	return c.sendPages(ctx, p)
}
