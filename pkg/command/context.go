package command

import (
	"context"
	"io"

	"github.com/bwmarrin/discordgo"

	"github.com/Minion3665/jishaku/pkg/redaction"
)

// Sender is the subset of discordgo.Session used to deliver replies.
// *discordgo.Session satisfies it; tests substitute a recorder.
type Sender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelFileSend(channelID, name string, r io.Reader, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
}

// Context carries one command invocation.
type Context struct {
	Session *discordgo.Session
	Message *discordgo.MessageCreate
	Router  *Router
	Command *Command

	// Prefix and InvokedWith record how the command was addressed.
	Prefix      string
	InvokedWith string

	// Args are the unconsumed whitespace-separated tokens. RawArgs is the
	// same tail with original spacing and newlines preserved, which matters
	// for code blocks.
	Args    []string
	RawArgs string

	// Sender overrides the reply transport; nil falls back to Session.
	Sender Sender

	ctx context.Context
}

// Ctx returns the invocation's cancellable context.
func (c *Context) Ctx() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// WithCtx returns a shallow copy bound to the given context. The task
// registry uses this to thread its cancellable context through handlers.
func (c *Context) WithCtx(ctx context.Context) *Context {
	clone := *c
	clone.ctx = ctx
	return &clone
}

// WithAuthor returns a shallow copy whose message appears to come from user.
// Checks run against the new author.
func (c *Context) WithAuthor(user *discordgo.User) *Context {
	clone := *c
	if c.Message != nil {
		mc := *c.Message
		msg := *mc.Message
		msg.Author = user
		mc.Message = &msg
		clone.Message = &mc
	}
	return &clone
}

// WithChannel returns a shallow copy rebound to another channel, so replies
// land there.
func (c *Context) WithChannel(channelID string) *Context {
	clone := *c
	if c.Message != nil {
		mc := *c.Message
		msg := *mc.Message
		msg.ChannelID = channelID
		mc.Message = &msg
		clone.Message = &mc
	}
	return &clone
}

func (c *Context) sender() Sender {
	if c.Sender != nil {
		return c.Sender
	}
	return c.Session
}

// Author returns the invoking user.
func (c *Context) Author() *discordgo.User {
	if c.Message == nil {
		return nil
	}
	return c.Message.Author
}

// GuildID returns the originating guild ID, empty for DMs.
func (c *Context) GuildID() string {
	if c.Message == nil {
		return ""
	}
	return c.Message.GuildID
}

// ChannelID returns the originating channel ID.
func (c *Context) ChannelID() string {
	if c.Message == nil {
		return ""
	}
	return c.Message.ChannelID
}

// Guild returns the originating guild from state, nil for DMs or when the
// guild is not cached.
func (c *Context) Guild() *discordgo.Guild {
	if c.Session == nil || c.GuildID() == "" {
		return nil
	}
	guild, err := c.Session.State.Guild(c.GuildID())
	if err != nil {
		return nil
	}
	return guild
}

// Reply sends content to the invoking channel. In guild channels registered
// secrets are masked first, so an evaluated expression can never leak the bot
// token into a shared channel.
func (c *Context) Reply(content string) (*discordgo.Message, error) {
	if c.GuildID() != "" {
		content = redaction.Redact(content)
	}
	return c.sender().ChannelMessageSend(c.ChannelID(), content)
}

// ReplyEmbed sends a rich embed to the invoking channel.
func (c *Context) ReplyEmbed(embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	return c.sender().ChannelMessageSendEmbed(c.ChannelID(), embed)
}

// ReplyFile uploads a file to the invoking channel.
func (c *Context) ReplyFile(name string, r io.Reader) (*discordgo.Message, error) {
	return c.sender().ChannelFileSend(c.ChannelID(), name, r)
}

// React adds a reaction to the invoking message. Failures are ignored; a
// missing reaction never breaks a command.
func (c *Context) React(emoji string) {
	if c.Message == nil {
		return
	}
	_ = c.sender().MessageReactionAdd(c.ChannelID(), c.Message.ID, emoji)
}
