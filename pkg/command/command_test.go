package command

import (
	"io"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent      []string
	files     []string
	reactions []string
}

func (s *recordingSender) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.sent = append(s.sent, content)
	return &discordgo.Message{ID: "m", ChannelID: channelID, Content: content}, nil
}

func (s *recordingSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{ID: "m", ChannelID: channelID}, nil
}

func (s *recordingSender) ChannelFileSend(channelID, name string, r io.Reader, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.files = append(s.files, name)
	return &discordgo.Message{ID: "m", ChannelID: channelID}, nil
}

func (s *recordingSender) MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error {
	s.reactions = append(s.reactions, emojiID)
	return nil
}

func TestCommandResolveWalksSubcommands(t *testing.T) {
	root := &Command{Name: "jishaku"}
	voice := &Command{Name: "voice"}
	play := &Command{Name: "play"}
	require.NoError(t, root.AddCommand(voice))
	require.NoError(t, voice.AddCommand(play))

	cmd, rest, chain := root.resolve([]string{"voice", "play", "song.mp3"})
	assert.Same(t, play, cmd)
	assert.Equal(t, []string{"song.mp3"}, rest)
	assert.Len(t, chain, 3)
	assert.Equal(t, "jishaku voice play", cmd.QualifiedName())
}

func TestCommandResolveStopsAtUnknownToken(t *testing.T) {
	root := &Command{Name: "jishaku"}
	require.NoError(t, root.AddCommand(&Command{Name: "tasks"}))

	cmd, rest, _ := root.resolve([]string{"nope", "tasks"})
	assert.Same(t, root, cmd)
	assert.Equal(t, []string{"nope", "tasks"}, rest)
}

func TestAddCommandRejectsDuplicates(t *testing.T) {
	root := &Command{Name: "jishaku"}
	require.NoError(t, root.AddCommand(&Command{Name: "load", Aliases: []string{"reload"}}))

	err := root.AddCommand(&Command{Name: "reload"})
	assert.Error(t, err)
}

func TestRouterRegisterAndFind(t *testing.T) {
	r := New(nil, "!")
	root := &Command{Name: "jishaku", Aliases: []string{"jsk"}}
	sub := &Command{Name: "tasks"}
	require.NoError(t, root.AddCommand(sub))
	require.NoError(t, r.Register(root))

	assert.Same(t, sub, r.Find("jishaku tasks"))
	assert.Same(t, root, r.Find("jsk"))
	assert.Nil(t, r.Find("jishaku missing"))
	assert.Nil(t, r.Find("other"))
}

func TestRouterUnregister(t *testing.T) {
	r := New(nil, "!")
	require.NoError(t, r.Register(&Command{Name: "jishaku", Aliases: []string{"jsk"}}))

	assert.True(t, r.Unregister("jishaku"))
	assert.Nil(t, r.Find("jsk"))
	assert.False(t, r.Unregister("jishaku"))
}

func TestDispatchRunsHandlerWithRawArgs(t *testing.T) {
	r := New(nil, "!")
	var got string
	root := &Command{Name: "jsk"}
	require.NoError(t, root.AddCommand(&Command{
		Name: "go",
		Run: func(ctx *Context) error {
			got = ctx.RawArgs
			return nil
		},
	}))
	require.NoError(t, r.Register(root))

	r.dispatch(&discordgo.MessageCreate{Message: &discordgo.Message{
		ID:      "1",
		Content: "!jsk go ```go\n1 + 1\n```",
		Author:  &discordgo.User{ID: "owner"},
	}})

	assert.Equal(t, "```go\n1 + 1\n```", got)
}

func TestDispatchCheckRejectionStopsSubcommand(t *testing.T) {
	r := New(nil, "!")
	ran := false
	root := &Command{
		Name:  "jsk",
		Check: func(ctx *Context) error { return ErrNotOwner },
	}
	require.NoError(t, root.AddCommand(&Command{
		Name: "sh",
		Run: func(ctx *Context) error {
			ran = true
			return nil
		},
	}))
	require.NoError(t, r.Register(root))

	sender := &recordingSender{}
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:      "1",
		Content: "!jsk sh echo hi",
		Author:  &discordgo.User{ID: "someone"},
	}}
	ctxDispatchWithSender(r, m, sender)

	assert.False(t, ran)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "own this bot")
}

func TestDispatchHandlerErrorIsReplied(t *testing.T) {
	r := New(nil, "!")
	require.NoError(t, r.Register(&Command{
		Name: "jsk",
		Run: func(ctx *Context) error {
			return assert.AnError
		},
	}))

	sender := &recordingSender{}
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:      "1",
		Content: "!jsk",
		Author:  &discordgo.User{ID: "owner"},
	}}
	ctxDispatchWithSender(r, m, sender)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], assert.AnError.Error())
	assert.Contains(t, sender.reactions, "⚠️")
}

func TestReinvokeRunsResolvedCommand(t *testing.T) {
	r := New(nil, "!")
	var got string
	root := &Command{Name: "jsk"}
	require.NoError(t, root.AddCommand(&Command{
		Name: "echo",
		Run: func(ctx *Context) error {
			got = ctx.RawArgs
			return nil
		},
	}))
	require.NoError(t, r.Register(root))

	parent := &Context{Message: &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "1",
		ChannelID: "chan",
		Author:    &discordgo.User{ID: "owner"},
	}}}
	cmd, err := r.Reinvoke(parent, "jsk echo hello  world", false)
	require.NoError(t, err)
	assert.Equal(t, "jsk echo", cmd.QualifiedName())
	assert.Equal(t, "hello  world", got)
}

func TestReinvokeUnknownCommand(t *testing.T) {
	r := New(nil, "!")
	cmd, err := r.Reinvoke(&Context{}, "missing", false)
	assert.Nil(t, cmd)
	assert.Error(t, err)
}

func TestReinvokeChecksAndBypass(t *testing.T) {
	r := New(nil, "!")
	ran := false
	require.NoError(t, r.Register(&Command{
		Name:  "locked",
		Check: func(ctx *Context) error { return ErrNotOwner },
		Run: func(ctx *Context) error {
			ran = true
			return nil
		},
	}))

	parent := &Context{Message: &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:     "1",
		Author: &discordgo.User{ID: "someone"},
	}}}
	cmd, err := r.Reinvoke(parent, "locked", false)
	require.NotNil(t, cmd)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.False(t, ran)

	_, err = r.Reinvoke(parent, "locked", true)
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestContextWithAuthor(t *testing.T) {
	ctx := &Context{Message: &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "1",
		ChannelID: "chan",
		Author:    &discordgo.User{ID: "owner"},
	}}}

	clone := ctx.WithAuthor(&discordgo.User{ID: "target"})
	assert.Equal(t, "target", clone.Author().ID)
	assert.Equal(t, "owner", ctx.Author().ID)
	assert.Equal(t, "chan", clone.ChannelID())
}

func TestContextWithChannel(t *testing.T) {
	ctx := &Context{Message: &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "1",
		ChannelID: "chan",
		Author:    &discordgo.User{ID: "owner"},
	}}}

	clone := ctx.WithChannel("elsewhere")
	assert.Equal(t, "elsewhere", clone.ChannelID())
	assert.Equal(t, "chan", ctx.ChannelID())
	assert.Equal(t, "owner", clone.Author().ID)
}

func TestCutTokensPreservesTail(t *testing.T) {
	got := cutTokens("jsk go  line one\nline two", []string{"jsk", "go"})
	assert.Equal(t, "line one\nline two", got)
}

// ctxDispatchWithSender routes a dispatch through a recording sender by
// registering it on the built context via a wrapping check.
func ctxDispatchWithSender(r *Router, m *discordgo.MessageCreate, sender Sender) {
	for _, cmd := range r.Commands() {
		injectSender(cmd, sender)
	}
	r.dispatch(m)
}

func injectSender(cmd *Command, sender Sender) {
	prevCheck := cmd.Check
	cmd.Check = func(ctx *Context) error {
		ctx.Sender = sender
		if prevCheck != nil {
			return prevCheck(ctx)
		}
		return nil
	}
	prevRun := cmd.Run
	if prevRun != nil {
		cmd.Run = func(ctx *Context) error {
			ctx.Sender = sender
			return prevRun(ctx)
		}
	}
	for _, sub := range cmd.Subcommands() {
		injectSender(sub, sender)
	}
}
