package jishaku

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Minion3665/jishaku/pkg/command"
	"github.com/Minion3665/jishaku/pkg/config"
)

func TestDebugCommandReportsTiming(t *testing.T) {
	cog, router := newTestCog(t, config.Config{})
	sender := &recordingSender{}
	require.NoError(t, router.Register(&command.Command{
		Name: "say",
		Run:  func(ctx *command.Context) error { return nil },
	}))

	require.NoError(t, cog.debugCommand(testContext(sender, "say hi")))
	assert.Contains(t, sender.last(), "Command `say` finished in")
}

func TestDebugCommandReportsFailure(t *testing.T) {
	cog, router := newTestCog(t, config.Config{})
	sender := &recordingSender{}
	require.NoError(t, router.Register(&command.Command{
		Name: "boom",
		Run:  func(ctx *command.Context) error { return assert.AnError },
	}))

	require.NoError(t, cog.debugCommand(testContext(sender, "boom")))
	assert.Contains(t, sender.last(), "Command `boom` failed after")
}

func TestDebugCommandUnknownCommand(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.debugCommand(testContext(sender, "nope args")))
	assert.Equal(t, "Command \"nope\" is not found.", sender.last())
}

func TestRepeatCommandRunsNTimes(t *testing.T) {
	cog, router := newTestCog(t, config.Config{})
	sender := &recordingSender{}
	count := 0
	require.NoError(t, router.Register(&command.Command{
		Name: "tick",
		Run: func(ctx *command.Context) error {
			count++
			return nil
		},
	}))

	require.NoError(t, cog.repeatCommand(testContext(sender, "3 tick")))
	assert.Equal(t, 3, count)
}

func TestRepeatCommandRejectsBadCount(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.repeatCommand(testContext(sender, "zero tick")))
	assert.Contains(t, sender.last(), "positive repeat count")
}

func TestSudoCommandBypassesChecks(t *testing.T) {
	cog, router := newTestCog(t, config.Config{})
	sender := &recordingSender{}
	ran := false
	require.NoError(t, router.Register(&command.Command{
		Name:  "locked",
		Check: func(ctx *command.Context) error { return command.ErrNotOwner },
		Run: func(ctx *command.Context) error {
			ran = true
			return nil
		},
	}))

	require.NoError(t, cog.sudoCommand(testContext(sender, "locked")))
	assert.True(t, ran)
}

func TestSuCommandRunsAsTarget(t *testing.T) {
	cog, router := newTestCog(t, config.Config{})
	sender := &recordingSender{}
	var author string
	require.NoError(t, router.Register(&command.Command{
		Name: "whoami",
		Run: func(ctx *command.Context) error {
			author = ctx.Author().ID
			return nil
		},
	}))

	require.NoError(t, cog.suCommand(testContext(sender, "<@999> whoami")))
	assert.Equal(t, "999", author)
}

func TestSuCommandRejectsUnresolvableUser(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.suCommand(testContext(sender, "not-a-user whoami")))
	assert.Contains(t, sender.last(), "could not resolve user")
}

func TestInCommandRebindsChannel(t *testing.T) {
	cog, router := newTestCog(t, config.Config{})
	sender := &recordingSender{}
	var channel string
	require.NoError(t, router.Register(&command.Command{
		Name: "where",
		Run: func(ctx *command.Context) error {
			channel = ctx.ChannelID()
			return nil
		},
	}))

	require.NoError(t, cog.inCommand(testContext(sender, "<#elsewhere> where")))
	assert.Equal(t, "elsewhere", channel)
}

func TestArgTail(t *testing.T) {
	assert.Equal(t, "jsk go 1 + 1", argTail("3 jsk go 1 + 1", 1))
	assert.Equal(t, "line one\nline two", argTail("<@1>  line one\nline two", 1))
	assert.Equal(t, "", argTail("solo", 1))
}
