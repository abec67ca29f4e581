package jishaku

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Minion3665/jishaku/pkg/command"
	"github.com/Minion3665/jishaku/pkg/config"
	"github.com/Minion3665/jishaku/pkg/paginator"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []string
	files    []string
}

func (s *recordingSender) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, content)
	return &discordgo.Message{ID: "reply", ChannelID: channelID, Content: content}, nil
}

func (s *recordingSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{ID: "reply", ChannelID: channelID}, nil
}

func (s *recordingSender) ChannelFileSend(channelID, name string, r io.Reader, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, name)
	return &discordgo.Message{ID: "reply", ChannelID: channelID}, nil
}

func (s *recordingSender) MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error {
	return nil
}

func (s *recordingSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return ""
	}
	return s.messages[len(s.messages)-1]
}

func newTestCog(t *testing.T, cfg config.Config) (*Cog, *command.Router) {
	t.Helper()
	if cfg.ExtensionDir == "" {
		cfg.ExtensionDir = t.TempDir()
	}
	router := command.New(nil, "!")
	cog := New(router, cfg)
	require.NoError(t, cog.Install())
	return cog, router
}

func testContext(sender *recordingSender, rawArgs string) *command.Context {
	return &command.Context{
		Message: &discordgo.MessageCreate{Message: &discordgo.Message{
			ID:        "invoke",
			ChannelID: "chan",
			Author:    &discordgo.User{ID: "owner", Username: "owner"},
		}},
		Prefix:  "!",
		RawArgs: rawArgs,
		Args:    strings.Fields(rawArgs),
		Sender:  sender,
	}
}

func TestInstallBuildsCommandTree(t *testing.T) {
	_, router := newTestCog(t, config.Config{})

	for _, path := range []string{
		"jishaku", "jsk", "jsk go", "jsk eval", "jsk go_inspect", "jsk sh",
		"jsk git", "jsk load", "jsk reload", "jsk unload", "jsk cat",
		"jsk curl", "jsk source", "jsk tasks", "jsk cancel", "jsk retain",
		"jsk prefix", "jsk prefixrepl", "jsk rtt", "jsk shutdown", "jsk hide",
		"jsk show", "jsk su", "jsk sudo", "jsk in", "jsk repeat", "jsk debug",
		"jsk dbg",
		"jsk voice", "jsk voice join", "jsk voice play", "jsk voice volume",
		"jsk voice clients",
	} {
		assert.NotNil(t, router.Find(path), "missing command %q", path)
	}
}

func TestInstallRecordsHandlerSources(t *testing.T) {
	_, router := newTestCog(t, config.Config{})
	cmd := router.Find("jsk go")
	require.NotNil(t, cmd)
	assert.Contains(t, cmd.SourcePath, "eval.go")
}

func TestHideToggles(t *testing.T) {
	cog, router := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.hideCommand(true)(testContext(sender, "")))
	assert.True(t, router.Find("jishaku").Hidden)
	assert.Equal(t, "Jishaku is now hidden.", sender.last())

	require.NoError(t, cog.hideCommand(true)(testContext(sender, "")))
	assert.Equal(t, "Jishaku is already hidden.", sender.last())

	require.NoError(t, cog.hideCommand(false)(testContext(sender, "")))
	assert.False(t, router.Find("jishaku").Hidden)
}

func TestRetainToggles(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.retainCommand(testContext(sender, "on")))
	assert.Contains(t, sender.last(), "retention is ON")

	require.NoError(t, cog.retainCommand(testContext(sender, "on")))
	assert.Contains(t, sender.last(), "already set to ON")

	require.NoError(t, cog.retainCommand(testContext(sender, "off")))
	assert.Contains(t, sender.last(), "retention is OFF")
}

func TestRetainedScopeSurvivesAcrossEvals(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{Retain: true})
	sender := &recordingSender{}

	require.NoError(t, cog.evalCommand(testContext(sender, "stash := 99")))
	require.NoError(t, cog.evalCommand(testContext(sender, "stash")))
	assert.Equal(t, "99", sender.last())
}

func TestEphemeralScopeIsDiscarded(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.evalCommand(testContext(sender, "stash := 99")))
	err := cog.evalCommand(testContext(sender, "stash"))
	assert.Error(t, err)
}

func TestEvalRepliesWithResult(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.evalCommand(testContext(sender, "2 + 2")))
	assert.Equal(t, "4", sender.last())
}

func TestEvalParsesCodeblock(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.evalCommand(testContext(sender, "```go\n\"hi\" + \"!\"\n```")))
	assert.Equal(t, "hi!", sender.last())
}

func TestEvalBindsLastResult(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.evalCommand(testContext(sender, "21 * 2")))
	require.NoError(t, cog.evalCommand(testContext(sender, "_last")))
	assert.Equal(t, "42", sender.last())
}

func TestEvalScopePrefixConfigurable(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{NoUnderscore: true})
	sender := &recordingSender{}

	require.NoError(t, cog.evalCommand(testContext(sender, "7 * 3")))
	require.NoError(t, cog.evalCommand(testContext(sender, "last")))
	assert.Equal(t, "21", sender.last())
}

func TestEvalEmptyInputAsksForCode(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.evalCommand(testContext(sender, "")))
	assert.Contains(t, sender.last(), "What do you want to evaluate")
}

func TestInspectRendersFacts(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.inspectCommand(testContext(sender, "\"hello\"")))
	last := sender.last()
	assert.Contains(t, last, "```prolog")
	assert.Contains(t, last, "string")
}

func TestLoadCommandRegistersExtension(t *testing.T) {
	dir := t.TempDir()
	src := `package greet

import "github.com/Minion3665/jishaku/pkg/command"

func Setup(r *command.Router) error {
	return r.Register(&command.Command{Name: "greet", Run: func(ctx *command.Context) error { return nil }})
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greet.go"), []byte(src), 0o644))

	cog, router := newTestCog(t, config.Config{ExtensionDir: dir})
	sender := &recordingSender{}

	require.NoError(t, cog.extensionCommand(actionLoad)(testContext(sender, "greet")))
	assert.Contains(t, sender.last(), "📥 `greet`")
	assert.NotNil(t, router.Find("greet"))

	require.NoError(t, cog.extensionCommand(actionUnload)(testContext(sender, "~")))
	assert.Contains(t, sender.last(), "📤 `greet`")
	assert.Nil(t, router.Find("greet"))
}

func TestExtensionCommandReportsFailures(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.extensionCommand(actionLoad)(testContext(sender, "ghost")))
	assert.Contains(t, sender.last(), "⚠ `ghost`")
}

func TestCancelRejectsNonNumericIndex(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.cancelCommand(testContext(sender, "banana")))
	assert.Contains(t, sender.last(), "task index")
}

func TestTasksCommandEmpty(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.tasksCommand(testContext(sender, "")))
	assert.Contains(t, sender.last(), "No currently running tasks")
}

func TestPrefixCommandShowsScopePrefix(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.prefixCommand(testContext(sender, "")))
	assert.Contains(t, sender.last(), "`_`")
}

func TestPrefixCommandSetsScopePrefix(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.prefixCommand(testContext(sender, "jsk_")))
	assert.Equal(t, "Done.", sender.last())

	require.NoError(t, cog.evalCommand(testContext(sender, "6 * 7")))
	require.NoError(t, cog.evalCommand(testContext(sender, "jsk_last")))
	assert.Equal(t, "42", sender.last())

	require.NoError(t, cog.prefixCommand(testContext(sender, "")))
	assert.Contains(t, sender.last(), "`jsk_`")
}

func TestPrefixCommandOffRemovesPrefix(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.prefixCommand(testContext(sender, "off")))
	require.NoError(t, cog.evalCommand(testContext(sender, "11 + 1")))
	require.NoError(t, cog.evalCommand(testContext(sender, "last")))
	assert.Equal(t, "12", sender.last())

	require.NoError(t, cog.prefixCommand(testContext(sender, "")))
	assert.Contains(t, sender.last(), "not prefixed")
}

func TestPrefixCommandRejectsInvalidIdentifier(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.prefixCommand(testContext(sender, "9x")))
	assert.Contains(t, sender.last(), "cannot start a Go identifier")
}

func TestStatusCommandWithoutSession(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	require.NoError(t, cog.statusCommand(testContext(sender, "")))
	assert.Contains(t, sender.last(), "Jishaku v"+Version)
}

func TestCatCommandDisplaysOwnSource(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	require.NoError(t, os.WriteFile(path, []byte("package sample\n\nvar x = 1\n"), 0o644))

	require.NoError(t, cog.catCommand(testContext(sender, path)))
	last := sender.last()
	assert.Contains(t, last, "```go")
	assert.Contains(t, last, "var x = 1")
}

func TestCatCommandLineSpan(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	dir := t.TempDir()
	path := filepath.Join(dir, "lines.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o644))

	require.NoError(t, cog.catCommand(testContext(sender, path+"#L2-L3")))
	last := sender.last()
	assert.Contains(t, last, "two")
	assert.Contains(t, last, "three")
	assert.NotContains(t, last, "one")
}

func TestCatCommandEmptyFile(t *testing.T) {
	cog, _ := newTestCog(t, config.Config{})
	sender := &recordingSender{}

	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	require.NoError(t, cog.catCommand(testContext(sender, path)))
	assert.Contains(t, sender.last(), "is empty")
}

func TestParseLineSpan(t *testing.T) {
	path, span := parseLineSpan("file.py#L10-L20")
	assert.Equal(t, "file.py", path)
	require.NotNil(t, span)
	assert.Equal(t, paginator.LineSpan{Start: 10, End: 20}, *span)

	path, span = parseLineSpan("file.py#L7")
	assert.Equal(t, "file.py", path)
	require.NotNil(t, span)
	assert.Equal(t, paginator.LineSpan{Start: 7, End: 7}, *span)

	path, span = parseLineSpan("plain/path.txt")
	assert.Equal(t, "plain/path.txt", path)
	assert.Nil(t, span)
}

func TestFirstLineTruncation(t *testing.T) {
	assert.Equal(t, "short", firstLine("short", 60))
	assert.Equal(t, "one…", firstLine("one\ntwo", 60))
	assert.Equal(t, strings.Repeat("x", 10)+"…", firstLine(strings.Repeat("x", 40), 10))
}
