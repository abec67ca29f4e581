package paginator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Minion3665/jishaku/pkg/logger"
)

const (
	emojiFirst = "⏮"
	emojiPrev  = "◀"
	emojiNext  = "▶"
	emojiLast  = "⏭"
	emojiClose = "⏹"

	// DefaultIdleTimeout closes an interface with no navigation activity.
	DefaultIdleTimeout = 10 * time.Minute

	editInterval = 750 * time.Millisecond
)

var navigationEmojis = []string{emojiFirst, emojiPrev, emojiNext, emojiLast, emojiClose}

// Session is the subset of discordgo.Session the interface needs.
// *discordgo.Session satisfies it.
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageReactionsRemoveAll(channelID, messageID string, options ...discordgo.RequestOption) error
	AddHandler(handler interface{}) func()
}

type op int

const (
	opRefresh op = iota
	opFirst
	opPrev
	opNext
	opLast
	opClose
)

// Interface presents a Paginator as a single live-edited message with
// reaction navigation. Only the owner's reactions are honoured. The
// interface transitions to a terminal closed state on explicit close or idle
// timeout; navigation after close is ignored.
type Interface struct {
	session   Session
	paginator *Paginator
	ownerID   string
	id        string

	// IdleTimeout overrides DefaultIdleTimeout when set before SendTo.
	IdleTimeout time.Duration

	mu            sync.Mutex
	pageIndex     int
	follow        bool
	closed        bool
	message       *discordgo.Message
	removeHandler func()

	events  chan op
	done    chan struct{}
	limiter *rate.Limiter
}

// NewInterface wraps a paginator for interactive display, honouring only
// reactions from ownerID.
func NewInterface(session Session, p *Paginator, ownerID string) *Interface {
	return &Interface{
		session:   session,
		paginator: p,
		ownerID:   ownerID,
		id:        uuid.NewString(),
		follow:    true,
		events:    make(chan op, 16),
		done:      make(chan struct{}),
		limiter:   rate.NewLimiter(rate.Every(editInterval), 1),
	}
}

// Closed reports whether the interface reached its terminal state.
func (i *Interface) Closed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// PageIndex returns the currently displayed page.
func (i *Interface) PageIndex() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pageIndex
}

// Message returns the message showing the interface, once sent.
func (i *Interface) Message() *discordgo.Message {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.message
}

// SendTo posts the interface into a channel and starts handling navigation.
func (i *Interface) SendTo(ctx context.Context, channelID string) error {
	pages := i.paginator.Pages()
	i.mu.Lock()
	i.pageIndex = len(pages) - 1

	msg, err := i.session.ChannelMessageSend(channelID, i.renderLocked(pages))
	if err != nil {
		i.mu.Unlock()
		return fmt.Errorf("send paginator message: %w", err)
	}
	i.message = msg
	i.mu.Unlock()

	for _, emoji := range navigationEmojis {
		if err := i.session.MessageReactionAdd(channelID, msg.ID, emoji); err != nil {
			logger.DebugCF("paginator", "Failed to add navigation reaction", map[string]any{
				"id":    i.id,
				"emoji": emoji,
				"error": err.Error(),
			})
		}
	}

	i.removeHandler = i.session.AddHandler(i.onReaction)
	go i.run(ctx)
	return nil
}

// AddLine appends a line to the underlying paginator and refreshes the
// display. While the reader has not navigated backwards the view follows the
// last page, which is how live shell output tails.
func (i *Interface) AddLine(line string) {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.paginator.AddLine(line)
	i.mu.Unlock()

	select {
	case i.events <- opRefresh:
	default:
		// A refresh is already queued; edits are coalesced.
	}
}

// Close terminates the interface explicitly.
func (i *Interface) Close() {
	select {
	case i.events <- opClose:
	case <-i.done:
	}
}

func (i *Interface) onReaction(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	msg := i.Message()
	if msg == nil || r.MessageID != msg.ID || r.UserID != i.ownerID {
		return
	}
	if i.Closed() {
		return
	}

	var o op
	switch r.Emoji.Name {
	case emojiFirst:
		o = opFirst
	case emojiPrev:
		o = opPrev
	case emojiNext:
		o = opNext
	case emojiLast:
		o = opLast
	case emojiClose:
		o = opClose
	default:
		return
	}

	select {
	case i.events <- o:
	default:
	}
}

func (i *Interface) run(ctx context.Context) {
	timeout := i.IdleTimeout
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	idle := time.NewTimer(timeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			i.cleanup()
			return
		case <-idle.C:
			i.cleanup()
			return
		case o := <-i.events:
			if o == opClose {
				i.cleanup()
				return
			}
			if o != opRefresh {
				if !idle.Stop() {
					<-idle.C
				}
				idle.Reset(timeout)
			}
			i.apply(ctx, o)
		}
	}
}

// apply performs one navigation step and re-renders. Moves past either end
// are no-ops.
func (i *Interface) apply(ctx context.Context, o op) {
	i.mu.Lock()
	pages := i.paginator.Pages()
	last := len(pages) - 1

	prev := i.pageIndex
	switch o {
	case opFirst:
		i.pageIndex = 0
		i.follow = false
	case opPrev:
		if i.pageIndex > 0 {
			i.pageIndex--
		}
		i.follow = false
	case opNext:
		if i.pageIndex < last {
			i.pageIndex++
		}
		i.follow = i.pageIndex == last
	case opLast:
		i.pageIndex = last
		i.follow = true
	case opRefresh:
		if i.follow {
			i.pageIndex = last
		}
	}

	if o != opRefresh && i.pageIndex == prev {
		i.mu.Unlock()
		return
	}

	content := i.renderLocked(pages)
	msg := i.message
	i.mu.Unlock()

	if msg == nil {
		return
	}
	if err := i.limiter.Wait(ctx); err != nil {
		return
	}
	if _, err := i.session.ChannelMessageEdit(msg.ChannelID, msg.ID, content); err != nil {
		logger.WarnCF("paginator", "Failed to edit page", map[string]any{
			"id":    i.id,
			"error": err.Error(),
		})
	}
}

// renderLocked formats the current page with its position footer. Callers
// hold i.mu.
func (i *Interface) renderLocked(pages []string) string {
	if i.pageIndex > len(pages)-1 {
		i.pageIndex = len(pages) - 1
	}
	body := pages[i.pageIndex]
	return fmt.Sprintf("%s\nPage %d/%d", body, i.pageIndex+1, len(pages))
}

func (i *Interface) cleanup() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.closed = true
	msg := i.message
	remove := i.removeHandler
	i.removeHandler = nil
	i.mu.Unlock()

	close(i.done)
	if remove != nil {
		remove()
	}
	if msg != nil {
		// Best effort; the channel may forbid reaction management.
		_ = i.session.MessageReactionsRemoveAll(msg.ChannelID, msg.ID)
	}
	logger.DebugCF("paginator", "Interface closed", map[string]any{"id": i.id})
}
