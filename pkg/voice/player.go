package voice

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jonas747/dca"

	"github.com/Minion3665/jishaku/pkg/logger"
)

// defaultVolume is the percent level applied to new players.
const defaultVolume = 100

// sendTimeout bounds how long a frame may wait on the voice connection
// before the stream is abandoned.
const sendTimeout = time.Second

// Player streams audio into one guild's voice connection. Transport state
// (playing, paused, idle) is owned here; the Manager owns the lifecycle.
type Player struct {
	guildID string

	mu     sync.Mutex
	conn   *discordgo.VoiceConnection
	encode *dca.EncodeSession
	track  string
	paused bool
	volume int
	stop   chan struct{}
	done   chan struct{}
}

func newPlayer(guildID string) *Player {
	return &Player{guildID: guildID, volume: defaultVolume}
}

func (p *Player) setConnection(conn *discordgo.VoiceConnection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn = conn
}

// Play transcodes the file at path and starts streaming it, replacing any
// current track.
func (p *Player) Play(path string) error {
	p.mu.Lock()
	conn := p.conn
	volume := p.volume
	p.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	p.Stop()

	opts := dca.StdEncodeOptions
	opts.RawOutput = true
	opts.Bitrate = 128
	opts.Volume = volume * 256 / 100

	encode, err := dca.EncodeFile(path, opts)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	p.mu.Lock()
	p.encode = encode
	p.track = path
	p.paused = false
	p.stop = stop
	p.done = done
	p.mu.Unlock()

	logger.InfoCF("voice", "Starting playback", map[string]interface{}{
		"guild":  p.guildID,
		"track":  path,
		"volume": volume,
	})
	go p.stream(encode, conn, stop, done)
	return nil
}

// stream pumps opus frames from the encoder to the connection until the
// track ends, the stop channel closes, or the send stalls.
func (p *Player) stream(encode *dca.EncodeSession, conn *discordgo.VoiceConnection, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer encode.Cleanup()
	defer p.clearTrack()

	if err := conn.Speaking(true); err != nil {
		logger.WarnC("voice", "Failed to set speaking state: "+err.Error())
	}
	defer conn.Speaking(false)

	for {
		select {
		case <-stop:
			return
		default:
		}

		if p.Paused() {
			select {
			case <-stop:
				return
			case <-time.After(20 * time.Millisecond):
			}
			continue
		}

		frame, err := encode.OpusFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.ErrorC("voice", "Opus frame read failed: "+err.Error())
			}
			return
		}

		select {
		case conn.OpusSend <- frame:
		case <-stop:
			return
		case <-time.After(sendTimeout):
			logger.WarnC("voice", "Voice send stalled, stopping playback in guild "+p.guildID)
			return
		}
	}
}

func (p *Player) clearTrack() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.encode = nil
	p.track = ""
	p.paused = false
	p.stop = nil
	p.done = nil
}

// Stop halts the current track. A no-op when idle, safe to call
// concurrently: the stop channel is claimed under the lock so only one
// caller closes it.
func (p *Player) Stop() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop = nil
	p.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	if done != nil {
		<-done
	}
}

// Pause suspends frame delivery without discarding the encoder.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.encode == nil {
		return ErrNotPlaying
	}
	p.paused = true
	return nil
}

// Resume continues a paused track.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.encode == nil {
		return ErrNotPlaying
	}
	p.paused = false
	return nil
}

// SetVolume stores a new percent level. The level is baked into the opus
// stream at encode time, so a track already playing keeps its old level and
// ErrLiveVolumeUnsupported is returned to say so.
func (p *Player) SetVolume(percent int) error {
	if percent < 0 || percent > 200 {
		return fmt.Errorf("volume must be between 0%% and 200%%, got %d%%", percent)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = percent
	if p.encode != nil {
		return ErrLiveVolumeUnsupported
	}
	return nil
}

// Volume reports the configured percent level.
func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Playing reports whether a track is loaded, paused or not.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encode != nil
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Track reports the path of the loaded track, empty when idle.
func (p *Player) Track() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.track
}

// State summarizes transport state for status output.
func (p *Player) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.encode == nil:
		return "idle"
	case p.paused:
		return "paused"
	default:
		return "playing"
	}
}

func (p *Player) disconnect() error {
	p.Stop()
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Disconnect()
}
