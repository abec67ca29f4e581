// Package voice manages per-guild voice connections and audio playback.
// Audio files are transcoded to opus with ffmpeg via dca and streamed frame
// by frame onto the voice connection.
package voice

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/Minion3665/jishaku/pkg/logger"
)

var (
	// ErrNotConnected is returned for playback operations in a guild with no
	// voice connection.
	ErrNotConnected = errors.New("not connected to a voice channel in this guild")
	// ErrNotPlaying is returned for transport operations when nothing is
	// playing.
	ErrNotPlaying = errors.New("nothing is playing in this guild")
	// ErrLiveVolumeUnsupported is returned when the volume is changed during
	// playback; the encoded stream cannot be rescaled in place.
	ErrLiveVolumeUnsupported = errors.New("the current stream does not support live volume changes; the new level applies to the next track")
)

// Manager tracks one Player per connected guild.
type Manager struct {
	mu      sync.Mutex
	players map[string]*Player
}

func NewManager() *Manager {
	return &Manager{players: make(map[string]*Player)}
}

// Join connects to a voice channel, reusing (and moving) an existing guild
// connection when present.
func (m *Manager) Join(s *discordgo.Session, guildID, channelID string) (*Player, error) {
	conn, err := s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("join voice channel: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[guildID]
	if !ok {
		p = newPlayer(guildID)
		m.players[guildID] = p
	}
	p.setConnection(conn)
	logger.InfoCF("voice", "Joined voice channel", map[string]interface{}{
		"guild":   guildID,
		"channel": channelID,
	})
	return p, nil
}

// Get returns the player for a guild, if connected.
func (m *Manager) Get(guildID string) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[guildID]
	return p, ok
}

// Disconnect stops playback and leaves the guild's voice channel.
func (m *Manager) Disconnect(guildID string) error {
	m.mu.Lock()
	p, ok := m.players[guildID]
	delete(m.players, guildID)
	m.mu.Unlock()

	if !ok {
		return ErrNotConnected
	}
	logger.InfoC("voice", "Disconnecting from guild "+guildID)
	return p.disconnect()
}

// Guilds returns the guild IDs with an active player, sorted.
func (m *Manager) Guilds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.players))
	for guildID := range m.players {
		out = append(out, guildID)
	}
	sort.Strings(out)
	return out
}

// Shutdown disconnects every guild. Used on bot teardown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.players = make(map[string]*Player)
	m.mu.Unlock()

	for _, p := range players {
		if err := p.disconnect(); err != nil {
			logger.WarnC("voice", "Disconnect during shutdown failed: "+err.Error())
		}
	}
}
