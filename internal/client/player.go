package client

import (
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Player is the local playback surface the sync client drives. Implementations
// backed by a real media element may report programmatic transitions
// (Load/Play/Pause/SeekTo calls) back through the Local* methods of Sync,
// synchronously from within the call; the remote-apply guard suppresses those
// echoes. Headless implementations may equally report nothing.
type Player interface {
	Load(url string, autoplay bool)
	Play()
	Pause()
	SeekTo(pos float64)
	Position() float64
}

// MediaSource is an opaque captured media stream handed to peer connections.
// Close must release the underlying device synchronously.
type MediaSource interface {
	Tracks() []webrtc.TrackLocal
	Close() error
}

// LoggingPlayer is the headless agent's player: it logs transitions and keeps
// a wall-clock extrapolated position so drift checks still work.
type LoggingPlayer struct {
	mu        sync.Mutex
	url       string
	playing   bool
	position  float64
	updatedAt time.Time
	now       func() time.Time
}

func NewLoggingPlayer() *LoggingPlayer {
	return &LoggingPlayer{now: time.Now, updatedAt: time.Now()}
}

func (p *LoggingPlayer) Load(url string, autoplay bool) {
	p.mu.Lock()
	p.url = url
	p.playing = autoplay
	p.position = 0
	p.updatedAt = p.now()
	p.mu.Unlock()
	log.Info().Str("module", "client.player").Str("url", url).Bool("autoplay", autoplay).Msg("load")
}

func (p *LoggingPlayer) Play() {
	p.mu.Lock()
	p.position = p.positionLocked()
	p.playing = true
	p.updatedAt = p.now()
	p.mu.Unlock()
	log.Info().Str("module", "client.player").Msg("play")
}

func (p *LoggingPlayer) Pause() {
	p.mu.Lock()
	p.position = p.positionLocked()
	p.playing = false
	p.updatedAt = p.now()
	p.mu.Unlock()
	log.Info().Str("module", "client.player").Msg("pause")
}

func (p *LoggingPlayer) SeekTo(pos float64) {
	p.mu.Lock()
	p.position = pos
	p.updatedAt = p.now()
	p.mu.Unlock()
	log.Info().Str("module", "client.player").Float64("pos", pos).Msg("seek")
}

func (p *LoggingPlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *LoggingPlayer) positionLocked() float64 {
	if !p.playing {
		return p.position
	}
	return p.position + p.now().Sub(p.updatedAt).Seconds()
}
