package client

import (
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/akarpov/lanhub/internal/domain"
	"github.com/akarpov/lanhub/internal/protocol"
)

// SeekTolerance is the drift below which a remote position is not applied;
// seeking on every network-latency wobble makes playback stutter visibly.
const SeekTolerance = 0.5

// Emitter sends one frame to the server.
type Emitter func(v any) error

type syncState int

const (
	syncIdle syncState = iota
	// syncApplying means a remote transition is being applied: any local
	// player event observed now is its echo and must not be re-emitted.
	syncApplying
)

// Sync reconciles local player events with remote playback transitions. The
// two event sources exclude each other through an explicit guard state: remote
// application arms it for the duration of the apply call and releases it on
// return, so players that echo programmatic transitions synchronously are
// suppressed, while players that never echo cannot have a later genuine local
// event swallowed.
type Sync struct {
	player Player
	emit   Emitter

	mu    sync.Mutex
	state syncState
}

func NewSync(player Player, emit Emitter) *Sync {
	return &Sync{player: player, emit: emit}
}

func (s *Sync) arm() {
	s.mu.Lock()
	s.state = syncApplying
	s.mu.Unlock()
}

func (s *Sync) disarm() {
	s.mu.Lock()
	s.state = syncIdle
	s.mu.Unlock()
}

// consume reports whether the current local event was caused by a remote
// application, resetting the guard either way.
func (s *Sync) consume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == syncApplying {
		s.state = syncIdle
		return true
	}
	return false
}

// LocalPlay is called when the local player starts playing by user action.
func (s *Sync) LocalPlay() {
	if s.consume() {
		return
	}
	s.send(protocol.PlaybackEvent{Type: protocol.TypeVideoPlay, Position: s.player.Position()})
}

// LocalPause always reports the pause position so everyone lands on the same
// frame.
func (s *Sync) LocalPause() {
	if s.consume() {
		return
	}
	pos := s.player.Position()
	s.send(protocol.Pause{Type: protocol.TypeVideoPause, Position: &pos})
}

func (s *Sync) LocalSeek() {
	if s.consume() {
		return
	}
	s.send(protocol.PlaybackEvent{Type: protocol.TypeVideoSeek, Position: s.player.Position()})
}

// LocalChangeSource is always user-originated; source switches are never
// echoed back by the server to the originator.
func (s *Sync) LocalChangeSource(v domain.VideoDescriptor) {
	s.player.Load(v.URL, true)
	s.send(protocol.ChangeSource{Type: protocol.TypeVideoChangeSource, Name: v.Name, URL: v.URL})
}

func (s *Sync) ApplyRemotePlay(pos float64) {
	s.arm()
	defer s.disarm()
	if math.Abs(s.player.Position()-pos) > SeekTolerance {
		s.player.SeekTo(pos)
	}
	s.player.Play()
}

func (s *Sync) ApplyRemotePause(pos *float64) {
	s.arm()
	defer s.disarm()
	if pos != nil && math.Abs(s.player.Position()-*pos) > SeekTolerance {
		s.player.SeekTo(*pos)
	}
	s.player.Pause()
}

func (s *Sync) ApplyRemoteSeek(pos float64) {
	s.arm()
	defer s.disarm()
	s.player.SeekTo(pos)
}

func (s *Sync) ApplyRemoteChangeSource(v domain.VideoDescriptor) {
	s.arm()
	defer s.disarm()
	s.player.Load(v.URL, true)
}

// Adopt initializes the player from a join snapshot. Pure adoption: nothing is
// emitted back, this is not a locally-originated transition.
func (s *Sync) Adopt(snap protocol.StateSnapshot) {
	if snap.URL == nil {
		return
	}
	s.arm()
	defer s.disarm()
	s.player.Load(*snap.URL, snap.Playing)
	s.player.SeekTo(snap.Position)
	if snap.Playing {
		s.player.Play()
	} else {
		s.player.Pause()
	}
	log.Info().Str("module", "client.sync").Str("url", *snap.URL).Bool("playing", snap.Playing).Float64("pos", snap.Position).Msg("adopted snapshot")
}

func (s *Sync) send(v any) {
	if err := s.emit(v); err != nil {
		log.Error().Err(err).Str("module", "client.sync").Msg("emit")
	}
}
