// Package playback owns the shared "what is playing right now" record.
// Exactly one goroutine mutates it: all operations are funneled through a
// command channel and applied strictly in arrival order, which is what makes
// last-write-wins well defined without locks.
package playback

import (
	"context"
	"errors"
	"time"

	"github.com/akarpov/lanhub/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("playback machine stopped")

// Snapshot is a point-in-time read for a joining client. Position is already
// extrapolated when the state is playing.
type Snapshot struct {
	URL      *string
	Name     string
	Playing  bool
	Position float64
}

type cmdKind int

const (
	cmdChangeSource cmdKind = iota
	cmdPlay
	cmdPause
	cmdSeek
	cmdSnapshot
)

type command struct {
	kind   cmdKind
	video  domain.VideoDescriptor
	pos    float64
	hasPos bool
	reply  chan Snapshot
	done   chan struct{}
}

// Machine holds one room's playback record. Created with no source; lives for
// the process lifetime, only ever overwritten.
type Machine struct {
	room domain.RoomID
	cmds chan command

	// below are touched only by the Run goroutine
	url       *string
	name      string
	playing   bool
	position  float64
	updatedAt time.Time

	now func() time.Time
}

func NewMachine(room domain.RoomID) *Machine {
	return &Machine{
		room: room,
		cmds: make(chan command, 16),
		now:  time.Now,
	}
}

// Run applies commands until ctx is canceled. Must be running for any of the
// mutation or snapshot calls to return.
func (m *Machine) Run(ctx context.Context) {
	m.updatedAt = m.now()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "playback").Str("room", string(m.room)).Msg("machine stopped")
			return
		case c := <-m.cmds:
			m.apply(c)
		}
	}
}

func (m *Machine) apply(c command) {
	now := m.now()
	switch c.kind {
	case cmdChangeSource:
		url := c.video.URL
		m.url = &url
		m.name = c.video.Name
		m.playing = true
		m.position = 0
		m.updatedAt = now
		log.Info().Str("module", "playback").Str("room", string(m.room)).Str("url", url).Msg("source changed")
	case cmdPlay:
		m.playing = true
		m.position = c.pos
		m.updatedAt = now
	case cmdPause:
		m.playing = false
		if c.hasPos {
			m.position = c.pos
		}
		m.updatedAt = now
	case cmdSeek:
		m.position = c.pos
		m.updatedAt = now
	case cmdSnapshot:
		c.reply <- m.snapshot(now)
	}
	if c.done != nil {
		close(c.done)
	}
}

func (m *Machine) snapshot(now time.Time) Snapshot {
	s := Snapshot{URL: m.url, Name: m.name, Playing: m.playing, Position: m.position}
	if m.playing {
		s.Position += now.Sub(m.updatedAt).Seconds()
	}
	return s
}

// do blocks until the command has been applied, so callers observe their own
// transition and tests stay deterministic.
func (m *Machine) do(ctx context.Context, c command) error {
	c.done = make(chan struct{})
	select {
	case m.cmds <- c:
	case <-ctx.Done():
		return ErrStopped
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ErrStopped
	}
}

// ChangeSource switches to a new stored video: position resets to zero and
// playback starts immediately.
func (m *Machine) ChangeSource(ctx context.Context, v domain.VideoDescriptor) error {
	return m.do(ctx, command{kind: cmdChangeSource, video: v})
}

func (m *Machine) Play(ctx context.Context, pos float64) error {
	return m.do(ctx, command{kind: cmdPlay, pos: pos})
}

// Pause stops playback. The position is optional: it is recorded only when the
// caller supplied one, but the update time always advances.
func (m *Machine) Pause(ctx context.Context, pos *float64) error {
	c := command{kind: cmdPause}
	if pos != nil {
		c.pos = *pos
		c.hasPos = true
	}
	return m.do(ctx, c)
}

func (m *Machine) Seek(ctx context.Context, pos float64) error {
	return m.do(ctx, command{kind: cmdSeek, pos: pos})
}

// Snapshot returns the current record with the position extrapolated forward
// by elapsed wall-clock time when playing.
func (m *Machine) Snapshot(ctx context.Context) (Snapshot, error) {
	c := command{kind: cmdSnapshot, reply: make(chan Snapshot, 1)}
	select {
	case m.cmds <- c:
	case <-ctx.Done():
		return Snapshot{}, ErrStopped
	}
	select {
	case s := <-c.reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ErrStopped
	}
}
