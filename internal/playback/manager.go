package playback

import (
	"context"
	"sync"

	"github.com/akarpov/lanhub/internal/domain"
)

// Manager hands out one machine per room and owns their run loops.
type Manager struct {
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*Machine
}

func NewManager(parent context.Context) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		ctx:    ctx,
		cancel: cancel,
		rooms:  make(map[domain.RoomID]*Machine),
	}
}

func (mg *Manager) GetOrCreate(room domain.RoomID) *Machine {
	mg.mu.RLock()
	m, ok := mg.rooms[room]
	mg.mu.RUnlock()
	if ok {
		return m
	}

	mg.mu.Lock()
	defer mg.mu.Unlock()
	if m, ok = mg.rooms[room]; !ok {
		m = NewMachine(room)
		mg.rooms[room] = m
		go m.Run(mg.ctx)
	}
	return m
}

func (mg *Manager) Stop() { mg.cancel() }
