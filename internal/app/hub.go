package app

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/akarpov/lanhub/internal/core"
	"github.com/akarpov/lanhub/internal/domain"
	"github.com/akarpov/lanhub/internal/playback"
	"github.com/akarpov/lanhub/internal/protocol"
)

// Hub is the relay: chat fan-out, directed signaling, presence and playback
// transitions all pass through here. It never validates payload contents, it
// only routes them.
type Hub struct {
	Registry  *Registry
	Playback  *playback.Manager
	ChatLimit ChatLimiter
}

func NewHub(reg *Registry, pb *playback.Manager, limit ChatLimiter) *Hub {
	if limit == nil {
		limit = NoChatLimit()
	}
	return &Hub{Registry: reg, Playback: pb, ChatLimit: limit}
}

// broadcast fans v out to every member of room. except skips one session id;
// pass "" to include everyone. Slow consumers are skipped, never waited on.
func (h *Hub) broadcast(room domain.RoomID, except core.SessionID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("broadcast marshal")
		return
	}
	for _, m := range h.Registry.MembersOf(room) {
		if m.SID == except {
			continue
		}
		if err := m.Session.Signal().TrySend(core.Frame(b)); err != nil {
			log.Warn().Err(err).Str("module", "app.hub").Str("sid", string(m.SID)).Msg("broadcast drop")
		}
	}
}

// SubmitChat relays msg verbatim to every connected participant, the sender
// included: the sender renders the echo, it never appends locally.
func (h *Hub) SubmitChat(room domain.RoomID, from core.SessionID, msg domain.ChatMessage) {
	if !h.ChatLimit.Allow(from) {
		log.Warn().Str("module", "app.hub").Str("sid", string(from)).Msg("chat rate limited")
		return
	}
	h.broadcast(room, "", protocol.ChatMessage{Type: protocol.TypeChatMessage, ChatMessage: msg})
}

// AnnounceJoin tells everyone else that from entered the stream room, so an
// active broadcaster can initiate a connection toward it.
func (h *Hub) AnnounceJoin(room domain.RoomID, from core.SessionID) {
	log.Info().Str("module", "app.hub").Str("sid", string(from)).Msg("joining stream")
	h.broadcast(room, from, protocol.Presence{Type: protocol.TypeUserConnected, ID: string(from)})
}

// NotifyDisconnect broadcasts a presence drop so clients can release the
// departing participant's peer links. Connection loss is a normal event.
func (h *Hub) NotifyDisconnect(room domain.RoomID, sid core.SessionID) {
	h.broadcast(room, sid, protocol.Presence{Type: protocol.TypeUserDisconnected, ID: string(sid)})
}

// RelaySignal delivers a negotiation payload to exactly target, stamping the
// true sender id. A client-supplied sender field is never trusted. If target
// is not connected the payload is dropped silently; the initiating side owns
// detecting the stalled negotiation.
func (h *Hub) RelaySignal(from, target core.SessionID, sig json.RawMessage) {
	sess, ok := h.Registry.Get(target)
	if !ok {
		log.Debug().Str("module", "app.hub").Str("target", string(target)).Msg("signal target not connected, dropped")
		return
	}
	out := protocol.SignalEnvelope{
		Type:   protocol.TypeSignal,
		Sender: string(from),
		Signal: sig,
	}
	b, err := json.Marshal(out)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("signal marshal")
		return
	}
	if err := sess.Signal().TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "app.hub").Str("target", string(target)).Msg("signal send")
	}
}

// ChangeSource applies the transition and rebroadcasts it to everyone except
// the originator, who already switched locally.
func (h *Hub) ChangeSource(ctx context.Context, room domain.RoomID, from core.SessionID, v domain.VideoDescriptor) {
	if err := h.Playback.GetOrCreate(room).ChangeSource(ctx, v); err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("change source")
		return
	}
	h.broadcast(room, from, protocol.ChangeSource{Type: protocol.TypeVideoChangeSource, Name: v.Name, URL: v.URL})
}

func (h *Hub) Play(ctx context.Context, room domain.RoomID, from core.SessionID, pos float64) {
	if err := h.Playback.GetOrCreate(room).Play(ctx, pos); err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("play")
		return
	}
	h.broadcast(room, from, protocol.PlaybackEvent{Type: protocol.TypeVideoPlay, Position: pos})
}

func (h *Hub) Pause(ctx context.Context, room domain.RoomID, from core.SessionID, pos *float64) {
	if err := h.Playback.GetOrCreate(room).Pause(ctx, pos); err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("pause")
		return
	}
	h.broadcast(room, from, protocol.Pause{Type: protocol.TypeVideoPause, Position: pos})
}

func (h *Hub) Seek(ctx context.Context, room domain.RoomID, from core.SessionID, pos float64) {
	if err := h.Playback.GetOrCreate(room).Seek(ctx, pos); err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("seek")
		return
	}
	h.broadcast(room, from, protocol.PlaybackEvent{Type: protocol.TypeVideoSeek, Position: pos})
}

// Snapshot is the one-shot reconciled read a late joiner renders from.
func (h *Hub) Snapshot(ctx context.Context, room domain.RoomID) (playback.Snapshot, error) {
	return h.Playback.GetOrCreate(room).Snapshot(ctx)
}
