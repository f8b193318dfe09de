package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/akarpov/lanhub/internal/core"
	"github.com/akarpov/lanhub/internal/domain"
	"github.com/akarpov/lanhub/internal/protocol"
)

func (ctl *Controller) handleChangeSource(ctx context.Context, sid core.SessionID, data []byte) {
	var p protocol.ChangeSource
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad changeSource payload")
		return
	}
	ctl.Hub.ChangeSource(ctx, domain.DefaultRoom, sid, domain.VideoDescriptor{Name: p.Name, URL: p.URL})
}

func (ctl *Controller) handlePlay(ctx context.Context, sid core.SessionID, data []byte) {
	var p protocol.PlaybackEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad play payload")
		return
	}
	ctl.Hub.Play(ctx, domain.DefaultRoom, sid, p.Position)
}

func (ctl *Controller) handlePause(ctx context.Context, sid core.SessionID, data []byte) {
	var p protocol.Pause
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad pause payload")
		return
	}
	ctl.Hub.Pause(ctx, domain.DefaultRoom, sid, p.Position)
}

func (ctl *Controller) handleSeek(ctx context.Context, sid core.SessionID, data []byte) {
	var p protocol.PlaybackEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad seek payload")
		return
	}
	ctl.Hub.Seek(ctx, domain.DefaultRoom, sid, p.Position)
}

// handleGetState answers on the same socket with an extrapolated snapshot.
func (ctl *Controller) handleGetState(ctx context.Context, conn core.SignalConnection) {
	snap, err := ctl.Hub.Snapshot(ctx, domain.DefaultRoom)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("snapshot")
		return
	}
	ctl.sendJSON(conn, protocol.StateSnapshot{
		Type:     protocol.TypeVideoState,
		URL:      snap.URL,
		Name:     snap.Name,
		Playing:  snap.Playing,
		Position: snap.Position,
	})
}
