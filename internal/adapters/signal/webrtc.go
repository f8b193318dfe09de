package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/akarpov/lanhub/internal/core"
	"github.com/akarpov/lanhub/internal/domain"
	"github.com/akarpov/lanhub/internal/protocol"
)

// handleJoinStream announces the participant to the rest of the room so a
// broadcaster can start negotiating toward it. The room token is accepted for
// forward compatibility but everyone shares the default room today.
func (ctl *Controller) handleJoinStream(sid core.SessionID, data []byte) {
	var p protocol.JoinStream
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join-stream payload")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room_token", p.Room).Msg("join stream")
	ctl.Hub.AnnounceJoin(domain.DefaultRoom, sid)
}

// handleSignal relays a negotiation payload to its target. The payload itself
// stays opaque here; only the envelope is parsed.
func (ctl *Controller) handleSignal(sid core.SessionID, data []byte) {
	var p protocol.SignalEnvelope
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad signal payload")
		return
	}
	if p.Target == "" {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("signal without target, dropped")
		return
	}
	ctl.Hub.RelaySignal(sid, core.SessionID(p.Target), p.Signal)
}
