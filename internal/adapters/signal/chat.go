package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/akarpov/lanhub/internal/core"
	"github.com/akarpov/lanhub/internal/domain"
	"github.com/akarpov/lanhub/internal/protocol"
)

func (ctl *Controller) handleChat(sid core.SessionID, data []byte) {
	var p protocol.ChatMessage
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		return
	}
	ctl.Hub.SubmitChat(domain.DefaultRoom, sid, p.ChatMessage)
}
