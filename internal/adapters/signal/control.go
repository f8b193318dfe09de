package signal

import (
	"github.com/akarpov/lanhub/internal/core"
	"github.com/akarpov/lanhub/internal/protocol"
)

func (ctl *Controller) handlePing(conn core.SignalConnection) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: protocol.TypePong,
	}
	ctl.sendJSON(conn, resp)
}
