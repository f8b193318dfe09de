// Package protocol defines the JSON frames exchanged over the websocket.
// Every frame carries a "type" discriminator; payload shapes mirror what the
// browser client sends so both ends stay wire-compatible.
package protocol

import (
	"encoding/json"

	"github.com/akarpov/lanhub/internal/domain"
)

const (
	TypeChatMessage       = "chat:message"
	TypeVideoChangeSource = "video:changeSource"
	TypeVideoPlay         = "video:play"
	TypeVideoPause        = "video:pause"
	TypeVideoSeek         = "video:seek"
	TypeVideoGetState     = "video:getState"
	TypeVideoState        = "video:state"
	TypeJoinStream        = "join-stream"
	TypeSignal            = "signal"
	TypeUserConnected     = "user-connected"
	TypeUserDisconnected  = "user-disconnected"
	TypePing              = "ping"
	TypePong              = "pong"
)

// Envelope is the minimal frame used to pick a handler.
type Envelope struct {
	Type string `json:"type"`
}

type ChatMessage struct {
	Type string `json:"type"`
	domain.ChatMessage
}

type ChangeSource struct {
	Type string `json:"type"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PlaybackEvent carries video:play and video:seek positions.
type PlaybackEvent struct {
	Type     string  `json:"type"`
	Position float64 `json:"position"`
}

// Pause may omit the position; older clients never sent one.
type Pause struct {
	Type     string   `json:"type"`
	Position *float64 `json:"position,omitempty"`
}

// StateSnapshot is the video:state reply to video:getState. Position is
// already extrapolated server-side.
type StateSnapshot struct {
	Type     string  `json:"type"`
	URL      *string `json:"url"`
	Name     string  `json:"name,omitempty"`
	Playing  bool    `json:"isPlaying"`
	Position float64 `json:"position"`
}

type JoinStream struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// SignalEnvelope is the directed relay frame. Clients fill Target; the server
// replaces whatever Sender says with the transport-verified session id before
// delivery.
type SignalEnvelope struct {
	Type   string          `json:"type"`
	Target string          `json:"target,omitempty"`
	Sender string          `json:"sender,omitempty"`
	Signal json.RawMessage `json:"signal"`
}

// SignalPayload is the inner negotiation payload: a session description
// (offer/answer) or a single ICE candidate.
type SignalPayload struct {
	Type      string     `json:"type,omitempty"`
	SDP       string     `json:"sdp,omitempty"`
	Candidate *Candidate `json:"candidate,omitempty"`
}

type Candidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// Presence announces user-connected / user-disconnected.
type Presence struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}
