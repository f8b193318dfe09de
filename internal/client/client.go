package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/akarpov/lanhub/internal/domain"
	"github.com/akarpov/lanhub/internal/protocol"
)

var ErrStateTimeout = errors.New("state request timed out")

// Client is the hub connection for a headless participant. Remote events are
// dispatched to the attached Sync and Peers; chat goes to OnChat.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	Sync   *Sync
	Peers  *Peers
	OnChat func(domain.ChatMessage)

	stateCh chan protocol.StateSnapshot
}

// Dial connects to the hub given its HTTP base URL (http://host:port).
func Dial(ctx context.Context, baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/api/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	log.Info().Str("module", "client").Str("url", u.String()).Msg("connected")
	return &Client{
		conn:    conn,
		stateCh: make(chan protocol.StateSnapshot, 1),
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Emit marshals and sends one frame.
func (c *Client) Emit(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// SendSignal implements SignalSender for the attached Peers manager.
func (c *Client) SendSignal(target string, payload protocol.SignalPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.Emit(protocol.SignalEnvelope{Type: protocol.TypeSignal, Target: target, Signal: raw})
}

// JoinStream announces this participant to the stream room.
func (c *Client) JoinStream(room string) error {
	return c.Emit(protocol.JoinStream{Type: protocol.TypeJoinStream, Room: room})
}

// SendChat submits a message; the rendered copy arrives back as the echo.
func (c *Client) SendChat(user, text string) error {
	msg, err := domain.NewChatMessage(user, text)
	if err != nil {
		return err
	}
	return c.Emit(protocol.ChatMessage{Type: protocol.TypeChatMessage, ChatMessage: msg})
}

// RequestState performs the one-shot snapshot fetch used on (re)connect.
func (c *Client) RequestState(ctx context.Context) (protocol.StateSnapshot, error) {
	if err := c.Emit(protocol.Envelope{Type: protocol.TypeVideoGetState}); err != nil {
		return protocol.StateSnapshot{}, err
	}
	select {
	case snap := <-c.stateCh:
		return snap, nil
	case <-ctx.Done():
		return protocol.StateSnapshot{}, ErrStateTimeout
	}
}

// Run reads frames until the connection dies or ctx is canceled.
func (c *Client) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatch(ctx, data)
	}
}

func (c *Client) dispatch(ctx context.Context, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("bad frame")
		return
	}

	switch env.Type {
	case protocol.TypeChatMessage:
		var p protocol.ChatMessage
		if err := json.Unmarshal(data, &p); err == nil && c.OnChat != nil {
			c.OnChat(p.ChatMessage)
		}
	case protocol.TypeVideoChangeSource:
		var p protocol.ChangeSource
		if err := json.Unmarshal(data, &p); err == nil && c.Sync != nil {
			c.Sync.ApplyRemoteChangeSource(domain.VideoDescriptor{Name: p.Name, URL: p.URL})
		}
	case protocol.TypeVideoPlay:
		var p protocol.PlaybackEvent
		if err := json.Unmarshal(data, &p); err == nil && c.Sync != nil {
			c.Sync.ApplyRemotePlay(p.Position)
		}
	case protocol.TypeVideoPause:
		var p protocol.Pause
		if err := json.Unmarshal(data, &p); err == nil && c.Sync != nil {
			c.Sync.ApplyRemotePause(p.Position)
		}
	case protocol.TypeVideoSeek:
		var p protocol.PlaybackEvent
		if err := json.Unmarshal(data, &p); err == nil && c.Sync != nil {
			c.Sync.ApplyRemoteSeek(p.Position)
		}
	case protocol.TypeVideoState:
		var p protocol.StateSnapshot
		if err := json.Unmarshal(data, &p); err == nil {
			select {
			case c.stateCh <- p:
			default:
			}
		}
	case protocol.TypeUserConnected:
		var p protocol.Presence
		if err := json.Unmarshal(data, &p); err == nil && c.Peers != nil {
			c.Peers.HandleUserConnected(ctx, p.ID)
		}
	case protocol.TypeUserDisconnected:
		var p protocol.Presence
		if err := json.Unmarshal(data, &p); err == nil && c.Peers != nil {
			c.Peers.HandleUserDisconnected(p.ID)
		}
	case protocol.TypeSignal:
		var envlp protocol.SignalEnvelope
		if err := json.Unmarshal(data, &envlp); err != nil || c.Peers == nil {
			return
		}
		var payload protocol.SignalPayload
		if err := json.Unmarshal(envlp.Signal, &payload); err != nil {
			log.Error().Err(err).Str("module", "client").Msg("bad signal payload")
			return
		}
		c.Peers.HandleSignal(ctx, envlp.Sender, payload)
	case protocol.TypePong:
	default:
		log.Debug().Str("module", "client").Str("type", env.Type).Msg("unhandled frame")
	}
}
