package client

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/akarpov/lanhub/internal/core"
	"github.com/akarpov/lanhub/internal/protocol"
)

type Role int

const (
	RoleBroadcaster Role = iota
	RoleViewer
)

type LinkState int

const (
	LinkIdle LinkState = iota
	LinkNegotiating
	LinkConnected
	LinkClosed
)

// PeerLink is this client's handle to one negotiated media connection with
// one counterparty. Owned exclusively by the Peers manager that created it.
type PeerLink struct {
	id        string
	conn      core.MediaConnection
	initiator bool
	state     LinkState
}

// SignalSender delivers a negotiation payload to target via the relay.
type SignalSender func(target string, payload protocol.SignalPayload) error

// Peers owns every PeerLink for one broadcast or view session. A broadcaster
// initiates toward newly joined participants; anyone receiving a signal from
// an unknown sender responds.
type Peers struct {
	role    Role
	send    SignalSender
	newConn func(remote string) (core.MediaConnection, error)

	onRemoteTrack func(track *webrtc.TrackRemote)

	mu        sync.Mutex
	source    MediaSource
	links     map[string]*PeerLink
	connected bool
}

func NewPeers(role Role, source MediaSource, send SignalSender, newConn func(remote string) (core.MediaConnection, error)) *Peers {
	return &Peers{
		role:    role,
		source:  source,
		send:    send,
		newConn: newConn,
		links:   make(map[string]*PeerLink),
	}
}

// OnRemoteTrack sets the render target for inbound media.
func (p *Peers) OnRemoteTrack(fn func(track *webrtc.TrackRemote)) { p.onRemoteTrack = fn }

// Connected reports whether a viewer has received remote media.
func (p *Peers) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// HandleUserConnected starts negotiation toward the new participant when this
// side is broadcasting with live capture. Viewers wait to be offered to.
func (p *Peers) HandleUserConnected(ctx context.Context, id string) {
	p.mu.Lock()
	if p.role != RoleBroadcaster || p.source == nil {
		p.mu.Unlock()
		return
	}
	link, err := p.createLinkLocked(ctx, id, true)
	p.mu.Unlock()
	if err != nil {
		log.Error().Err(err).Str("module", "client.peers").Str("remote", id).Msg("create initiator link")
		return
	}

	offer, err := link.conn.CreateAndSetOffer()
	if err != nil {
		log.Error().Err(err).Str("module", "client.peers").Str("remote", id).Msg("create offer")
		return
	}
	link.state = LinkNegotiating
	if err := p.send(id, protocol.SignalPayload{Type: "offer", SDP: offer.SDP}); err != nil {
		log.Error().Err(err).Str("module", "client.peers").Str("remote", id).Msg("send offer")
	}
}

// HandleUserDisconnected releases the departed counterparty's link. Treated as
// a normal event, not an error path.
func (p *Peers) HandleUserDisconnected(id string) {
	p.mu.Lock()
	link, ok := p.links[id]
	if ok {
		delete(p.links, id)
	}
	p.mu.Unlock()
	if ok {
		link.state = LinkClosed
		link.conn.Close()
		log.Info().Str("module", "client.peers").Str("remote", id).Msg("link released on disconnect")
	}
}

// HandleSignal processes one inbound negotiation payload. A payload from an
// unknown sender creates a responder link first. Failures are localized to the
// one link: logged, the link left inert, nothing else torn down.
func (p *Peers) HandleSignal(ctx context.Context, sender string, payload protocol.SignalPayload) {
	p.mu.Lock()
	link, ok := p.links[sender]
	if !ok {
		var err error
		link, err = p.createLinkLocked(ctx, sender, false)
		if err != nil {
			p.mu.Unlock()
			log.Error().Err(err).Str("module", "client.peers").Str("remote", sender).Msg("create responder link")
			return
		}
	}
	p.mu.Unlock()

	switch {
	case payload.Candidate != nil:
		ci := webrtc.ICECandidateInit{
			Candidate:     payload.Candidate.Candidate,
			SDPMid:        payload.Candidate.SDPMid,
			SDPMLineIndex: payload.Candidate.SDPMLineIndex,
		}
		if err := link.conn.AddICECandidate(ci); err != nil {
			log.Error().Err(err).Str("module", "client.peers").Str("remote", sender).Msg("add candidate")
		}
	case payload.Type == "offer":
		link.state = LinkNegotiating
		answer, err := link.conn.ApplyOfferAndCreateAnswer(webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer,
			SDP:  payload.SDP,
		})
		if err != nil {
			log.Error().Err(err).Str("module", "client.peers").Str("remote", sender).Msg("apply offer")
			return
		}
		if err := p.send(sender, protocol.SignalPayload{Type: "answer", SDP: answer.SDP}); err != nil {
			log.Error().Err(err).Str("module", "client.peers").Str("remote", sender).Msg("send answer")
		}
	case payload.Type == "answer":
		if !link.initiator || link.state != LinkNegotiating {
			log.Warn().Str("module", "client.peers").Str("remote", sender).Msg("unexpected answer, ignored")
			return
		}
		if err := link.conn.ApplyAnswer(webrtc.SessionDescription{
			Type: webrtc.SDPTypeAnswer,
			SDP:  payload.SDP,
		}); err != nil {
			log.Error().Err(err).Str("module", "client.peers").Str("remote", sender).Msg("apply answer")
		}
	default:
		log.Warn().Str("module", "client.peers").Str("remote", sender).Msg("unknown signal payload")
	}
}

func (p *Peers) createLinkLocked(ctx context.Context, id string, initiator bool) (*PeerLink, error) {
	conn, err := p.newConn(id)
	if err != nil {
		return nil, err
	}
	link := &PeerLink{id: id, conn: conn, initiator: initiator}

	conn.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		payload := protocol.SignalPayload{Candidate: &protocol.Candidate{
			Candidate:     ci.Candidate,
			SDPMid:        ci.SDPMid,
			SDPMLineIndex: ci.SDPMLineIndex,
		}}
		if err := p.send(id, payload); err != nil {
			log.Error().Err(err).Str("module", "client.peers").Str("remote", id).Msg("send candidate")
		}
	})
	conn.OnTrack(func(_ context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		link.state = LinkConnected
		if p.role == RoleViewer {
			p.mu.Lock()
			p.connected = true
			p.mu.Unlock()
		}
		if p.onRemoteTrack != nil {
			p.onRemoteTrack(track)
		}
	})

	if p.role == RoleBroadcaster && p.source != nil {
		for _, track := range p.source.Tracks() {
			if _, err := conn.AddLocalTrack(track); err != nil {
				conn.Close()
				return nil, err
			}
		}
	}

	if err := conn.Start(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	p.links[id] = link
	log.Info().Str("module", "client.peers").Str("remote", id).Bool("initiator", initiator).Msg("link created")
	return link, nil
}

// Close tears the session down synchronously: every link is closed and the
// captured media released, so a camera is never left held after exiting
// broadcast mode.
func (p *Peers) Close() {
	p.mu.Lock()
	links := p.links
	p.links = make(map[string]*PeerLink)
	source := p.source
	p.source = nil
	p.connected = false
	p.mu.Unlock()

	for _, link := range links {
		link.state = LinkClosed
		link.conn.Close()
	}
	if source != nil {
		if err := source.Close(); err != nil {
			log.Error().Err(err).Str("module", "client.peers").Msg("release capture")
		}
	}
	log.Info().Str("module", "client.peers").Int("links", len(links)).Msg("session closed")
}

// ActiveLinks reports how many peer links are currently held.
func (p *Peers) ActiveLinks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.links)
}
