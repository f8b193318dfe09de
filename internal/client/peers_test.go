package client

import (
	"context"
	"errors"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/akarpov/lanhub/internal/core"
	"github.com/akarpov/lanhub/internal/protocol"
)

type stubConn struct {
	remote      string
	started     bool
	closed      bool
	localTracks int
	candidates  []webrtc.ICECandidateInit
	appliedAns  bool
	onTrack     func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	failOnOffer bool
}

func (c *stubConn) Start(ctx context.Context) error { c.started = true; return nil }

func (c *stubConn) Close() { c.closed = true }

func (c *stubConn) IsClosed() bool { return c.closed }

func (c *stubConn) CreateAndSetOffer() (*webrtc.SessionDescription, error) {
	if c.failOnOffer {
		return nil, errors.New("offer rejected")
	}
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer-sdp"}, nil
}

func (c *stubConn) ApplyOfferAndCreateAnswer(webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-sdp"}, nil
}

func (c *stubConn) ApplyAnswer(webrtc.SessionDescription) error { c.appliedAns = true; return nil }

func (c *stubConn) AddICECandidate(ci webrtc.ICECandidateInit) error {
	c.candidates = append(c.candidates, ci)
	return nil
}

func (c *stubConn) AddLocalTrack(webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	c.localTracks++
	return nil, nil
}

func (c *stubConn) OnICECandidate(func(webrtc.ICECandidateInit)) {}
func (c *stubConn) OnTrack(fn func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	c.onTrack = fn
}
func (c *stubConn) OnClosed(func()) {}

type stubSource struct {
	closed bool
	tracks []webrtc.TrackLocal
}

func (s *stubSource) Tracks() []webrtc.TrackLocal { return s.tracks }

func (s *stubSource) Close() error { s.closed = true; return nil }

type sentSignal struct {
	target  string
	payload protocol.SignalPayload
}

type harness struct {
	conns    map[string]*stubConn
	sent     []sentSignal
	failNext bool
}

func newHarness() *harness {
	return &harness{conns: make(map[string]*stubConn)}
}

func (h *harness) newConn(remote string) (core.MediaConnection, error) {
	c := &stubConn{remote: remote, failOnOffer: h.failNext}
	h.conns[remote] = c
	return c, nil
}

func (h *harness) send(target string, payload protocol.SignalPayload) error {
	h.sent = append(h.sent, sentSignal{target: target, payload: payload})
	return nil
}

func TestBroadcasterInitiatesTowardNewViewer(t *testing.T) {
	h := newHarness()
	src := &stubSource{tracks: make([]webrtc.TrackLocal, 2)}
	p := NewPeers(RoleBroadcaster, src, h.send, h.newConn)

	p.HandleUserConnected(context.Background(), "viewer-1")

	conn, ok := h.conns["viewer-1"]
	if !ok {
		t.Fatal("expected link toward new viewer")
	}
	if !conn.started || conn.localTracks != 2 {
		t.Fatalf("expected started link with 2 tracks, got started=%v tracks=%d", conn.started, conn.localTracks)
	}
	if len(h.sent) != 1 || h.sent[0].target != "viewer-1" || h.sent[0].payload.Type != "offer" {
		t.Fatalf("expected offer to viewer-1, got %+v", h.sent)
	}
}

func TestViewerIgnoresUserConnected(t *testing.T) {
	h := newHarness()
	p := NewPeers(RoleViewer, nil, h.send, h.newConn)

	p.HandleUserConnected(context.Background(), "someone")

	if len(h.conns) != 0 || len(h.sent) != 0 {
		t.Fatal("viewer must not initiate")
	}
}

func TestInboundOfferFromUnknownSenderCreatesResponder(t *testing.T) {
	h := newHarness()
	p := NewPeers(RoleViewer, nil, h.send, h.newConn)

	p.HandleSignal(context.Background(), "host", protocol.SignalPayload{Type: "offer", SDP: "v=0"})

	if _, ok := h.conns["host"]; !ok {
		t.Fatal("expected responder link for unknown sender")
	}
	if len(h.sent) != 1 || h.sent[0].payload.Type != "answer" {
		t.Fatalf("expected answer back to host, got %+v", h.sent)
	}
	if p.ActiveLinks() != 1 {
		t.Fatalf("expected 1 active link, got %d", p.ActiveLinks())
	}
}

func TestAnswerOnlyValidWhileInitiatorNegotiating(t *testing.T) {
	h := newHarness()
	p := NewPeers(RoleViewer, nil, h.send, h.newConn)

	// Responder link: an answer makes no sense here and must be ignored.
	p.HandleSignal(context.Background(), "host", protocol.SignalPayload{Type: "offer", SDP: "v=0"})
	p.HandleSignal(context.Background(), "host", protocol.SignalPayload{Type: "answer", SDP: "v=0"})

	if h.conns["host"].appliedAns {
		t.Fatal("answer applied on a responder link")
	}
}

func TestInitiatorAppliesAnswer(t *testing.T) {
	h := newHarness()
	src := &stubSource{}
	p := NewPeers(RoleBroadcaster, src, h.send, h.newConn)

	p.HandleUserConnected(context.Background(), "viewer-1")
	p.HandleSignal(context.Background(), "viewer-1", protocol.SignalPayload{Type: "answer", SDP: "v=0"})

	if !h.conns["viewer-1"].appliedAns {
		t.Fatal("expected answer applied on initiator link")
	}
}

func TestCandidateRoutedToLink(t *testing.T) {
	h := newHarness()
	p := NewPeers(RoleViewer, nil, h.send, h.newConn)

	mid := "0"
	p.HandleSignal(context.Background(), "host", protocol.SignalPayload{
		Candidate: &protocol.Candidate{Candidate: "candidate:1", SDPMid: &mid},
	})

	conn := h.conns["host"]
	if conn == nil || len(conn.candidates) != 1 {
		t.Fatalf("expected 1 candidate on link, got %+v", conn)
	}
	if conn.candidates[0].SDPMid == nil || *conn.candidates[0].SDPMid != "0" {
		t.Fatalf("sdpMid lost in translation: %+v", conn.candidates[0])
	}
}

func TestDisconnectReleasesLink(t *testing.T) {
	h := newHarness()
	p := NewPeers(RoleViewer, nil, h.send, h.newConn)

	p.HandleSignal(context.Background(), "host", protocol.SignalPayload{Type: "offer", SDP: "v=0"})
	p.HandleUserDisconnected("host")

	if !h.conns["host"].closed {
		t.Fatal("expected link closed on counterparty disconnect")
	}
	if p.ActiveLinks() != 0 {
		t.Fatalf("expected no active links, got %d", p.ActiveLinks())
	}
}

func TestCloseReleasesCaptureAndAllLinks(t *testing.T) {
	h := newHarness()
	src := &stubSource{tracks: make([]webrtc.TrackLocal, 1)}
	p := NewPeers(RoleBroadcaster, src, h.send, h.newConn)

	p.HandleUserConnected(context.Background(), "v1")
	p.HandleUserConnected(context.Background(), "v2")
	p.Close()

	if !src.closed {
		t.Fatal("capture device not released on session close")
	}
	for id, conn := range h.conns {
		if !conn.closed {
			t.Fatalf("link %s left open", id)
		}
	}
	if p.ActiveLinks() != 0 {
		t.Fatalf("expected no links after close, got %d", p.ActiveLinks())
	}

	// After close the broadcaster holds nothing: a new session may reacquire
	// the device.
	p.HandleUserConnected(context.Background(), "v3")
	if len(h.conns) != 2 {
		t.Fatal("closed session must not initiate new links")
	}
}

func TestNegotiationFailureLocalizedToOneLink(t *testing.T) {
	h := newHarness()
	src := &stubSource{}
	p := NewPeers(RoleBroadcaster, src, h.send, h.newConn)

	p.HandleUserConnected(context.Background(), "healthy")
	h.failNext = true
	p.HandleUserConnected(context.Background(), "broken")

	// The failed link is left inert; nothing else is torn down.
	if len(h.sent) != 1 || h.sent[0].target != "healthy" {
		t.Fatalf("expected only the healthy offer, got %+v", h.sent)
	}
	if h.conns["healthy"].closed {
		t.Fatal("healthy link must survive another link's failure")
	}
	if p.ActiveLinks() != 2 {
		t.Fatalf("expected both links registered, got %d", p.ActiveLinks())
	}
}

func TestViewerConnectedOnRemoteTrack(t *testing.T) {
	h := newHarness()
	p := NewPeers(RoleViewer, nil, h.send, h.newConn)

	p.HandleSignal(context.Background(), "host", protocol.SignalPayload{Type: "offer", SDP: "v=0"})
	if p.Connected() {
		t.Fatal("not connected before any track")
	}

	h.conns["host"].onTrack(context.Background(), nil, nil)
	if !p.Connected() {
		t.Fatal("expected connected after remote track")
	}
}
