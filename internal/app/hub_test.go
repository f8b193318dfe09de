package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/akarpov/lanhub/internal/core"
	"github.com/akarpov/lanhub/internal/domain"
	"github.com/akarpov/lanhub/internal/playback"
	"github.com/akarpov/lanhub/internal/protocol"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("backpressure")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) received(t *testing.T) []protocol.Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Envelope, 0, len(c.frames))
	for _, f := range c.frames {
		var env protocol.Envelope
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("bad frame %q: %v", f, err)
		}
		out = append(out, env)
	}
	return out
}

func newTestHub(t *testing.T) (*Hub, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(NewRegistry(), playback.NewManager(ctx), nil), ctx
}

func bind(t *testing.T, h *Hub, sid core.SessionID) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	h.Registry.Bind(sid, domain.DefaultRoom, core.NewParticipantSession(conn), nil)
	return conn
}

func TestChatFanOutIncludesSender(t *testing.T) {
	h, _ := newTestHub(t)
	a := bind(t, h, "a")
	b := bind(t, h, "b")
	c := bind(t, h, "c")

	h.SubmitChat(domain.DefaultRoom, "a", domain.ChatMessage{ID: "1", User: "ann", Text: "hi", Time: "12:00"})
	h.SubmitChat(domain.DefaultRoom, "a", domain.ChatMessage{ID: "2", User: "ann", Text: "again", Time: "12:01"})

	for name, conn := range map[string]*fakeConn{"a": a, "b": b, "c": c} {
		got := conn.received(t)
		if len(got) != 2 {
			t.Fatalf("%s: expected 2 messages, got %d", name, len(got))
		}
	}

	// Delivery preserves submission order per sender.
	var first, second protocol.ChatMessage
	if err := json.Unmarshal(a.frames[0], &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := json.Unmarshal(a.frames[1], &second); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first.ID != "1" || second.ID != "2" {
		t.Fatalf("out of order: %s then %s", first.ID, second.ID)
	}
}

func TestChatRateLimitDropsSilently(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewHub(NewRegistry(), playback.NewManager(ctx), NewChatLimiter(1, 1))
	a := bind(t, h, "a")

	h.SubmitChat(domain.DefaultRoom, "a", domain.ChatMessage{ID: "1", Text: "x"})
	h.SubmitChat(domain.DefaultRoom, "a", domain.ChatMessage{ID: "2", Text: "y"})

	if got := a.received(t); len(got) != 1 {
		t.Fatalf("expected the burst message only, got %d", len(got))
	}
}

func TestSignalDeliveredOnlyToTargetWithStampedSender(t *testing.T) {
	h, _ := newTestHub(t)
	bind(t, h, "alice")
	bob := bind(t, h, "bob")
	eve := bind(t, h, "eve")

	// The inner payload claims to come from someone else entirely.
	h.RelaySignal("alice", "bob", json.RawMessage(`{"type":"offer","sdp":"v=0"}`))

	if len(eve.received(t)) != 0 {
		t.Fatal("signal leaked to non-target participant")
	}
	frames := bob.received(t)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame at target, got %d", len(frames))
	}
	var env protocol.SignalEnvelope
	if err := json.Unmarshal(bob.frames[0], &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Sender != "alice" {
		t.Fatalf("expected stamped sender alice, got %q", env.Sender)
	}
	var payload protocol.SignalPayload
	if err := json.Unmarshal(env.Signal, &payload); err != nil {
		t.Fatalf("inner payload: %v", err)
	}
	if payload.Type != "offer" || payload.SDP != "v=0" {
		t.Fatalf("payload altered in transit: %+v", payload)
	}
}

func TestSignalToUnknownTargetDroppedSilently(t *testing.T) {
	h, _ := newTestHub(t)
	alice := bind(t, h, "alice")

	h.RelaySignal("alice", "ghost", json.RawMessage(`{"type":"offer"}`))

	// Nothing comes back to the sender either; the miss is invisible.
	if len(alice.received(t)) != 0 {
		t.Fatal("expected no frames after dropped signal")
	}
}

func TestAnnounceJoinExcludesJoiner(t *testing.T) {
	h, _ := newTestHub(t)
	a := bind(t, h, "a")
	b := bind(t, h, "b")

	h.AnnounceJoin(domain.DefaultRoom, "a")

	if len(a.received(t)) != 0 {
		t.Fatal("joiner should not see its own announcement")
	}
	frames := b.received(t)
	if len(frames) != 1 || frames[0].Type != protocol.TypeUserConnected {
		t.Fatalf("expected user-connected at peer, got %+v", frames)
	}
	var p protocol.Presence
	if err := json.Unmarshal(b.frames[0], &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != "a" {
		t.Fatalf("expected joiner id a, got %q", p.ID)
	}
}

func TestDisconnectNotifiesOthers(t *testing.T) {
	h, _ := newTestHub(t)
	bind(t, h, "a")
	b := bind(t, h, "b")

	h.Registry.Unbind("a", nil)
	h.NotifyDisconnect(domain.DefaultRoom, "a")

	frames := b.received(t)
	if len(frames) != 1 || frames[0].Type != protocol.TypeUserDisconnected {
		t.Fatalf("expected user-disconnected, got %+v", frames)
	}
}

func TestPlaybackTransitionsRebroadcastToOthersOnly(t *testing.T) {
	h, ctx := newTestHub(t)
	a := bind(t, h, "a")
	b := bind(t, h, "b")

	h.ChangeSource(ctx, domain.DefaultRoom, "a", domain.VideoDescriptor{Name: "clip.mp4", URL: "/uploads/clip.mp4"})
	pos := 42.5
	h.Pause(ctx, domain.DefaultRoom, "a", &pos)

	if len(a.received(t)) != 0 {
		t.Fatal("originator must not receive its own transitions")
	}
	frames := b.received(t)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames at peer, got %d", len(frames))
	}
	if frames[0].Type != protocol.TypeVideoChangeSource || frames[1].Type != protocol.TypeVideoPause {
		t.Fatalf("unexpected sequence: %+v", frames)
	}

	snap, err := h.Snapshot(ctx, domain.DefaultRoom)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Playing || snap.Position != 42.5 {
		t.Fatalf("expected paused at 42.5, got playing=%v pos=%v", snap.Playing, snap.Position)
	}
	if snap.URL == nil || *snap.URL != "/uploads/clip.mp4" {
		t.Fatalf("unexpected url: %v", snap.URL)
	}
}

func TestBroadcastSkipsSlowConsumers(t *testing.T) {
	h, _ := newTestHub(t)
	a := bind(t, h, "a")
	slow := &fakeConn{fail: true}
	h.Registry.Bind("s", domain.DefaultRoom, core.NewParticipantSession(slow), nil)

	h.SubmitChat(domain.DefaultRoom, "a", domain.ChatMessage{ID: "1", Text: "hello"})

	if len(a.received(t)) != 1 {
		t.Fatal("healthy consumer should still receive the message")
	}
}
