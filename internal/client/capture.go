package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// RTPSource is the agent's stand-in for a camera: it forwards H264 RTP
// packets arriving on a local UDP port (e.g. from ffmpeg or gstreamer) into a
// local track. The rest of the system treats it as an opaque MediaSource.
type RTPSource struct {
	track *webrtc.TrackLocalStaticRTP
	conn  *net.UDPConn

	mu     sync.Mutex
	closed bool
}

// NewRTPSource binds the port and starts forwarding. Failing to bind is the
// headless equivalent of a camera-permission denial and must be surfaced to
// the user, not swallowed.
func NewRTPSource(port int) (*RTPSource, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return nil, fmt.Errorf("capture source unavailable on port %d: %w", port, err)
	}

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264},
		"video", "lanhub-agent",
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create local track: %w", err)
	}

	s := &RTPSource{track: track, conn: conn}
	go s.forward()
	log.Info().Str("module", "client.capture").Int("port", port).Msg("rtp source listening")
	return s, nil
}

func (s *RTPSource) forward() {
	buf := make([]byte, 1500)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if !s.isClosed() {
				log.Error().Err(err).Str("module", "client.capture").Msg("rtp read")
			}
			return
		}
		// ErrClosedPipe just means no peer is bound to the track yet.
		if _, err := s.track.Write(buf[:n]); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			log.Debug().Err(err).Str("module", "client.capture").Msg("track write")
		}
	}
}

func (s *RTPSource) Tracks() []webrtc.TrackLocal {
	return []webrtc.TrackLocal{s.track}
}

// Close releases the port synchronously so a new session can rebind it.
func (s *RTPSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}

func (s *RTPSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
