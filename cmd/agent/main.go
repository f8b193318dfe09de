package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/akarpov/lanhub/internal/adapters/rtc"
	"github.com/akarpov/lanhub/internal/client"
	"github.com/akarpov/lanhub/internal/core"
	"github.com/akarpov/lanhub/internal/domain"
)

var (
	serverURL string
	room      string
	userName  string
	stunURLs  []string
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	root := &cobra.Command{
		Use:   "lanhub-agent",
		Short: "Headless participant for a lanhub server",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3000", "hub base URL")
	root.PersistentFlags().StringVar(&room, "room", string(domain.DefaultRoom), "stream room to join")
	root.PersistentFlags().StringVar(&userName, "name", "agent", "display name for chat")
	root.PersistentFlags().StringSliceVar(&stunURLs, "stun", nil, "STUN server URLs (default Google STUN)")

	root.AddCommand(broadcastCmd(), viewCmd(), watchCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveSTUN prefers the --stun flag, then the hub's advertised servers.
// On any failure the pion default takes over.
func resolveSTUN() []string {
	if len(stunURLs) > 0 {
		return stunURLs
	}
	hc := &http.Client{Timeout: 5 * time.Second}
	resp, err := hc.Get(serverURL + "/api/config")
	if err != nil {
		log.Warn().Err(err).Msg("server config unavailable, using default STUN")
		return nil
	}
	defer resp.Body.Close()
	var cfg struct {
		StunServers []string `json:"stunServers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		log.Warn().Err(err).Msg("bad server config, using default STUN")
		return nil
	}
	return cfg.StunServers
}

func connFactory() func(remote string) (core.MediaConnection, error) {
	cfg := rtc.DefaultConfig(resolveSTUN())
	return func(remote string) (core.MediaConnection, error) {
		return rtc.New(cfg, remote)
	}
}

func runClient(ctx context.Context, cl *client.Client) error {
	go func() {
		<-ctx.Done()
		cl.Close()
	}()
	err := cl.Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func broadcastCmd() *cobra.Command {
	var rtpPort int
	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Send a local RTP feed to every viewer in the room",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := ossignal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			src, err := client.NewRTPSource(rtpPort)
			if err != nil {
				return fmt.Errorf("capture source unavailable: %w", err)
			}

			cl, err := client.Dial(ctx, serverURL)
			if err != nil {
				src.Close()
				return err
			}
			peers := client.NewPeers(client.RoleBroadcaster, src, cl.SendSignal, connFactory())
			cl.Peers = peers
			defer peers.Close()

			if err := cl.JoinStream(room); err != nil {
				return err
			}
			log.Info().Str("room", room).Int("rtp_port", rtpPort).Msg("broadcasting; feed RTP H264 to the port above")
			return runClient(ctx, cl)
		},
	}
	cmd.Flags().IntVar(&rtpPort, "rtp-port", 5004, "local UDP port to read RTP from")
	return cmd
}

func viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Receive the live broadcast and log incoming tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := ossignal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cl, err := client.Dial(ctx, serverURL)
			if err != nil {
				return err
			}
			peers := client.NewPeers(client.RoleViewer, nil, cl.SendSignal, connFactory())
			peers.OnRemoteTrack(func(track *webrtc.TrackRemote) {
				log.Info().
					Str("kind", track.Kind().String()).
					Str("codec", track.Codec().MimeType).
					Msg("remote track started")
			})
			cl.Peers = peers
			defer peers.Close()

			if err := cl.JoinStream(room); err != nil {
				return err
			}
			log.Info().Str("room", room).Msg("waiting for a broadcast")
			return runClient(ctx, cl)
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the shared player and chat from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := ossignal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cl, err := client.Dial(ctx, serverURL)
			if err != nil {
				return err
			}
			cl.Sync = client.NewSync(client.NewLoggingPlayer(), cl.Emit)
			cl.OnChat = func(msg domain.ChatMessage) {
				fmt.Printf("[%s] %s: %s\n", msg.Time, msg.User, msg.Text)
			}

			// The read loop must be up before the snapshot reply can arrive.
			errCh := make(chan error, 1)
			go func() { errCh <- runClient(ctx, cl) }()

			// Catch up with whatever is already playing before following events.
			stateCtx, stateCancel := context.WithTimeout(ctx, 5*time.Second)
			snap, err := cl.RequestState(stateCtx)
			stateCancel()
			if err != nil {
				log.Warn().Err(err).Msg("no playback state yet")
			} else {
				cl.Sync.Adopt(snap)
			}

			// Stdin lines become chat messages.
			go func() {
				sc := bufio.NewScanner(os.Stdin)
				for sc.Scan() {
					text := sc.Text()
					if text == "" {
						continue
					}
					if err := cl.SendChat(userName, text); err != nil {
						log.Warn().Err(err).Msg("chat send failed")
						return
					}
				}
			}()

			return <-errCh
		},
	}
}
