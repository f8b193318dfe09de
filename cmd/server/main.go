package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/akarpov/lanhub/internal/adapters/http"
	"github.com/akarpov/lanhub/internal/adapters/signal"
	"github.com/akarpov/lanhub/internal/app"
	"github.com/akarpov/lanhub/internal/config"
	"github.com/akarpov/lanhub/internal/discovery"
	"github.com/akarpov/lanhub/internal/media"
	"github.com/akarpov/lanhub/internal/playback"
)

func main() {
	ctx, cancel := signalContext()
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := media.NewStore(cfg.UploadsDir, cfg.MaxUploadMB<<20)
	if err != nil {
		log.Fatal().Err(err).Msg("uploads dir")
	}

	reg := app.NewRegistry()
	machines := playback.NewManager(ctx)
	hub := app.NewHub(reg, machines, app.NewChatLimiter(cfg.ChatRate, cfg.ChatBurst))
	ctl := signal.NewController(hub, cfg.ReadLimit, cfg.PingPeriod)

	r := router.SetupRouter(ctx, cfg, ctl, store)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	var adv *discovery.Advertiser
	if cfg.MDNS {
		if adv, err = discovery.Advertise(cfg.MDNSName); err != nil {
			log.Warn().Err(err).Msg("mdns advertisement unavailable")
		}
	}

	go func() {
		log.Info().Str("addr", addr).Msgf("lanhub server running at http://%s:%d", discovery.LocalIPv4(), cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	if err := adv.Close(); err != nil {
		log.Error().Err(err).Msg("mdns close")
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

func signalContext() (context.Context, context.CancelFunc) {
	return ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
