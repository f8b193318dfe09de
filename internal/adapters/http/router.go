package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/akarpov/lanhub/internal/adapters/signal"
	"github.com/akarpov/lanhub/internal/config"
	"github.com/akarpov/lanhub/internal/media"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware pins an identifier to each browser via cookie. It ties
// a browser's connections together in logs; the per-connection session id is
// minted separately at websocket upgrade.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.Controller, store *media.Store) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	sessStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LanhubSessions", sessStore))
	r.Use(ClientTokenMiddleware())

	r.MaxMultipartMemory = 32 << 20

	r.Static("/static", cfg.StaticPath)
	r.Static("/uploads", store.Dir())
	r.GET("/", func(c *gin.Context) {
		c.String(200, "lanhub server is running")
	})

	uploads := &UploadHandler{Store: store}
	r.POST("/upload", uploads.Upload)
	r.GET("/videos", uploads.List)

	api := r.Group("/api")
	// Connection settings a headless client needs before it can negotiate.
	api.GET("/config", func(c *gin.Context) {
		c.JSON(200, gin.H{"stunServers": cfg.STUNServers})
	})
	api.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws endpoint hit")
		ctl.HandleWS(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Str("uploads", store.Dir()).Msg("router setup")
	return r
}
