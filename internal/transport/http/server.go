package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whispr-im/whispr-server/internal/auth"
	"github.com/whispr-im/whispr-server/internal/config"
	"github.com/whispr-im/whispr-server/internal/core"
	"github.com/whispr-im/whispr-server/internal/store"
)

// NewServer builds the HTTP server: REST API plus the WebSocket endpoint.
func NewServer(hub *core.Hub, delivery *core.Delivery, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(authService, logger)
	userHandlers := NewUserHandlers(st, logger)
	messageHandlers := NewMessageHandlers(st, delivery, logger)

	api := router.Group("/api")
	{
		api.POST("/auth/register", apiHandlers.Register)
		api.POST("/auth/login", apiHandlers.Login)

		authorized := api.Group("")
		authorized.Use(AuthMiddleware(authService, logger))
		{
			authorized.GET("/users/search", userHandlers.SearchUsers)
			authorized.GET("/users/profile", userHandlers.Profile)
			authorized.POST("/messages", messageHandlers.SendMessage)
			authorized.GET("/messages/:userId", messageHandlers.ListConversation)
		}
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, delivery, authService, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
