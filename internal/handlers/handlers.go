package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"canvasquest/internal/middleware"
	"canvasquest/internal/service"
)

// HealthCheck is one dependency reported by GET /health.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	Log           zerolog.Logger
	Environment   string
	MaxUploadSize int64
	Auth          *service.AuthService
	Gate          *service.Gate
	Artworks      *service.ArtworkService
	Checks        []HealthCheck
}

type HandlerSet struct {
	log           zerolog.Logger
	environment   string
	maxUploadSize int64
	auth          *service.AuthService
	gate          *service.Gate
	artworks      *service.ArtworkService
	checks        []HealthCheck
}

const defaultMaxUploadSize = 10 << 20

func NewHandlerSet(deps Deps) HandlerSet {
	if deps.MaxUploadSize <= 0 {
		deps.MaxUploadSize = defaultMaxUploadSize
	}
	return HandlerSet{
		log:           deps.Log,
		environment:   deps.Environment,
		maxUploadSize: deps.MaxUploadSize,
		auth:          deps.Auth,
		gate:          deps.Gate,
		artworks:      deps.Artworks,
		checks:        deps.Checks,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	requireAuth := middleware.RequireAuth(h.gate, h.log)
	optionalAuth := middleware.OptionalAuth(h.gate)

	router.GET("/health", h.Health)

	auth := router.Group("/auth")
	{
		auth.POST("/claim-art", h.ClaimArt)
		auth.POST("/login", h.Login)
		auth.POST("/logout", requireAuth, h.Logout)
		auth.GET("/me", requireAuth, h.Me)
		auth.DELETE("/me", requireAuth, h.DeleteMe)
		auth.GET("/sessions", requireAuth, h.ListSessions)
	}

	artworks := router.Group("/artworks")
	{
		artworks.POST("/upload", requireAuth, h.UploadArtwork)
		artworks.GET("/artist/:artistId", optionalAuth, h.ListArtistArtworks)
		artworks.GET("/:id", optionalAuth, h.GetArtwork)
		artworks.POST("/:id/heart", h.HeartArtwork)
		artworks.DELETE("/:id", requireAuth, h.DeleteArtwork)
	}

	gallery := router.Group("/gallery")
	{
		gallery.GET("", h.Gallery)
		gallery.GET("/featured", h.FeaturedArtworks)
		gallery.GET("/latest", h.LatestArtworks)
	}
}
