package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"animanga/internal/discovery"
	"animanga/internal/library"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Discovery   discovery.Service
	Library     library.Store
	Syncer      *library.Syncer
	Auth        *Authenticator
	CORSOrigins []string
}

// NewRouter assembles the gin engine with all routes and middleware.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	mangaHandler := NewMangaHandler(cfg.Discovery)
	libraryHandler := NewLibraryHandler(cfg.Library, cfg.Syncer)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/auth/token", cfg.Auth.MintToken)

		api.GET("/manga", mangaHandler.List)
		api.GET("/browse", mangaHandler.Browse)
		api.GET("/manga/trending", mangaHandler.Trending)
		api.GET("/manga/:id", mangaHandler.Get)
		api.GET("/manga/:id/feed", mangaHandler.Feed)
		api.GET("/chapters/recent", mangaHandler.Recent)
		api.GET("/chapter/:id/pages", mangaHandler.ChapterPages)
		api.GET("/tags", mangaHandler.Tags)

		lib := api.Group("/library")
		lib.Use(cfg.Auth.Middleware())
		{
			lib.GET("", libraryHandler.List)
			lib.POST("", libraryHandler.Upsert)
			lib.GET("/:id", libraryHandler.Get)
			lib.DELETE("/:id", libraryHandler.Remove)
			lib.PUT("/:id/progress", libraryHandler.Progress)
		}
	}

	return r
}
