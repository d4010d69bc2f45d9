package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/numistry/cointrade-api/internal/auth"
	"github.com/numistry/cointrade-api/internal/catalog"
	"github.com/numistry/cointrade-api/internal/config"
	"github.com/numistry/cointrade-api/internal/database"
	"github.com/numistry/cointrade-api/internal/trades"
	"github.com/numistry/cointrade-api/internal/users"
	"github.com/numistry/cointrade-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the trade API server with graceful shutdown
// support. It wires the coin catalog and user directory into the trade
// lifecycle engine and registers all API routes.
func main() {
	cfg := config.Load()

	// Initialize database
	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	userService := users.NewService(db)
	authService := auth.NewService(cfg.JWTSecret, userService)
	authHandlers := auth.NewGinHandlers(authService)

	if cfg.ModeratorUsername != "" && cfg.ModeratorPassword != "" {
		if err := userService.EnsureModerator(cfg.ModeratorUsername, cfg.ModeratorPassword); err != nil {
			zlog.Fatal().Err(err).Msg("Failed to seed moderator account")
		}
	}

	catalogService := catalog.NewService(db)
	catalogHandlers := catalog.NewGinHandlers(catalogService)

	tradeService := trades.NewService(db, catalogService, userService)
	tradeHandlers := trades.NewGinHandlers(tradeService)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg.JWTSecret, authHandlers, catalogHandlers, tradeHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for registration and login
// - Coin routes: Catalog entry points, protected by JWT authentication
// - Trade routes: The trade lifecycle, protected by JWT authentication
// - Moderation routes: Report review, additionally gated on the moderator role
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	catalogHandlers *catalog.GinHandlers,
	tradeHandlers *trades.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandlers.RegisterHandler())
			authGroup.POST("/login", authHandlers.LoginHandler())
		}

		// Coin catalog routes
		coins := v1.Group("/coins")
		coins.Use(middleware.JWTAuth(jwtSecret))
		{
			coins.POST("", catalogHandlers.CreateCoinHandler())
			coins.GET("", catalogHandlers.ListMyCoinsHandler())
			coins.GET("/:coin_id", catalogHandlers.GetCoinHandler())
		}

		// Trade lifecycle routes
		tradeGroup := v1.Group("/trades")
		tradeGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			tradeGroup.POST("", tradeHandlers.InitiateTradeHandler())
			tradeGroup.GET("", tradeHandlers.ListTradesHandler())
			tradeGroup.GET("/:trade_id", tradeHandlers.GetTradeDetailHandler())
			tradeGroup.POST("/:trade_id/offers", tradeHandlers.SubmitOfferHandler())
			tradeGroup.POST("/:trade_id/offers/:offer_id/accept", tradeHandlers.AcceptOfferHandler())
			tradeGroup.POST("/:trade_id/offers/:offer_id/reject", tradeHandlers.RejectOfferHandler())
			tradeGroup.POST("/:trade_id/messages", tradeHandlers.SendMessageHandler())
			tradeGroup.POST("/:trade_id/shipping/shipped", tradeHandlers.MarkShippedHandler())
			tradeGroup.POST("/:trade_id/shipping/received", tradeHandlers.MarkReceivedHandler())
			tradeGroup.POST("/:trade_id/reports", tradeHandlers.FileReportHandler())
			tradeGroup.POST("/:trade_id/cancel", tradeHandlers.CancelTradeHandler())
		}

		// Moderation routes
		moderation := v1.Group("/moderation")
		moderation.Use(middleware.JWTAuth(jwtSecret), middleware.RequireRole(users.RoleModerator))
		{
			moderation.GET("/trades/:trade_id/reports", tradeHandlers.ListReportsHandler())
			moderation.PATCH("/reports/:report_id", tradeHandlers.ReviewReportHandler())
		}
	}
}
