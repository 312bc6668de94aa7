package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"shelftrack/internal/config"
	"shelftrack/internal/database"
	"shelftrack/internal/repositories"
	"shelftrack/internal/services"
	"shelftrack/internal/storage"
)

type Server struct {
	cfg         *config.Config
	httpServer  *http.Server
	db          database.Service
	userService services.UserService
	itemService services.ItemService
}

func NewServer() *Server {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	db := database.New(cfg.MongoURI)

	imageStore, err := storage.NewMinioImageStore(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create image store")
	}

	userRepo := repositories.NewUserRepository(db)
	itemRepo := repositories.NewItemRepository(db)

	s := &Server{
		cfg:         cfg,
		db:          db,
		userService: services.NewUserService(userRepo),
		itemService: services.NewItemService(itemRepo, imageStore, cfg.Storage.Folder),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	log.Info().Int("port", s.cfg.Port).Msg("Starting server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) GracefulShutdown(done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}

	if err := s.db.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	}

	log.Info().Msg("Server exiting")
	done <- true
}
