package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shelftrack/internal/handlers"
	"shelftrack/internal/middlewares"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	prom := middlewares.NewPrometheusMiddleware()
	r.Use(middlewares.NewCorsMiddleware(s.cfg.AllowedOrigins))
	r.Use(middlewares.RateLimit)
	r.Use(prom.Instrument)

	go middlewares.CleanupVisitors()

	ch := handlers.NewCommonHandler(s.db)
	r.HandleFunc("/", ch.RootHandler)
	r.HandleFunc("/health", ch.HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	s.registerAuthRoutes(r)
	s.registerItemRoutes(r)

	return r
}

func (s *Server) registerAuthRoutes(r *mux.Router) {
	uh := handlers.NewUserHandler(s.userService)

	r.HandleFunc("/api/auth/register", uh.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/login", uh.Login).Methods("POST", "OPTIONS")
	r.Handle("/api/me", middlewares.AuthMiddleware(http.HandlerFunc(uh.GetMyProfile))).Methods("GET", "OPTIONS")
	r.Handle("/api/me", middlewares.AuthMiddleware(http.HandlerFunc(uh.UpdateMyProfile))).Methods("PATCH", "PUT", "OPTIONS")
	r.Handle("/api/me", middlewares.AuthMiddleware(http.HandlerFunc(uh.DeleteMyProfile))).Methods("DELETE", "OPTIONS")
}

func (s *Server) registerItemRoutes(r *mux.Router) {
	ih := handlers.NewItemHandler(s.itemService)

	r.Handle("/api/collections", middlewares.AuthMiddleware(http.HandlerFunc(ih.AddItem))).Methods("POST", "OPTIONS")
	r.Handle("/api/collections", middlewares.AuthMiddleware(http.HandlerFunc(ih.GetItems))).Methods("GET", "OPTIONS")
	r.Handle("/api/collections/{id}", middlewares.AuthMiddleware(http.HandlerFunc(ih.GetItem))).Methods("GET", "OPTIONS")
	r.Handle("/api/collections/{id}", middlewares.AuthMiddleware(http.HandlerFunc(ih.DeleteItem))).Methods("DELETE", "OPTIONS")
	r.Handle("/api/collections/{id}", middlewares.AuthMiddleware(http.HandlerFunc(ih.UpdateItem))).Methods("PUT", "PATCH", "OPTIONS")
}
