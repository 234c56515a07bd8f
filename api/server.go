package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rpupo63/foodgram-backend/config"
	"github.com/rpupo63/foodgram-backend/database"
	"github.com/rpupo63/foodgram-backend/services"
	"github.com/rs/zerolog/log"
)

// Dependencies are the long-lived collaborators the HTTP layer needs.
type Dependencies struct {
	Database database.Database
	Tokens   *services.TokenService
	Images   services.ImageStore
	// MediaRoot is served under /media when images are stored on local disk.
	MediaRoot string
	Metrics   *Metrics
}

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(c map[string]string, deps Dependencies) (Server, error) {
	if deps.Tokens == nil {
		return Server{}, fmt.Errorf("token service is required")
	}
	if deps.Images == nil {
		return Server{}, fmt.Errorf("image store is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}

	port := config.GetString(c, "PORT", "8080")
	address := fmt.Sprintf("0.0.0.0:%s", port)

	startupTime := time.Now()

	router := newRouter(deps, withConfig(c), withStartupTime(startupTime))

	readTimeout := config.GetDuration(c, "READ_TIMEOUT", 30*time.Second)
	writeTimeout := config.GetDuration(c, "WRITE_TIMEOUT", 60*time.Second)
	idleTimeout := config.GetDuration(c, "IDLE_TIMEOUT", 120*time.Second)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return Server{server, startupTime}, nil
}

type router struct {
	config      map[string]string
	startupTime time.Time
}

func withConfig(c map[string]string) func(*router) {
	return func(r *router) {
		r.config = c
	}
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func newRouter(deps Dependencies, opts ...func(*router)) *chi.Mux {
	var router router
	for _, opt := range opts {
		opt(&router)
	}
	if router.startupTime.IsZero() {
		router.startupTime = time.Now()
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.RealIP)
	chiRouter.Use(LogInternalServerErrors)
	chiRouter.Use(deps.Metrics.Middleware)

	if config.GetString(router.config, "APP_ENV", "production") == "development" {
		chiRouter.Use(ColoredHTTPLoggingMiddleware)
	} else {
		chiRouter.Use(httpLoggingMiddleware(log.Logger))
	}

	acceptedOrigins := config.GetList(router.config, "ACCEPTED_ORIGINS")
	if len(acceptedOrigins) == 0 {
		acceptedOrigins = []string{"*"}
	}
	chiRouter.Use(CORSCheckMiddleware(acceptedOrigins))
	chiRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   acceptedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	chiRouter.Use(middleware.StripSlashes)

	baseURL := services.GetBaseURL(router.config)
	handlers := initializeHandlers(deps, baseURL)
	auth := newAuthMiddleware(deps.Tokens, deps.Database.UserRepo())
	loginLimit := loginRateLimit(
		config.GetInt(router.config, "LOGIN_RATE_LIMIT", 10),
		config.GetDuration(router.config, "LOGIN_RATE_WINDOW", time.Minute),
	)

	chiRouter.Get("/health", handlers.healthHandler.health(router.startupTime))
	chiRouter.Handle("/metrics", deps.Metrics.Handler())
	if deps.MediaRoot != "" {
		chiRouter.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(deps.MediaRoot))))
	}

	setupRoutes(chiRouter, handlers, auth, loginLimit)

	chiRouter.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponder(log.Logger).WriteError(w, errNotFoundRoute)
	})
	chiRouter.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponder(log.Logger).WriteError(w, errMethodNotAllowed)
	})

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
