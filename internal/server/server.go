package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/storefront/apiserver/config"
	"github.com/storefront/apiserver/internal/db"
	"github.com/storefront/apiserver/internal/handlers"
	"github.com/storefront/apiserver/internal/mail"
	"github.com/storefront/apiserver/internal/mq"
	"github.com/storefront/apiserver/internal/services"
	"github.com/storefront/apiserver/internal/storage"
	"github.com/storefront/apiserver/internal/store"
)

// Server wraps the HTTP server, router, and shared resources.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     mq.Broker
}

// New wires repositories, services, and handlers and builds the router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := mq.Connect(ctx, &cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	media, err := storage.Connect(ctx, &cfg)
	if err != nil {
		_ = broker.Close()
		_ = dbConn.Close()
		return nil, err
	}
	if err := media.EnsureBucket(ctx); err != nil {
		_ = broker.Close()
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	sessionRepo := store.NewSessionRepository(dbConn)
	otpRepo := store.NewOtpRepository(dbConn)
	accountRepo := store.NewAccountRepository(dbConn)
	storeRepo := store.NewStoreRepository(dbConn)
	productRepo := store.NewProductRepository(dbConn)
	categoryRepo := store.NewCategoryRepository(dbConn)

	accessTTL := time.Duration(cfg.JWT.AccessTTLMinutes) * time.Minute
	refreshTTL := time.Duration(cfg.JWT.RefreshTTLDays) * 24 * time.Hour

	otpMailer := mail.NewPublisher(broker)
	authService := services.NewAuthService(userRepo, sessionRepo, otpRepo, otpMailer, cfg.JWT.Secret)
	authService.SetTokenTTLs(accessTTL, refreshTTL)

	verifier := services.NewGoogleTokenVerifier(cfg.Google.ClientID)
	googleService := services.NewGoogleAuthService(accountRepo, verifier, cfg.JWT.Secret)
	googleService.SetTokenTTLs(accessTTL, refreshTTL)

	storefrontService := services.NewStorefrontService(storeRepo, userRepo)
	productService := services.NewProductService(productRepo, storeRepo)
	categoryService := services.NewCategoryService(categoryRepo)

	secureCookies := cfg.Env != "dev"
	authHandler := handlers.NewAuthHandler(authService, googleService, accessTTL, refreshTTL, secureCookies)
	profileHandler := handlers.NewProfileHandler(authService, media)
	storefrontHandler := handlers.NewStorefrontHandler(storefrontService, productService)
	productHandler := handlers.NewProductHandler(productService, media)
	categoryHandler := handlers.NewCategoryHandler(categoryService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.ProfileRouter(r, profileHandler, authHandler.RequireAuth)
	})
	router.Route("/stores", func(r chi.Router) {
		handlers.StorefrontRouter(r, storefrontHandler, authHandler.RequireAuth)
	})
	router.Route("/products", func(r chi.Router) {
		handlers.ProductRouter(r, productHandler, authHandler.RequireAuth)
	})
	router.Route("/categories", func(r chi.Router) {
		handlers.CategoryRouter(r, categoryHandler, authHandler.RequireAuth)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	return s.httpServer.Close()
}
