package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"floordesign/config"
	"floordesign/database"
	_ "floordesign/docs" // Swagger docs
	"floordesign/handlers"
	"floordesign/logger"
	"floordesign/media"
	"floordesign/middleware"
	"floordesign/models"
	"floordesign/scheduler"
	"floordesign/services"
	"floordesign/tracker"
	"floordesign/upload"
	"floordesign/utils"
)

// @title Floor & Design API
// @version 1.0
// @description Storefront and admin console API: catalog, product uploads, chat and color palette

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT, format: Bearer {token}. The floor-and-design-token cookie is accepted too.

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Log.LoggerConfig()); err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}

	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Info("Floor & Design server starting")
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if err := database.Initialize(cfg.Database.Driver, cfg.Database.DSN); err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer database.Close()

	adminHash, err := utils.HashPassword(cfg.Auth.AdminPassword)
	if err != nil {
		logger.Fatal("Failed to hash admin password: %v", err)
	}
	adminID, err := utils.GenerateID("usr")
	if err != nil {
		logger.Fatal("Failed to generate admin ID: %v", err)
	}
	if err := database.EnsureAdmin(database.DB, database.Driver(), adminID, cfg.Auth.AdminEmail, adminHash); err != nil {
		logger.Fatal("Failed to seed admin account: %v", err)
	}

	utils.ConfigureJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	middleware.AuthCookieName = cfg.Auth.CookieName
	middleware.SetAllowedOrigins(cfg.Server.AllowedOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// services
	sqlExecutor := services.NewSQLExecutor(database.DB, database.Driver())
	productService := services.NewProductService(sqlExecutor)
	userService := services.NewUserService(sqlExecutor)
	conversationService := services.NewConversationService(sqlExecutor)
	paletteService := services.NewPaletteService(sqlExecutor)

	mediaStore, err := media.NewFromConfig(ctx, cfg.Media)
	if err != nil {
		logger.Fatal("Failed to initialize media store: %v", err)
	}

	sessions, closeSessions := newSessionTracker(ctx, cfg.Tracker)
	defer closeSessions()

	uploadOptions := upload.Options{
		StrictRoots:      cfg.Upload.StrictRoots,
		CleanupOnFailure: cfg.Upload.CleanupOnFailure,
	}
	if resizer := media.NewResizer(cfg.Media.MaxImageWidth); resizer != nil {
		uploadOptions.Transformer = resizer
	}

	authHandler := handlers.NewAuthHandler(userService, cfg.Auth.CookieSecure)
	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(productService, mediaStore)
	uploadHandler := handlers.NewUploadHandler(ctx, productService, mediaStore, sessions, uploadOptions, cfg.Upload.MaxRequestMB)
	contactHandler := handlers.NewContactHandler(conversationService)
	paletteHandler := handlers.NewPaletteHandler(paletteService)
	mediaHandler := handlers.NewMediaHandler(mediaStore)
	dashboardHandler := handlers.NewDashboardHandler(productService, userService, conversationService)

	loginLimiter := middleware.NewIPRateLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginRatePerMinute)

	scheduler.StartScheduler(ctx, scheduler.Jobs{
		Sessions:  sessions,
		Retention: time.Duration(cfg.Tracker.RetentionHours) * time.Hour,
		Limiters:  []*middleware.IPRateLimiter{loginLimiter},
	})

	public := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ChainMiddleware(h,
			middleware.LoggingMiddleware,
			middleware.CORSMiddleware,
			middleware.OptionalAuth,
			middleware.SetJSONHeader,
		)
	}
	authenticated := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ChainMiddleware(h,
			middleware.LoggingMiddleware,
			middleware.CORSMiddleware,
			middleware.AuthMiddleware,
			middleware.SetJSONHeader,
		)
	}
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ChainMiddleware(h,
			middleware.LoggingMiddleware,
			middleware.CORSMiddleware,
			middleware.AuthMiddleware,
			middleware.RequireRoles(models.RoleAdmin),
			middleware.SetJSONHeader,
		)
	}

	mux := http.NewServeMux()

	// static storefront
	fs := http.FileServer(http.Dir(cfg.Server.StaticDir))
	mux.Handle("/web/", http.StripPrefix("/web/", fs))

	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)
	mux.HandleFunc("/health", healthHandler)

	// auth
	mux.HandleFunc("/api/auth/register", public(methods{http.MethodPost: authHandler.Register}.serve))
	mux.HandleFunc("/api/auth/login",
		middleware.ChainMiddleware(
			methods{http.MethodPost: authHandler.Login}.serve,
			middleware.LoggingMiddleware,
			middleware.CORSMiddleware,
			middleware.RateLimit(loginLimiter),
			middleware.SetJSONHeader,
		))
	mux.HandleFunc("/api/auth/logout", public(methods{http.MethodPost: authHandler.Logout}.serve))

	// user
	mux.HandleFunc("/api/user/me", authenticated(methods{http.MethodGet: userHandler.Me}.serve))
	mux.HandleFunc("/api/user/update", authenticated(methods{http.MethodPut: userHandler.Update}.serve))
	mux.HandleFunc("/api/user/like", authenticated(methods{http.MethodPut: userHandler.ToggleLike}.serve))
	mux.HandleFunc("/api/user/likes", public(methods{http.MethodGet: userHandler.Likes}.serve))

	// catalog
	mux.HandleFunc("/api/products", public(methods{http.MethodGet: productHandler.List}.serve))
	mux.HandleFunc("/api/products/exists", public(methods{http.MethodPost: productHandler.Exists}.serve))
	mux.HandleFunc("/api/products/liked", authenticated(methods{http.MethodGet: productHandler.Liked}.serve))
	mux.HandleFunc("/api/products/category/{category}", public(methods{http.MethodGet: productHandler.ListByCategory}.serve))
	mux.HandleFunc("/api/products/{slug}", public(methods{http.MethodGet: productHandler.GetBySlug}.serve))

	// chat
	mux.HandleFunc("/api/contact/{userId}", authenticated(methods{
		http.MethodGet:  contactHandler.Get,
		http.MethodPost: contactHandler.Post,
	}.serve))

	// palette
	mux.HandleFunc("/api/palette-couleurs", public(methods{http.MethodGet: paletteHandler.List}.serve))
	mux.HandleFunc("/api/palette-couleurs/import", admin(methods{http.MethodPost: paletteHandler.Import}.serve))
	mux.HandleFunc("/api/palette-couleurs/{id}", admin(methods{
		http.MethodPut:    paletteHandler.Update,
		http.MethodDelete: paletteHandler.Delete,
	}.serve))

	// admin console
	mux.HandleFunc("/api/admin/products", admin(methods{http.MethodPost: productHandler.Create}.serve))
	mux.HandleFunc("/api/admin/products/{id}", admin(methods{http.MethodDelete: productHandler.Delete}.serve))
	mux.HandleFunc("/api/admin/uploads", admin(methods{http.MethodPost: uploadHandler.Start}.serve))
	mux.HandleFunc("/api/admin/uploads/{id}", admin(methods{http.MethodGet: uploadHandler.Status}.serve))
	mux.HandleFunc("/api/admin/media", admin(methods{http.MethodDelete: mediaHandler.Delete}.serve))
	mux.HandleFunc("/api/admin/contacts", admin(methods{http.MethodGet: contactHandler.ListContacts}.serve))
	mux.HandleFunc("/api/admin/dashboard/stats", admin(methods{http.MethodGet: dashboardHandler.Stats}.serve))
	mux.HandleFunc("/api/admin/dashboard/activities", admin(methods{http.MethodGet: dashboardHandler.RecentActivities}.serve))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.Warn("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed: %v", err)
		}
	}()

	logger.Info("Server listening on %s", cfg.Server.Addr())
	logger.Info("Swagger UI: /swagger/index.html")
	logger.Info("Database: %s", database.Driver())
	logger.Info("Media provider: %s", cfg.Media.Provider)
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed to start: %v", err)
	}

	// Shutdown returns once in-flight handlers are done; submissions then
	// stop between two uploads because ctx is cancelled
	<-shutdownDone
	uploadHandler.Wait()
	logger.Info("Server stopped")
}

// methods dispatches on the request method; anything else gets 405.
type methods map[string]http.HandlerFunc

func (m methods) serve(w http.ResponseWriter, r *http.Request) {
	if h, ok := m[r.Method]; ok {
		h(w, r)
		return
	}
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := database.DB.PingContext(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"error","message":"Database unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"success","message":"Server is healthy"}`))
}

func newSessionTracker(ctx context.Context, cfg config.TrackerConfig) (tracker.Tracker, func()) {
	if cfg.Backend == "redis" {
		rt, err := tracker.NewRedisTracker(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to initialize upload tracker: %v", err)
		}
		return rt, func() { rt.Close() }
	}
	return tracker.NewMemoryTracker(), func() {}
}
