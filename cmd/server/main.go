package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/innovatehubph/payverse-backend/docs"
	"github.com/innovatehubph/payverse-backend/internal/casino"
	"github.com/innovatehubph/payverse-backend/internal/config"
	"github.com/innovatehubph/payverse-backend/internal/database"
	"github.com/innovatehubph/payverse-backend/internal/handlers"
	mW "github.com/innovatehubph/payverse-backend/internal/middleware"
	"github.com/innovatehubph/payverse-backend/internal/paygram"
	"github.com/innovatehubph/payverse-backend/internal/services"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title PayVerse Backend API
// @version 1.0
// @description API for the PayVerse wallet and casino chip exchange
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.BindEnv("paygram.base_url", "PAYGRAM_BASE_URL")
	viper.BindEnv("paygram.api_token", "PAYGRAM_API_TOKEN")
	viper.BindEnv("paygram.timeout", "PAYGRAM_TIMEOUT")
	viper.BindEnv("casino.base_url", "CASINO_BASE_URL")
	viper.BindEnv("casino.timeout", "CASINO_TIMEOUT")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	exchangeCfg := config.LoadExchangeConfig()

	// Per-pool static token fallbacks, e.g. CASINO_TOKEN_MARCTHEPOGI
	for _, agent := range exchangeCfg.CasinoAgents {
		viper.BindEnv("casino.token_"+strings.ToLower(agent), "CASINO_TOKEN_"+strings.ToUpper(agent))
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "PayVerse Backend API"
	docs.SwaggerInfo.Description = "API for the PayVerse wallet and casino chip exchange"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	tokenService := services.NewAgentTokenService(db, redisClient, exchangeCfg)
	casinoClient := casino.NewClient(tokenService, exchangeCfg.RemoteTimeout)
	paygramClient := paygram.NewClient(exchangeCfg.RemoteTimeout)

	resolver := services.NewAgentResolverService(casinoClient, exchangeCfg)

	var challengeStore services.ChallengeStore
	if redisClient != nil {
		challengeStore = services.NewRedisChallengeStore(redisClient)
	} else {
		challengeStore = services.NewMemoryChallengeStore()
	}
	verificationService := services.NewVerificationService(challengeStore, casinoClient, resolver, exchangeCfg)

	pinService := services.NewPinService(db, exchangeCfg)
	linkService := services.NewCasinoLinkService(db, verificationService, casinoClient)
	exchangeStore := services.NewExchangeStore(db)
	notificationService := services.NewNotificationService(redisClient)
	exchangeService := services.NewExchangeService(exchangeStore, linkService, paygramClient, casinoClient,
		pinService, notificationService, exchangeCfg)

	exchangeHandler := handlers.NewExchangeHandler(exchangeService, exchangeStore)
	linkHandler := handlers.NewCasinoLinkHandler(linkService)
	securityHandler := handlers.NewSecurityHandler(pinService)
	adminHandler := handlers.NewAdminHandler(exchangeStore, exchangeService, tokenService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			// Casino link endpoints
			r.Get("/casino/link", linkHandler.GetLink)
			r.Delete("/casino/link", linkHandler.Disconnect)
			r.Get("/casino/balance", linkHandler.Balance)
			r.Post("/casino/connect", linkHandler.Connect)
			r.Post("/casino/verify", linkHandler.Verify)

			// Chip exchange endpoints
			r.Post("/exchange/deposit", exchangeHandler.Deposit)
			r.Post("/exchange/withdraw", exchangeHandler.Withdraw)
			r.Get("/exchange/transactions", exchangeHandler.ListTransactions)
			r.Get("/exchange/transactions/{id}", exchangeHandler.TransactionStatus)

			// Transaction PIN endpoints
			r.Get("/security/pin", securityHandler.PinStatus)
			r.Post("/security/pin", securityHandler.SetupPin)
			r.Put("/security/pin", securityHandler.ChangePin)
			r.Post("/security/pin/verify", securityHandler.VerifyPin)

			// Operator endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireAdmin)
				r.Get("/admin/casino/pending", adminHandler.PendingExchanges)
				r.Post("/admin/casino/resolve", adminHandler.ResolveExchange)
				r.Post("/admin/casino/retry", adminHandler.RetryExchange)
				r.Post("/admin/casino/tokens/refresh", adminHandler.RefreshAgentTokens)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
