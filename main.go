package main

import (
	"crypto/tls"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/contazen/backend/src/config"
	"github.com/username/contazen/backend/src/database"
	"github.com/username/contazen/backend/src/handlers"
	"github.com/username/contazen/backend/src/llm"
	"github.com/username/contazen/backend/src/logger"
	"github.com/username/contazen/backend/src/security"
	"github.com/username/contazen/backend/src/services"
	"golang.org/x/time/rate"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000":    true,
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("ContaZen backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	reportCache := cache.New(config.Cfg.SummaryCacheExpiry, config.Cfg.SummaryCacheCleanup)

	handlers.InitializeGoogleOAuthConfig()

	authService := security.NewAuthService(config.Cfg.JWTSecret)
	summaryService := services.NewSummaryService(database.DB, reportCache)

	var classifier llm.Classifier
	if config.Cfg.GeminiAPIKey != "" {
		classifier = llm.NewGeminiClassifier(config.Cfg.GeminiAPIKey, config.Cfg.GeminiModel)
	} else {
		logger.L.Warn("GEMINI_API_KEY not set; assistant classification disabled")
	}
	assistantService := services.NewAssistantService(database.DB, classifier, config.Cfg.ClassifyTimeout, summaryService)

	userHandler := handlers.NewUserHandler(authService, summaryService, reportCache)
	accountHandler := handlers.NewAccountHandler(summaryService)
	txHandler := handlers.NewTransactionHandler(summaryService)
	categoryHandler := handlers.NewCategoryHandler(summaryService)
	assistantHandler := handlers.NewAssistantHandler(assistantService)
	dashboardHandler := handlers.NewDashboardHandler(summaryService)
	exportHandler := handlers.NewExportHandler()

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "ContaZen Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		// Rotas Públicas
		r.Group(func(r chi.Router) {
			r.Get("/auth/csrf", handlers.GetCSRFToken)
			r.Get("/auth/google/login", userHandler.HandleGoogleLogin)
			r.Get("/auth/google/callback", userHandler.HandleGoogleCallback)
		})

		// Rotas de Autenticação (Protegidas por CSRF)
		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey))
			r.Post("/auth/login", userHandler.LoginUserHandler)
			r.Post("/auth/register", userHandler.RegisterUserHandler)
			r.Post("/auth/refresh", userHandler.RefreshTokenHandler)
			r.With(userHandler.AuthMiddleware).Post("/auth/logout", userHandler.LogoutUserHandler)
		})

		// Rotas Protegidas (Requerem Autenticação e CSRF)
		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey))
			r.Use(userHandler.AuthMiddleware)

			r.Get("/accounts", accountHandler.HandleListAccounts)
			r.Post("/accounts", accountHandler.HandleCreateAccount)
			r.Get("/accounts/balances", accountHandler.HandleGetBalances)
			r.Put("/accounts/{id}", accountHandler.HandleUpdateAccount)
			r.Delete("/accounts/{id}", accountHandler.HandleDeleteAccount)

			r.Get("/transactions", txHandler.HandleListTransactions)
			r.Post("/transactions", txHandler.HandleCreateTransaction)
			r.Put("/transactions/{id}", txHandler.HandleUpdateTransaction)
			r.Delete("/transactions/{id}", txHandler.HandleDeleteTransaction)
			r.Post("/transactions/{id}/pay", txHandler.HandlePayTransaction)
			r.Post("/transactions/{id}/review", txHandler.HandleReviewTransaction)

			r.Get("/categories", categoryHandler.HandleListCategories)
			r.Post("/categories", categoryHandler.HandleCreateCategory)
			r.Get("/categories/budget-progress", categoryHandler.HandleBudgetProgress)
			r.Put("/categories/{id}", categoryHandler.HandleUpdateCategory)
			r.Delete("/categories/{id}", categoryHandler.HandleDeleteCategory)

			r.Post("/assistant/message", assistantHandler.HandleMessage)
			r.Get("/assistant/staged", assistantHandler.HandleListStaged)
			r.Post("/assistant/staged/{id}/confirm", assistantHandler.HandleConfirmStaged)
			r.Delete("/assistant/staged/{id}", assistantHandler.HandleDiscardStaged)
			r.Get("/assistant/rules", assistantHandler.HandleListRules)
			r.Post("/assistant/rules", assistantHandler.HandleCreateRule)
			r.Delete("/assistant/rules/{id}", assistantHandler.HandleDeleteRule)

			r.Get("/dashboard/summary", dashboardHandler.HandleGetSummary)
			r.Get("/export/transactions.csv", exportHandler.HandleExportTransactions)

			r.Post("/user/change-password", userHandler.ChangePasswordHandler)
			r.Post("/user/delete-account", userHandler.DeleteAccountHandler)

			// Rotas de Administração
			r.Group(func(r chi.Router) {
				r.Use(userHandler.AdminMiddleware)
				r.Get("/admin/stats", userHandler.HandleGetAdminStats)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
