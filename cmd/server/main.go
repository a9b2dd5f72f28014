package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/minibank/backend/docs"
	"github.com/minibank/backend/internal/database"
	"github.com/minibank/backend/internal/handlers"
	mW "github.com/minibank/backend/internal/middleware"
	"github.com/minibank/backend/internal/models"
	"github.com/minibank/backend/internal/services"
	"github.com/minibank/backend/internal/store"
)

// @title MiniBank Ledger API
// @version 1.0
// @description Ledger and loan transaction engine for savings, loans and fixed deposits
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

	viper.BindEnv("policy.min_deposit", "POLICY_MIN_DEPOSIT")
	viper.BindEnv("policy.min_balance", "POLICY_MIN_BALANCE")
	viper.BindEnv("policy.min_loan_amount", "POLICY_MIN_LOAN_AMOUNT")
	viper.BindEnv("policy.senior_loan_cap", "POLICY_SENIOR_LOAN_CAP")
	viper.BindEnv("policy.affordability_ratio", "POLICY_AFFORDABILITY_RATIO")
	viper.BindEnv("policy.min_fd_principal", "POLICY_MIN_FD_PRINCIPAL")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "MiniBank Ledger API"
	docs.SwaggerInfo.Description = "Ledger and loan transaction engine for savings, loans and fixed deposits"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	accountStore := store.New(db)

	ledgerService := services.NewLedgerService(accountStore)
	loanService := services.NewLoanService(accountStore)
	fdService := services.NewFixedDepositService(accountStore)
	closureService := services.NewClosureService(accountStore)
	customerService := services.NewCustomerService(accountStore, loanService)
	reportService := services.NewReportService(accountStore)
	authService := services.NewAuthService(db, accountStore, redisClient)

	ledgerHandler := handlers.NewLedgerHandler(ledgerService)
	loanHandler := handlers.NewLoanHandler(loanService)
	fdHandler := handlers.NewFixedDepositHandler(fdService)
	closureHandler := handlers.NewClosureHandler(closureService)
	customerHandler := handlers.NewCustomerHandler(customerService)
	reportHandler := handlers.NewReportHandler(reportService)

	// Setup router
	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

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
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Customer endpoints
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware(redisClient))

			r.Get("/auth/me", authService.Me)
			r.Post("/auth/password", authService.ChangePassword)

			r.Post("/accounts/transfer", ledgerHandler.Transfer)
			r.Get("/accounts/{accountID}/transactions", ledgerHandler.Transactions)
			r.Post("/loans/{loanID}/emi", loanHandler.PayEMI)
			r.Get("/customers/{customerID}", customerHandler.Summary)
			r.Get("/customers/{customerID}/loans", loanHandler.Summaries)
		})

		// Back-office endpoints
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware(redisClient))
			r.Use(mW.RequireRole(models.RoleManager, models.RoleEmployee))

			r.Post("/customers", customerHandler.OpenAccount)
			r.Post("/accounts/{accountID}/deposit", ledgerHandler.Deposit)
			r.Post("/accounts/{accountID}/withdraw", ledgerHandler.Withdraw)
			r.Post("/loans", loanHandler.CreateLoan)
			r.Post("/deposits", fdHandler.Create)
			r.Post("/customers/{customerID}/accounts/close", closureHandler.CloseAccounts)
			r.Delete("/customers/{customerID}", closureHandler.CloseCustomer)
			r.Post("/auth/users/{username}/deactivate", authService.Deactivate)
			r.Get("/reports/savings", reportHandler.SavingsTransactions)
			r.Get("/reports/loans", reportHandler.LoanTransactions)
		})

		// Manager-only endpoints
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware(redisClient))
			r.Use(mW.RequireRole(models.RoleManager))

			r.Post("/auth/users/{username}/activate", authService.Activate)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

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
