package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/bankguard/bankguard/internal/cryptofield"
	"github.com/bankguard/bankguard/internal/handlers"
	"github.com/bankguard/bankguard/internal/jwt"
	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/middlewares"
	"github.com/bankguard/bankguard/internal/repositories"
	"github.com/bankguard/bankguard/internal/services"
	"github.com/bankguard/bankguard/internal/workers"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// @title BankGuard API
// @version 1.0.0
// @description Banking ledger with encrypted balances, audit journal and fraud feature extraction
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	appHost, appPort, logLevel,
		pgHost, pgPort, pgUser, pgPassword, pgDB,
		pgMaxOpenConns, pgMaxIdleConns,
		redisHost, redisPort, redisDB, redisPassword,
		idempotencyTTLSecond,
		kafkaAddr, kafkaTopic,
		jwtSecret, jwtExpSecond,
		aesSecretKey,
		reconcilerIntervalSecond, reconcilerCutoff,
		err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(),
		appHost, appPort, logLevel,
		pgHost, pgPort, pgUser, pgPassword, pgDB,
		pgMaxOpenConns, pgMaxIdleConns,
		redisHost, redisPort, redisDB, redisPassword,
		idempotencyTTLSecond,
		kafkaAddr, kafkaTopic,
		jwtSecret, jwtExpSecond,
		aesSecretKey,
		reconcilerIntervalSecond, reconcilerCutoff,
	); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service version %s, commit %s, build %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns all
// application, database, Redis, Kafka, JWT, encryption, and reconciler
// configuration. AES_SECRET_KEY has no default: balances are unreadable
// under a wrong key, so the service refuses to guess one.
func parseConfig(path string) (
	appHost, appPort, logLevel string,
	pgHost string, pgPort int, pgUser, pgPassword, pgDB string,
	pgMaxOpenConns, pgMaxIdleConns int,
	redisHost string, redisPort, redisDB int, redisPassword string,
	idempotencyTTLSecond int,
	kafkaAddr, kafkaTopic string,
	jwtSecretKey string, jwtExpSecond int,
	aesSecretKey string,
	reconcilerIntervalSecond int, reconcilerCutoff string,
	err error,
) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}

	// Application config
	appHost = getEnv("APP_HOST", "localhost")
	appPort = getEnv("APP_PORT", "8080")
	logLevel = getEnv("APP_LOG_LEVEL", "info")

	// PostgreSQL config
	pgHost = getEnv("POSTGRES_HOST", "localhost")
	pgUser = getEnv("POSTGRES_USER", "user")
	pgPassword = getEnv("POSTGRES_PASSWORD", "password")
	pgDB = getEnv("POSTGRES_DB", "bankguard")
	if pgPort, err = strconv.Atoi(getEnv("POSTGRES_PORT", "5432")); err != nil {
		return
	}
	if pgMaxOpenConns, err = strconv.Atoi(getEnv("POSTGRES_MAX_OPEN_CONNS", "16")); err != nil {
		return
	}
	if pgMaxIdleConns, err = strconv.Atoi(getEnv("POSTGRES_MAX_IDLE_CONNS", "8")); err != nil {
		return
	}

	// Redis config
	redisHost = getEnv("REDIS_HOST", "localhost")
	if redisPort, err = strconv.Atoi(getEnv("REDIS_PORT", "6379")); err != nil {
		return
	}
	if redisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return
	}
	redisPassword = getEnv("REDIS_PASSWORD", "")
	if idempotencyTTLSecond, err = strconv.Atoi(getEnv("IDEMPOTENCY_TTL_SECOND", "86400")); err != nil {
		return
	}

	// Kafka config
	kafkaAddr = getEnv("KAFKA_ADDR", "localhost:9092")
	kafkaTopic = getEnv("KAFKA_TOPIC", "bankguard.operations")

	// JWT config
	jwtSecretKey = getEnv("JWT_SECRET_KEY", "my_super_secret_key")
	if jwtExpSecond, err = strconv.Atoi(getEnv("JWT_EXP_SECOND", "3600")); err != nil {
		return
	}

	// Field encryption key: 64 hex chars, required
	aesSecretKey = os.Getenv("AES_SECRET_KEY")
	if aesSecretKey == "" {
		err = fmt.Errorf("AES_SECRET_KEY is required")
		return
	}

	// Reconciler config
	if reconcilerIntervalSecond, err = strconv.Atoi(getEnv("RECONCILER_INTERVAL_SECOND", "60")); err != nil {
		return
	}
	reconcilerCutoff = getEnv("RECONCILER_CUTOFF", "5 minutes")

	return
}

// run initializes the logger, database, Redis, Kafka writer, and HTTP
// server. It sets up routes, applies middleware, starts the transfer leg
// reconciler, and handles graceful shutdown.
func run(ctx context.Context,
	appHost, appPort, logLevel string,
	pgHost string, pgPort int, pgUser, pgPassword, pgDB string,
	pgMaxOpenConns, pgMaxIdleConns int,
	redisHost string, redisPort, redisDB int, redisPassword string,
	idempotencyTTLSecond int,
	kafkaAddr, kafkaTopic string,
	jwtSecretKey string, jwtExpSecond int,
	aesSecretKey string,
	reconcilerIntervalSecond int, reconcilerCutoff string,
) error {
	// Initialize logger
	if err := logger.Initialize(logLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Sync()
	logger.Log.Infof("Logger initialized with level %s", logLevel)

	// Initialize field encryption codec
	codec, err := cryptofield.New(aesSecretKey)
	if err != nil {
		logger.Log.Fatal("Invalid AES_SECRET_KEY:", err)
	}

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		pgUser, pgPassword, pgHost, pgPort, pgDB)
	logger.Log.Infof("Connecting to PostgreSQL at %s:%d/%s", pgHost, pgPort, pgDB)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		logger.Log.Fatal("PostgreSQL connection error:", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(pgMaxOpenConns)
	db.SetMaxIdleConns(pgMaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		logger.Log.Fatal("PostgreSQL ping failed:", err)
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", redisHost, redisPort),
		Password: redisPassword,
		DB:       redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Log.Fatal("Redis connection error:", err)
	}
	defer rdb.Close()

	// Kafka writer for the operation event stream
	kafkaWriter := &kafka.Writer{
		Addr:     kafka.TCP(kafkaAddr),
		Topic:    kafkaTopic,
		Balancer: &kafka.LeastBytes{},
	}
	defer kafkaWriter.Close()

	// Initialize JWT service
	jwtService := jwt.New(jwtSecretKey, time.Duration(jwtExpSecond)*time.Second)

	// Initialize repositories
	accountReadRepo := repositories.NewAccountReadRepository(db, middlewares.GetTxFromContext)
	accountWriteRepo := repositories.NewAccountWriteRepository(db, middlewares.GetTxFromContext)
	operationWriteRepo := repositories.NewOperationWriteRepository(db, middlewares.GetTxFromContext)
	operationReadRepo := repositories.NewOperationReadRepository(db)
	auditWriteRepo := repositories.NewAuditWriteRepository(db)
	auditReadRepo := repositories.NewAuditReadRepository(db)
	userReadRepo := repositories.NewUserReadRepository(db)
	userWriteRepo := repositories.NewUserWriteRepository(db)
	idempotencyRepo := repositories.NewIdempotencyRepository(rdb, time.Duration(idempotencyTTLSecond)*time.Second)

	// Initialize services
	auditService := services.NewAuditService(auditWriteRepo, auditReadRepo, auditReadRepo)
	transferService := services.NewTransferService(accountReadRepo, accountWriteRepo, operationWriteRepo, auditService, codec, kafkaWriter)
	accountService := services.NewAccountService(accountReadRepo, accountWriteRepo, operationReadRepo, auditService, codec)
	authService := services.NewAuthService(userReadRepo, userWriteRepo, jwtService, auditService)

	// Initialize handlers
	registerHandler := handlers.NewRegisterHandler(authService)
	loginHandler := handlers.NewLoginHandler(authService)
	createAccountHandler := handlers.NewCreateAccountHandler(accountService, jwtService)
	listAccountsHandler := handlers.NewListAccountsHandler(accountService, jwtService)
	balanceHandler := handlers.NewGetBalanceHandler(accountService, jwtService)
	depositHandler := handlers.NewDepositHandler(transferService, jwtService)
	withdrawHandler := handlers.NewWithdrawHandler(transferService, jwtService)
	transferHandler := handlers.NewTransferHandler(transferService, jwtService)
	historyHandler := handlers.NewHistoryHandler(accountService, jwtService)
	statisticsHandler := handlers.NewStatisticsHandler(accountService, jwtService)
	journalListHandler := handlers.NewJournalListHandler(auditService, jwtService)
	journalLastHandler := handlers.NewJournalLastHandler(auditService, jwtService)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware(logger.Log))

	// Public routes
	r.Post("/register", registerHandler)
	r.Post("/login", loginHandler)

	// Protected routes with JWT middleware
	authMiddleware := middlewares.AuthMiddleware(jwtService)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/accounts", listAccountsHandler)
		r.Get("/accounts/{accountNumber}/balance", balanceHandler)
		r.Get("/accounts/{accountNumber}/history", historyHandler)
		r.Get("/accounts/{accountNumber}/statistics", statisticsHandler)

		r.Get("/audit", journalListHandler)
		r.Get("/audit/last", journalLastHandler)

		// Financial mutations run inside a per-request transaction and
		// replay on a repeated Idempotency-Key.
		r.Group(func(r chi.Router) {
			r.Use(middlewares.IdempotencyMiddleware(idempotencyRepo))
			r.Use(middlewares.TxMiddleware(db))

			r.Post("/accounts", createAccountHandler)
			r.Post("/accounts/{accountNumber}/deposit", depositHandler)
			r.Post("/accounts/{accountNumber}/withdraw", withdrawHandler)
			r.Post("/transfers", transferHandler)
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", appHost, appPort)),
	))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", appHost, appPort),
		Handler: r,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	// Unpaired transfer leg reconciler
	reconciler := workers.NewReconciler(operationReadRepo, kafkaWriter,
		time.Duration(reconcilerIntervalSecond)*time.Second, reconcilerCutoff)
	go reconciler.Run(ctxShutdown)

	go func() {
		logger.Log.Infof("HTTP server listening on %s:%s", appHost, appPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}
