package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/port/outbound"
	"github.com/fixora/flowauth/application/usecase"
	"github.com/fixora/flowauth/application/usecase/user_management"
	"github.com/fixora/flowauth/infrastructure/adapter/memory"
	"github.com/fixora/flowauth/infrastructure/adapter/postgres"
	"github.com/fixora/flowauth/infrastructure/config"
	"github.com/fixora/flowauth/infrastructure/grpcauth"
	"github.com/fixora/flowauth/infrastructure/http/handler"
	"github.com/fixora/flowauth/infrastructure/http/middleware"
	"github.com/fixora/flowauth/infrastructure/http/server"
	"github.com/fixora/flowauth/infrastructure/service/blacklist"
	"github.com/fixora/flowauth/infrastructure/service/jwt"
	"github.com/fixora/flowauth/infrastructure/service/logger"
	"github.com/fixora/flowauth/infrastructure/service/password"
	"github.com/fixora/flowauth/infrastructure/service/ratelimit"
)

const serviceName = "flowauth"

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: serviceName,
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env":             cfg.Environment,
		"user_store":      cfg.UserStore,
		"blacklist_store": cfg.BlacklistStore,
		"rate_limit":      cfg.RateLimitStore,
	})

	var db *sql.DB
	if cfg.NeedsDatabase() {
		db, err = openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			structuredLogger.Error(ctx, "Failed to connect to database", err, nil)
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		structuredLogger.Info(ctx, "Database connection established", nil)
	}

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			structuredLogger.Error(ctx, "Failed to connect to redis", err, nil)
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		structuredLogger.Info(ctx, "Redis connection established", nil)
	}

	passwordService := password.NewBcryptPasswordService(cfg.BcryptCost)
	structuredLogger.Debug(ctx, "Password hashing configured", map[string]interface{}{
		"bcrypt_cost": passwordService.Cost(),
	})

	// Initialize repositories
	var userRepo outbound.UserRepository
	switch cfg.UserStore {
	case config.StorePostgres:
		userRepo = postgres.NewUserRepositoryAdapter(db)
	default:
		memRepo := memory.NewUserRepository()
		memRepo.GrantPermissions("ADMIN", handler.UserManagementAuthorities...)
		userRepo = memRepo
	}
	userManagementUseCase := user_management.NewUserManagementUseCase(userRepo, passwordService)
	if cfg.UserStore == config.StoreMemory {
		seedAdmin(ctx, cfg, userManagementUseCase, structuredLogger)
	}

	tokenBlacklist, sweeper := newBlacklist(cfg, db, rdb)
	var sweepScheduler *blacklist.SweepScheduler
	if sweeper != nil {
		sweepScheduler, err = blacklist.NewSweepScheduler(sweeper, cfg.BlacklistSweepSchedule, structuredLogger)
		if err != nil {
			log.Fatalf("Failed to schedule blacklist sweep: %v", err)
		}
		sweepScheduler.Start()
	}

	tokenService, err := jwt.NewJWTService(cfg, tokenBlacklist, structuredLogger)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to initialize JWT service", err, nil)
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}

	var counter outbound.RateCounter
	if cfg.RateLimitStore == config.StoreRedis {
		counter = ratelimit.NewRedisCounter(rdb, "")
	} else {
		counter = ratelimit.NewMemoryCounter(cfg.RateLimitCacheMaxSize, cfg.RateLimitWindow)
	}
	rateLimitService := ratelimit.NewRateLimitService(ratelimit.RateLimitConfig{
		Enabled: cfg.RateLimitEnabled,
		Limit:   cfg.RateLimitRequests,
		Window:  cfg.RateLimitWindow,
	}, counter, structuredLogger)

	// Initialize use cases
	authenticator := usecase.NewCredentialAuthenticator(userRepo, passwordService)
	authUseCase := usecase.NewAuthUseCase(authenticator, userRepo, tokenService, structuredLogger)

	// Initialize middleware
	rules := middleware.NewPathRules(cfg.AuthWhitelistPaths, cfg.AuthBlacklistPaths)
	var hooks middleware.Hooks
	if len(cfg.AuthDeniedIPs) > 0 {
		hooks.PreValidate = middleware.DenyClientIPs(cfg.AuthDeniedIPs...)
	}
	pipeline := server.Pipeline{
		RateLimit: middleware.NewRateLimitMiddleware(rateLimitService, tokenService, rules, structuredLogger),
		Auth:      middleware.NewAuthMiddleware(tokenService, rules, hooks, structuredLogger),
	}
	if cfg.CORSEnabled && len(cfg.CORSAllowedOrigins) > 0 {
		pipeline.CORS = middleware.CORSMiddleware(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials)
	}

	router := server.NewRouter(server.Handlers{
		Auth:  handler.NewAuthHandler(authUseCase, structuredLogger),
		Users: handler.NewUserManagementHandler(userManagementUseCase, structuredLogger),
	}, pipeline, structuredLogger)
	httpServer := server.NewServer(server.ServerConfig{Addr: cfg.Addr()}, router, structuredLogger)

	go func() {
		if err := httpServer.Start(); err != nil {
			structuredLogger.Error(ctx, "HTTP server failed", err, map[string]interface{}{
				"addr": cfg.Addr(),
			})
			os.Exit(1)
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCPort != "" {
		grpcServer, err = startGRPC(cfg, tokenService, rateLimitService, structuredLogger)
		if err != nil {
			structuredLogger.Error(ctx, "gRPC server failed to start", err, nil)
			log.Fatalf("gRPC server failed to start: %v", err)
		}
	}

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if sweepScheduler != nil {
		sweepScheduler.Stop(shutdownCtx)
	}
	structuredLogger.Info(ctx, "Server exited", nil)
}

func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// newBlacklist returns the configured store and, when the store needs one,
// its sweeper. Redis expires entries by itself.
func newBlacklist(cfg *config.Config, db *sql.DB, rdb *redis.Client) (outbound.TokenBlacklist, outbound.Sweeper) {
	switch cfg.BlacklistStore {
	case config.StoreRedis:
		return blacklist.NewRedisBlacklist(rdb, ""), nil
	case config.StorePostgres:
		store := postgres.NewRevokedTokenStore(db)
		return store, store
	default:
		store := blacklist.NewMemoryBlacklist()
		return store, store
	}
}

func seedAdmin(ctx context.Context, cfg *config.Config, users inbound.UserManagementUseCase, log logger.Logger) {
	if cfg.SeedAdminPassword == "" {
		log.Warn(ctx, "SEED_ADMIN_PASSWORD not set, in-memory user store is empty", nil)
		return
	}
	user, err := users.CreateUser(ctx, inbound.CreateUserRequest{
		Username: cfg.SeedAdminUsername,
		Password: cfg.SeedAdminPassword,
		RealName: "Administrator",
		Roles:    []string{"ADMIN"},
	})
	if err != nil {
		log.Error(ctx, "Failed to seed admin user", err, nil)
		return
	}
	log.Info(ctx, "Seeded admin user", map[string]interface{}{
		"username": user.Username,
		"user_id":  user.ID,
	})
}

func startGRPC(cfg *config.Config, tokens outbound.TokenService, limiter inbound.RateLimitService, log logger.Logger) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", net.JoinHostPort(cfg.ServerHost, cfg.GRPCPort))
	if err != nil {
		return nil, err
	}

	srv := grpc.NewServer(grpc.UnaryInterceptor(grpcauth.UnaryServerInterceptor(grpcauth.Config{
		TokenService: tokens,
		RateLimit:    limiter,
		Logger:       log,
		SkipMethods:  []string{grpcauth.HealthCheckMethod},
	})))
	healthpb.RegisterHealthServer(srv, health.NewServer())

	go func() {
		log.Info(context.Background(), "Starting gRPC server", map[string]interface{}{
			"addr": lis.Addr().String(),
		})
		if err := srv.Serve(lis); err != nil {
			log.Error(context.Background(), "gRPC server stopped", err, nil)
		}
	}()
	return srv, nil
}
