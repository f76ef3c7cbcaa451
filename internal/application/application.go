package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/greecode/admin-portal/internal/config"
	"github.com/greecode/admin-portal/internal/database"
	"github.com/greecode/admin-portal/internal/handler"
	"github.com/greecode/admin-portal/internal/kafka"
	"github.com/greecode/admin-portal/internal/repository"
	"github.com/greecode/admin-portal/internal/router"
	"github.com/greecode/admin-portal/internal/searchindex"
	"github.com/greecode/admin-portal/internal/seed"
	"github.com/greecode/admin-portal/internal/service"
	"github.com/greecode/admin-portal/internal/session"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// API is the HTTP server of the api command.
type API struct {
	cfg      *config.Config
	httpSrv  *http.Server
	producer *kafka.Producer
	redis    *redis.Client
	db       *gorm.DB
}

// OpenConcernRepository returns the repository selected by CONCERN_STORE. For postgres it
// applies pending migrations first when migrate is set; db is nil in memory mode.
func OpenConcernRepository(cfg *config.Config, migrate bool) (repository.ConcernRepository, *gorm.DB, error) {
	if cfg.ConcernStore == config.StoreDriverMemory {
		log.Println("application: concern store is in memory, data is lost on restart")
		return repository.NewMemoryConcernRepository(), nil, nil
	}
	if migrate {
		if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	db, err := database.Open(cfg.DSN(), cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	return repository.NewGormConcernRepository(db), db, nil
}

// seedOnBoot limits SEED_DEMO to the memory store; a persistent store is seeded once with the
// seed command.
func seedOnBoot(cfg *config.Config) bool {
	return cfg.SeedDemo && cfg.ConcernStore == config.StoreDriverMemory
}

// NewAPI wires the session gate, the concern workflow and the router.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.ValidateAPI(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	repo, db, err := OpenConcernRepository(cfg, true)
	if err != nil {
		return nil, err
	}
	a := &API{cfg: cfg, db: db}
	checks := map[string]handler.Check{}
	if db != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	var store session.Store
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redisStore := session.NewRedisStore(a.redis, cfg.Session.TTL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisStore.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		checks["redis"] = redisStore.Ping
		store = redisStore
	} else {
		log.Println("application: REDIS_ADDR not set, sessions are kept in memory")
		store = session.NewMemoryStore()
	}

	tokens, err := session.NewTokenIssuer(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL)
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}
	verifier, err := session.NewStaticVerifier(cfg.Admin.Email, cfg.Admin.PasswordHash, cfg.Admin.CodeHash)
	if err != nil {
		return nil, fmt.Errorf("admin verifier: %w", err)
	}

	a.producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicConcern)
	searchClient := searchindex.NewClient(cfg.SearchServiceURL)

	var indexer service.Indexer
	if searchClient.Enabled() {
		indexer = searchClient
	}
	var events service.EventProducer
	if a.producer.Enabled() {
		events = a.producer
	}
	concernSvc := service.NewConcernService(repo, events, indexer)

	if seedOnBoot(cfg) {
		seeded, err := seed.Load(context.Background(), concernSvc)
		if err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
		log.Printf("application: seeded %d demo concerns", len(seeded))
	}

	managerCfg := session.ManagerConfig{
		Verifier:  verifier,
		Store:     store,
		Tokens:    tokens,
		KeyPrefix: cfg.Session.KeyPrefix,
		IdleTTL:   cfg.Session.TTL,
	}
	if a.producer.Enabled() {
		managerCfg.Events = a.producer
	}
	sessions := session.NewManager(managerCfg)

	h := router.New(router.Deps{
		Sessions:      sessions,
		Auth:          handler.NewAuthHandler(sessions),
		Concerns:      handler.NewConcernHandler(concernSvc),
		Ready:         handler.Ready(checks),
		SecureCookies: cfg.IsProduction(),
	})

	a.httpSrv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", a.httpSrv.Addr)
	log.Printf("  Swagger UI:    %s/swagger", base)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Ready:         %s/ready", base)
	log.Printf("  API v1:        %s/api/v1/", base)

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		a.release()
		if err != nil {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := a.httpSrv.Shutdown(shutdownCtx)
	a.release()
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (a *API) release() {
	if err := a.producer.Close(); err != nil {
		log.Printf("application: close kafka producer: %v", err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("application: close redis: %v", err)
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
