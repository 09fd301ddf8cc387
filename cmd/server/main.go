package main

import (
	"context"
	"flag"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/llmhub-dev/llmhub/internal/adapter"
	"github.com/llmhub-dev/llmhub/internal/config"
	"github.com/llmhub-dev/llmhub/internal/db"
	llmhubhttp "github.com/llmhub-dev/llmhub/internal/http"
	"github.com/llmhub-dev/llmhub/internal/keystore"
	"github.com/llmhub-dev/llmhub/internal/logging"
	"github.com/llmhub-dev/llmhub/internal/models"
	"github.com/llmhub-dev/llmhub/internal/quota"
	"github.com/llmhub-dev/llmhub/internal/routing"
	"github.com/llmhub-dev/llmhub/internal/security"
	"github.com/llmhub-dev/llmhub/internal/usage"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	cfg, errLoad := config.Load(*configPath)
	if errLoad != nil {
		log.Fatalf("load config: %v", errLoad)
	}
	logging.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		log.Fatalf("open database: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		log.Fatalf("migrate database: %v", errMigrate)
	}

	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		generated, errSecret := security.GenerateSigningSecret()
		if errSecret != nil {
			log.Fatalf("generate signing secret: %v", errSecret)
		}
		jwtSecret = generated
		log.Warn("auth.jwt_secret not configured, using an ephemeral secret; admin sessions will not survive restarts")
	}

	if errSeed := ensureBootstrapAdmin(ctx, conn, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); errSeed != nil {
		log.Fatalf("bootstrap admin: %v", errSeed)
	}

	registry := adapter.DefaultRegistry()
	table := routing.DefaultTable()
	quotaSvc := quota.NewService(conn)

	engine := routing.NewEngine(routing.Config{
		Registry:        registry,
		Admitter:        quotaSvc,
		Table:           table,
		FallbackSecrets: cfg.FallbackSecrets(registry.Providers()),
	})

	var limiter *llmhubhttp.RateLimiter
	if cfg.RateLimit.Enabled && strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		limiter = llmhubhttp.NewRateLimiter(rdb, cfg.RateLimit.RequestsPerMinute)
	}

	quota.NewPoller(conn, registry).Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := llmhubhttp.NewRouter(llmhubhttp.RouterConfig{
		DB:        conn,
		Engine:    engine,
		Table:     table,
		Keys:      keystore.NewStore(conn),
		Reporter:  usage.NewReporter(conn),
		JWTSecret: jwtSecret,
		TokenTTL:  cfg.Auth.TokenTTL,
		Limiter:   limiter,
	})

	log.Infof("listening on %s", cfg.Server.Addr)
	if errRun := runServer(ctx, router, cfg.Server.Addr); errRun != nil {
		log.Fatalf("server: %v", errRun)
	}
}

// ensureBootstrapAdmin seeds the first admin account when the table is
// empty and credentials are configured.
func ensureBootstrapAdmin(ctx context.Context, conn *gorm.DB, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil
	}

	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return errCount
	}
	if count > 0 {
		return nil
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return errHash
	}
	admin := models.Admin{Username: username, Password: hash, Active: true}
	if errCreate := conn.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		return errCreate
	}
	log.Infof("created bootstrap admin %q", username)
	return nil
}
