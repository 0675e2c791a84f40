package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/handlers"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/config"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/database"
	forumhandler "github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum/handler"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum/repository"
	forumservice "github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum/service"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/mail"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/sessions"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/tokens"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/users"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/views"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/pkg/logger"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/pkg/metrics"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

// stores groups the repositories the services are built on.
type stores struct {
	questions repository.QuestionRepository
	users     users.UserRepository
	mail      mail.Repository
	backend   string
}

func memoryStores() stores {
	return stores{
		questions: repository.NewMemoryRepo(),
		users:     users.NewMemoryUserRepository(),
		mail:      mail.NewMemoryRepo(),
		backend:   "memory",
	}
}

// connectMongo retries with backoff to tolerate the database starting after us.
func connectMongo(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
	const maxAttempts = 5
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.URI, cfg.Timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return nil, lastErr
}

func mongoStores(ctx context.Context, client *mongo.Client, dbName string) (stores, error) {
	db := client.Database(dbName)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		return stores{}, err
	}
	return stores{
		questions: repository.NewMongoRepo(db.Collection(database.Questions)),
		users:     users.NewMongoUserRepository(db.Collection(database.Users)),
		mail:      mail.NewMongoRepo(db.Collection(database.Mail)),
		backend:   "mongodb",
	}, nil
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, Retry-After")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Infof("config loaded: mongo=%v redis=%v rate_limit=%v", cfg.MongoDB.URI != "", cfg.Redis.Addr() != "", cfg.RateLimit.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(cors(), gin.Logger(), gin.Recovery())

	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v; view de-duplication and token revocation disabled", addr, err)
			_ = client.Close()
		} else {
			rdb = client
			defer func() { _ = rdb.Close() }()
			logger.Infof("connected to Redis at %s", addr)
		}
	}

	if cfg.RateLimit.Enabled {
		if rdb != nil {
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Window))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	st := memoryStores()
	if cfg.MongoDB.URI != "" {
		client, err := connectMongo(ctx, cfg.MongoDB)
		if err != nil {
			logger.Fatalf("could not connect to MongoDB: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		if st, err = mongoStores(ctx, client, cfg.MongoDB.Database); err != nil {
			logger.Fatalf("failed to prepare MongoDB: %v", err)
		}
	} else {
		logger.Warnf("MONGODB_URI is not set; using in-memory stores")
	}

	userSvc := users.NewService(st.users)
	forumSvc := forumservice.NewService(st.questions, st.users, views.NewDeduper(rdb, cfg.Views.DedupeTTL), cfg.Limits)
	mailSvc := mail.NewService(st.mail, st.users, cfg.Limits)
	blacklist := sessions.NewBlacklist(rdb)
	verifier := tokens.NewVerifier(cfg.JWT.Secret)
	auth := middleware.AuthMiddleware(verifier, blacklist)
	optionalAuth := middleware.OptionalAuthMiddleware(verifier, blacklist)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		deps := gin.H{"store": st.backend, "redis": rdb != nil}
		if rdb != nil {
			if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": time.Since(startTime).String()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()})
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterSwagger(r)

	api := r.Group("/api/v1")
	forumhandler.New(forumSvc).Register(api, auth, optionalAuth)
	handlers.NewAuthHandler(cfg, userSvc, blacklist).Register(api, auth)
	handlers.NewMailHandler(mailSvc).Register(api, auth)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting qoverflow API on %s (store=%s)", srv.Addr, st.backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}
