package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wellcheck/internal/attendance"
	"wellcheck/internal/cloudinary"
	"wellcheck/internal/config"
	"wellcheck/internal/faceclient"
	"wellcheck/internal/handler"
	"wellcheck/internal/httpmiddleware"
	"wellcheck/internal/metrics"
	"wellcheck/internal/project"
	"wellcheck/internal/queue"
	"wellcheck/internal/reminder"
	"wellcheck/internal/store"
	"wellcheck/internal/team"
	"wellcheck/internal/user"
	"wellcheck/internal/worker"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db not reachable: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	defer redisClient.Close()

	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)

	var q queue.Queue
	inProcess := cfg.QueueBackend == "memory" || redisClient == nil
	if inProcess {
		q = queue.NewInMemory(64)
		log.Println("queue: in-memory, background jobs run inside the API process")
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	policy := cfg.Policy()
	att := attendance.NewService(attendance.NewRepository(db.Client), q, policy)
	users := user.NewService(user.NewRepository(db.Client), user.TokenConfig{
		Issuer:     cfg.JWTIssuer,
		SigningKey: cfg.JWTSigningKey,
		TTL:        cfg.AccessTTL,
	})
	teams := team.NewService(team.NewRepository(db.Client))
	projects := project.NewService(project.NewRepository(db.Client), teams, users)

	if inProcess {
		var uploader worker.Uploader
		if cfg.CloudinaryConfigured() {
			uploader = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		}
		go func() {
			if err := worker.Run(ctx, q, worker.NewProcessor(att, uploader, cfg.SelfieMaxSide)); err != nil {
				log.Printf("in-process worker stopped: %v", err)
			}
		}()
		sched, err := reminder.NewSweeper(users, att, q, policy.Location).Start(cfg.ReminderSpec, time.Minute)
		if err != nil {
			return err
		}
		defer sched.Stop()
	}

	var limiter httpmiddleware.Limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if redisClient != nil {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, "", cfg.RateLimitPerMin)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: !allowsAny(cfg.AllowOrigins),
		MaxAge:           12 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(metrics.GinMiddleware())
	r.Use(httpmiddleware.RateLimit(limiter))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		reqCtx := c.Request.Context()
		dbHealthy := db.Healthy(reqCtx)
		redisHealthy := inProcess || redisClient.Healthy(reqCtx)
		faceCtx, cancel := context.WithTimeout(reqCtx, 2*time.Second)
		faceHealthy := face.Health(faceCtx) == nil
		cancel()
		status := http.StatusOK
		if !dbHealthy || !redisHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "db": dbHealthy, "redis": redisHealthy, "face": faceHealthy})
	})

	handler.New(att, users, teams, projects, cfg.JWTSigningKey, cfg.JWTIssuer).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
