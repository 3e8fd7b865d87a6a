package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"wellcheck/internal/attendance"
	"wellcheck/internal/cloudinary"
	"wellcheck/internal/config"
	"wellcheck/internal/queue"
	"wellcheck/internal/reminder"
	"wellcheck/internal/store"
	"wellcheck/internal/user"
	"wellcheck/internal/worker"
)

// Worker stores selfies in image storage, runs the reminder sweep and
// delivers reminders.
func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory runs jobs inside the API; the worker needs redis")
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if redisClient == nil {
		log.Fatal("REDIS_ADDR is required for the worker")
	}
	defer redisClient.Close()
	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)

	policy := cfg.Policy()
	att := attendance.NewService(attendance.NewRepository(db.Client), q, policy)
	users := user.NewService(user.NewRepository(db.Client), user.TokenConfig{})

	var uploader worker.Uploader
	if cfg.CloudinaryConfigured() {
		uploader = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set), selfies stay inline")
	}

	sched, err := reminder.NewSweeper(users, att, q, policy.Location).Start(cfg.ReminderSpec, time.Minute)
	if err != nil {
		log.Fatalf("reminder schedule failed: %v", err)
	}
	defer sched.Stop()

	log.Println("worker started, waiting for messages...")
	if err := worker.Run(ctx, q, worker.NewProcessor(att, uploader, cfg.SelfieMaxSide)); err != nil {
		log.Printf("worker: %v", err)
	}
	log.Println("worker stopped")
}
