package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codecourt/internal/api"
	"codecourt/internal/app/poller"
	"codecourt/internal/app/service"
	"codecourt/internal/common/security"
	"codecourt/internal/domain/repository"
	"codecourt/internal/platform/cache"
	"codecourt/internal/platform/config"
	"codecourt/internal/platform/database"
	"codecourt/internal/platform/judge"
	"codecourt/internal/platform/monitor"
)

func main() {
	cfg := config.Load()
	log.Println("Configuration loaded.")

	tokens := security.NewTokenManager(cfg.JWTKey, cfg.JWTExp)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected.")

	rdb, err := cache.Connect(cfg)
	if err != nil {
		log.Fatalf("Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("Redis connected.")

	judgeClient := judge.NewClient(cfg.JudgeURL, cfg.JudgeCallbackURL, &http.Client{Timeout: cfg.JudgeTimeout})
	monitorClient := monitor.NewClient(cfg.MonitorURL, &http.Client{Timeout: 15 * time.Second})

	userRepo := repository.NewPgUserRepository(db)
	problemRepo := repository.NewPgProblemRepository(db)
	submissionRepo := repository.NewPgSubmissionRepository(db)
	contestRepo := repository.NewPgContestRepository(db)

	authService := service.NewAuthService(userRepo, tokens)
	problemService := service.NewProblemService(problemRepo, rdb, cfg.DefaultCodeCacheTTL)
	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, contestRepo, judgeClient, rdb, cfg.ReconcileLockTTL)
	contestService := service.NewContestService(contestRepo, problemRepo, submissionRepo)
	proctorService := service.NewProctorService(monitorClient, rdb, cfg.CheatThreshold, cfg.ProctorFlagTTL, nil)

	verdictPoller := poller.New(submissionService, cfg.PollInterval, cfg.PollRetries)

	router := api.NewRouter(tokens, authService, problemService, submissionService, contestService, proctorService, verdictPoller)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // verdict long-poll can hold a request for a while
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
		}
	}()

	<-stop

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped gracefully.")
}
