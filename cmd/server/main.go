package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cparena/internal/api"
	"cparena/internal/app/notify"
	"cparena/internal/app/service"
	"cparena/internal/app/worker"
	"cparena/internal/common/security"
	"cparena/internal/domain/repository"
	"cparena/internal/platform/config"
	"cparena/internal/platform/database"
	"cparena/internal/platform/judge"
	"cparena/internal/platform/queue"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	fmt.Println("Database connected.")

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()
	fmt.Println("Redis connected.")

	// 5. Initialize Repositories
	memberRepo := repository.NewPgMemberRepository(database.DB)
	linkRepo := repository.NewPgAccountLinkRepository(database.DB)
	challengeRepo := repository.NewPgChallengeRepository(database.DB)
	contestRepo := repository.NewPgContestRepository(database.DB)

	// 6. Initialize Judge Client & Selection
	judgeClient := judge.NewClient(config.AppConfig.JudgeBaseURL, config.AppConfig.JudgeTimeout)
	picker := judge.NewPicker(config.AppConfig.PickerMinTagCount, config.AppConfig.PickerMaxRetries)
	selector := service.NewProblemSelector(judgeClient, picker)

	// 7. Initialize Services
	announcer := notify.NewPublisher(queue.RDB, config.AppConfig.AnnounceChannel)
	authService := service.NewAuthService(memberRepo)
	policyService := service.NewPolicyService(linkRepo)
	accountService := service.NewAccountService(linkRepo, judgeClient, queue.RDB)
	scoreService := service.NewScoreService(queue.RDB, memberRepo, config.AppConfig.LeaderboardMaxLimit)
	sessions := service.NewBuilderSessionStore(queue.RDB, config.AppConfig.BuilderSessionTTL)
	challengeService := service.NewChallengeService(
		challengeRepo, policyService, accountService, judgeClient, selector, scoreService, announcer)
	contestService := service.NewContestService(
		contestRepo, policyService, accountService, judgeClient, selector, scoreService, sessions, announcer)

	// 8. Initialize Workers (as goroutines)
	poller := worker.NewContestPoller(contestService, config.AppConfig.ContestPollInterval)
	resetWorker := worker.NewWindowResetWorker(
		scoreService,
		config.AppConfig.DailyResetHour,
		config.AppConfig.WeeklyResetWeekday,
		config.AppConfig.MonthlyResetDay,
	)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go poller.Start(workerCtx)
	go resetWorker.Start(workerCtx)
	fmt.Println("Workers started.")

	// 9. Initialize Router & HTTP Server
	router := api.NewRouter(authService, policyService, accountService, challengeService, contestService, scoreService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")
	workerCancel() // Signal workers to stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server and workers stopped gracefully.")
}
