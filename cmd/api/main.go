package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	appService "remindbot/internal/application/service"

	"remindbot/internal/infrastructure/database/sqlite"
	"remindbot/internal/infrastructure/dateparser"
	"remindbot/internal/infrastructure/necsus"
	"remindbot/internal/infrastructure/scheduler"

	"remindbot/internal/interfaces/api/handler"
	"remindbot/internal/interfaces/api/router"

	"remindbot/internal/pkg/clock"
	appLogger "remindbot/internal/pkg/logger"

	"gorm.io/gorm"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file
)

func gracefulShutdown(apiServer *http.Server, schedulerService appService.SchedulerService, db *gorm.DB, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	// Shutdown HTTP server first so in-flight requests finish while the
	// scheduler and database are still up.
	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	// Stop the scheduler
	log.Println("Stopping scheduler...")
	schedulerService.Stop()
	log.Println("Scheduler stopped.")

	// Close database connection
	log.Println("Closing database connection...")
	if err := sqlite.CloseDB(db); err != nil {
		log.Printf("Error closing database: %v", err)
	} else {
		log.Println("Database connection closed.")
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func envOrDefault(appLog appLogger.Logger, key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		appLog.Warn(fmt.Sprintf("%s environment variable not set, defaulting to %q", key, fallback))
		return fallback
	}
	return value
}

func main() {
	// --- Initialization ---
	appLog := appLogger.New()
	appLog.Info("Logger initialized.")

	portStr := envOrDefault(appLog, "PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		appLog.Error("Invalid PORT environment variable", err)
		os.Exit(1)
	}

	dbURL := envOrDefault(appLog, "REMINDBOT_DB_URL", "jobs.sqlite")
	tzName := envOrDefault(appLog, "TIMEZONE", "Australia/Melbourne")
	necsusURL := envOrDefault(appLog, "NECSUS_URL", "https://chat.ncss.cloud")
	botName := envOrDefault(appLog, "BOT_NAME", "reminderbot")

	clk, err := clock.New(tzName)
	if err != nil {
		appLog.Error("Failed to load timezone", err)
		os.Exit(1)
	}

	// --- Infrastructure ---
	db, err := sqlite.NewDB(dbURL)
	if err != nil {
		appLog.Error("Failed to initialize database", err)
		os.Exit(1)
	}
	jobStore := sqlite.NewJobStore(db)
	appLog.Info("Database and job store initialized.")

	chatClient := necsus.NewClient(necsusURL, botName, appLog)
	parser := dateparser.New(clk, appLog)
	cronRunner := scheduler.NewCron(clk.Location(), appLog)

	// --- Application Services ---
	// Initialize services (order matters for dependency injection workaround)
	schedulerSvc := appService.NewSchedulerService(cronRunner, jobStore, clk, appLog)
	reminderSvc, err := appService.NewReminderService(schedulerSvc, parser, chatClient, clk, appLog)
	if err != nil {
		appLog.Error("Failed to initialize reminder service", err)
		os.Exit(1)
	}
	appLog.Info("Application services initialized.")

	// --- Initialize Schedules ---
	appLog.Info("Initializing reminder schedules...")
	if err := schedulerSvc.InitializeSchedules(context.Background()); err != nil {
		// Log the error but continue starting the server
		appLog.Error("Failed to initialize schedules on startup", err)
	} else {
		appLog.Info("Reminder schedules initialized.")
	}

	// --- API Handlers ---
	commandHandler := handler.NewCommandHandler(reminderSvc, botName, appLog)
	appLog.Info("API handlers initialized.")

	// --- Router ---
	routerCfg := &router.Config{
		CommandHandler: commandHandler,
		Logger:         appLog,
	}
	echoRouter := router.NewRouter(routerCfg)

	// --- HTTP Server ---
	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      echoRouter,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// --- Start Server & Shutdown Handling ---
	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, schedulerSvc, db, done)

	appLog.Info(fmt.Sprintf("Server starting on port %d", port))
	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		appLog.Error("HTTP server ListenAndServe error", err)
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for graceful shutdown signal
	<-done
	appLog.Info("Graceful shutdown complete.")
}
