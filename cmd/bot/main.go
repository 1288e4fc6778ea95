package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eslatma_bot/internal/app"
	"eslatma_bot/internal/infra/config"
	idb "eslatma_bot/internal/infra/database"
	applogger "eslatma_bot/internal/infra/logger"
	iopenai "eslatma_bot/internal/infra/openai"
	"eslatma_bot/internal/infra/scheduler"
	"eslatma_bot/internal/infra/telegram"

	"eslatma_bot/internal/domain/reminder"
	"eslatma_bot/internal/domain/user"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Eslatma Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	applogger.Init(cfg)
	log := applogger.Get().WithField("component", "main")
	log.WithFields(map[string]interface{}{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Configuration loaded")

	// Database: PostgreSQL when DATABASE_URL is set, local SQLite file otherwise.
	var (
		db     *sql.DB
		driver string
	)
	if cfg.DatabaseURL != "" {
		driver = "postgres"
		db, err = idb.NewPostgresConnection(cfg.DatabaseURL)
	} else {
		driver = "sqlite3"
		db, err = idb.NewSQLiteConnection(cfg.SQLitePath)
	}
	if err != nil {
		log.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	log.WithField("driver", driver).Info("Database connection established")

	if err := idb.Migrate(db, driver); err != nil {
		log.WithError(err).Fatal("Could not run database migrations")
	}
	log.Info("Database migrations applied")

	var reminderRepo reminder.Repository
	var userRepo user.Repository
	if driver == "postgres" {
		reminderRepo = idb.NewPostgresReminderRepository(db)
		userRepo = idb.NewPostgresUserRepository(db)
	} else {
		reminderRepo = idb.NewSQLiteReminderRepository(db)
		userRepo = idb.NewSQLiteUserRepository(db)
	}

	// Telegram bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := applogger.Get().WithField("component", "telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(map[string]interface{}{
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.WithError(err).Fatal("Could not create Telegram bot")
	}
	tgClient := telegram.NewTelebotAdapter(bot)

	// Speech pipeline
	transcriber := iopenai.NewTranscriber(cfg.OpenAIAPIKey)
	extractor := iopenai.NewExtractor(cfg.OpenAIAPIKey)
	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set; voice and text extraction disabled")
	}

	// Services
	deliveryService := app.NewDeliveryService(
		reminderRepo,
		tgClient,
		applogger.Get().WithField("component", "delivery"),
		cfg.FollowUpDelay,
		cfg.SendTimeout,
	)
	recoveryService := app.NewRecoveryService(
		reminderRepo,
		tgClient,
		applogger.Get().WithField("component", "recovery"),
		cfg.RecoveryGracePeriod,
	)
	responseService := app.NewResponseService(
		reminderRepo,
		applogger.Get().WithField("component", "response"),
		cfg.SnoozeDelay,
	)
	reminderService := app.NewReminderService(
		reminderRepo,
		userRepo,
		transcriber,
		extractor,
		applogger.Get().WithField("component", "reminder"),
		cfg.DefaultTimezone,
		cfg.RateLimitMessages,
		cfg.RateLimitWindow,
	)

	ctx := context.Background()

	// Reconcile missed reminders before the periodic scheduler starts so
	// recovery and regular delivery never race over the same rows.
	if err := recoveryService.Reconcile(ctx, time.Now().UTC()); err != nil {
		log.WithError(err).Error("Startup recovery pass failed")
	}

	deliveryScheduler := scheduler.NewDeliveryScheduler(
		deliveryService,
		applogger.Get().WithField("component", "scheduler"),
		cfg.CronSpecDeliveryTick,
	)
	deliveryScheduler.Start()

	// Handlers
	telegram.RegisterBotCommands(ctx, bot, reminderService, applogger.Get().WithField("component", "handlers"))
	telegram.RegisterMessageHandlers(ctx, bot, reminderService, responseService, applogger.Get().WithField("component", "handlers"))
	telegram.RegisterResponseHandlers(ctx, bot, responseService)
	log.Info("Telegram handlers registered")

	log.Info("Application setup complete. Bot and scheduler are running.")
	go bot.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	deliveryScheduler.Stop()
	bot.Stop()
	log.Info("Application shut down gracefully")
}
