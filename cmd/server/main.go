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

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/fau-events/internal/api"
	"github.com/fau-events/internal/config"
	"github.com/fau-events/internal/logger"
	"github.com/fau-events/internal/middleware"
	"github.com/fau-events/internal/notify"
	"github.com/fau-events/internal/registration"
	"github.com/fau-events/internal/scheduler"
	"github.com/fau-events/internal/storage"

	_ "github.com/fau-events/docs" // swagger docs
)

const notificationRetention = 90 * 24 * time.Hour

// @title FAU Events API
// @version 1.0
// @description Event registration backend for the parents' council: events with capacity limits, group and photo-slot registrations, confirmation and reminder mail, and a board admin area.

// @contact.name FAU board

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey CookieAuth
// @in header
// @name X-CSRF-Token
// @description CSRF token returned by /login, sent alongside the fau_session cookie on state-changing requests

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Session token with the `Bearer ` prefix, for non-browser clients

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.GeneratedSecret {
		zap.L().Warn("JWT_SECRET not set, using a generated secret; sessions will not survive a restart")
	}

	zap.L().Info("connecting to database")
	db, err := storage.NewDatabase(&cfg.Database)
	if err != nil {
		zap.L().Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	zap.L().Info("running migrations")
	if err := db.RunMigrations(); err != nil {
		zap.L().Fatal("failed to run migrations", zap.Error(err))
	}

	userRepo := storage.NewUserRepository(db, cfg.Auth.BcryptCost)
	eventRepo := storage.NewEventRepository(db)
	registrationRepo := storage.NewRegistrationRepository(db)
	reminderRepo := storage.NewReminderRepository(db)
	notificationRepo := storage.NewNotificationRepository(db)
	contactRepo := storage.NewContactRepository(db)

	ctx := context.Background()
	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		admin, err := userRepo.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name)
		if err != nil {
			zap.L().Warn("failed to create admin user", zap.Error(err))
		} else {
			zap.L().Info("admin user ready", zap.String("username", admin.Username))
		}
	}

	mailer, err := notify.NewMailer(cfg.Mail)
	if err != nil {
		zap.L().Fatal("failed to set up mail transport", zap.Error(err))
	}
	alerter := notify.NewWebhookAlerter(cfg.Webhook)
	dispatcher := notify.NewDispatcher(mailer,
		notify.WithRecorder(notificationRepo),
		notify.WithAlerter(alerter),
		notify.WithSendTimeout(cfg.Mail.SendTimeout),
	)

	engine := registration.NewEngine(registrationRepo, eventRepo, dispatcher)

	loc := cfg.Reminder.Location()
	job := scheduler.NewReminderJob(eventRepo, registrationRepo, reminderRepo, dispatcher, loc)
	sched := scheduler.NewScheduler(job, cfg.Reminder.Schedule, loc)
	sched.AddJob("notification-log-prune", "@daily", func(ctx context.Context) error {
		removed, err := notificationRepo.DeleteOld(ctx, time.Now().Add(-notificationRetention))
		if err != nil {
			return err
		}
		zap.L().Info("pruned notification log", zap.Int64("removed", removed))
		return nil
	})

	zap.L().Info("starting scheduler", zap.String("schedule", cfg.Reminder.Schedule), zap.String("timezone", loc.String()))
	if err := sched.Start(ctx); err != nil {
		zap.L().Fatal("failed to start scheduler", zap.Error(err))
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth)
	handler := api.NewHandler(userRepo, eventRepo, contactRepo, notificationRepo, engine, sched, authMiddleware)
	router := api.NewRouter(handler, authMiddleware, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zap.L().Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server shutdown error", zap.Error(err))
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		zap.L().Warn("pending notifications abandoned", zap.Error(err))
	}

	zap.L().Info("server stopped")
}
