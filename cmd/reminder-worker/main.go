package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/michellelee0718/porespective/internal/config"
	appMiddleware "github.com/michellelee0718/porespective/internal/middleware"
	"github.com/michellelee0718/porespective/internal/reminder"
	"github.com/michellelee0718/porespective/internal/services"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userService, err := services.NewMongoUserService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("[worker] mongo user service init failed: %v", err)
	}
	defer userService.Close(context.Background())

	// Push notifications go out through FCM; a missing Firebase setup
	// degrades to email-only reminders rather than stopping the worker.
	var notifier services.Notifier
	app, err := appMiddleware.NewFirebaseApp(ctx, appMiddleware.FirebaseAuthConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsFile: cfg.FirebaseCredentialsFile,
	})
	if err != nil {
		log.Printf("[worker] firebase init failed, push notifications disabled: %v", err)
	} else {
		notifier, err = services.NewFCMNotifier(ctx, app)
		if err != nil {
			log.Printf("[worker] fcm init failed, push notifications disabled: %v", err)
			notifier = nil
		}
	}

	mailer := services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.SenderEmail)

	scheduler := reminder.New(userService, notifier, mailer,
		reminder.WithInterval(cfg.ReminderInterval),
	)

	// Liveness endpoint for the hosting platform.
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		})
		addr := ":" + getEnv("PORT", "8081")
		log.Printf("[worker] health endpoint on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("[worker] health endpoint failed: %v", err)
		}
	}()

	log.Printf("[worker] reminder scheduler starting (interval %s)", cfg.ReminderInterval)
	if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("[worker] scheduler stopped: %v", err)
	}
	log.Printf("[worker] shut down")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
