package main

import (
	"context"
	"log"
	"net/http"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/michellelee0718/porespective/internal/config"
	"github.com/michellelee0718/porespective/internal/handlers"
	appMiddleware "github.com/michellelee0718/porespective/internal/middleware"
	"github.com/michellelee0718/porespective/internal/services"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Profile storage (shared Mongo connection for all collections)
	userService, err := services.NewMongoUserService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer userService.Close(context.Background())

	// Auth middleware per configured mode
	var authMiddleware func(http.Handler) http.Handler
	var authHandler *handlers.AuthHandler

	switch cfg.AuthMode {
	case "local":
		accountService := services.NewAccountService(userService.Database())
		authHandler = handlers.NewAuthHandler(accountService, userService, cfg.JWTSecret, cfg.JWTExpiration)
		authMiddleware = appMiddleware.JWTAuth(cfg.JWTSecret)
	default:
		app, err := appMiddleware.NewFirebaseApp(ctx, appMiddleware.FirebaseAuthConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentialsFile,
		})
		if err != nil {
			log.Printf("Warning: failed to initialize Firebase app: %v", err)
		}
		var authClient *fbauth.Client
		if app != nil {
			authClient, err = appMiddleware.NewFirebaseAuthClient(ctx, app)
			if err != nil {
				log.Printf("Warning: failed to initialize Firebase Auth client: %v", err)
			}
		}
		authMiddleware = appMiddleware.FirebaseAuth(authClient)
	}

	// Ingredient lookup with the 30-day product cache
	productCache := services.NewMongoProductCache(ctx, userService.Database())
	ewgClient := services.NewEWGClient(cfg.EWGBaseURL, productCache)

	// AI recommendation stack
	llmClient := services.NewOllamaClient(cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTemperature)
	sessionStore := services.NewSessionStore()
	summaryCache := services.NewMongoSummaryCache(ctx, userService.Database())

	mailer := services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.SenderEmail)

	profileHandler := handlers.NewProfileHandler(userService)
	routineHandler := handlers.NewRoutineHandler(userService)
	productHandler := handlers.NewProductHandler(ewgClient)
	recommendHandler := handlers.NewRecommendHandler(llmClient, sessionStore, summaryCache)
	emailHandler := handlers.NewEmailHandler(mailer)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Public endpoints consumed directly by the product page
	r.Get("/get_ingredients", productHandler.GetIngredients)
	r.Post("/recommend", recommendHandler.Recommend)
	r.Post("/chat", recommendHandler.Chat)
	r.Post("/ingredient-summary", recommendHandler.IngredientSummary)
	r.Post("/send-email", emailHandler.SendEmail)

	r.Route("/api", func(r chi.Router) {
		// Local-mode account endpoints, outside the auth group
		if authHandler != nil {
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		}

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", profileHandler.GetProfile)
				r.Put("/", profileHandler.UpdateProfile)
			})

			r.Route("/routine", func(r chi.Router) {
				r.Get("/check-in", routineHandler.GetCheckIn)
				r.Post("/check-in/{slot}", routineHandler.CompleteRoutine)
			})

			if authHandler != nil {
				r.Delete("/account", authHandler.DeleteAccount)
			}
		})
	})

	log.Printf("Porespective API server starting on %s (auth mode: %s)", cfg.ServerAddress, cfg.AuthMode)
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
