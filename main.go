package main

import (
	"context"
	"log"

	api "mailsync-backend/cmd/api"
	accountDelivery "mailsync-backend/internal/account/delivery"
	accountdomain "mailsync-backend/internal/account/domain"
	accountRepo "mailsync-backend/internal/account/repository"
	accountUsecase "mailsync-backend/internal/account/usecase"
	authUsecase "mailsync-backend/internal/auth/usecase"
	syncdomain "mailsync-backend/internal/emailsync/domain"
	syncRepo "mailsync-backend/internal/emailsync/repository"
	syncUsecase "mailsync-backend/internal/emailsync/usecase"
	"mailsync-backend/internal/notification"
	subDelivery "mailsync-backend/internal/subscription/delivery"
	"mailsync-backend/internal/subscription/dispatch"
	"mailsync-backend/internal/subscription/engine"
	"mailsync-backend/internal/subscription/provider"
	subUsecase "mailsync-backend/internal/subscription/usecase"
	"mailsync-backend/pkg/config"
	"mailsync-backend/pkg/database"
	"mailsync-backend/pkg/fcm"
	"mailsync-backend/pkg/gmail"
	"mailsync-backend/pkg/outlook"
	"mailsync-backend/pkg/secrets"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&accountdomain.Account{}, &accountdomain.DeviceToken{}, &syncdomain.SyncHistory{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Token encryption at rest
	cipher, err := secrets.NewCipher(cfg.TokenEncryptionKey)
	if err != nil {
		log.Fatal("Failed to initialize token cipher:", err)
	}

	// Initialize repositories (dependency injection)
	accounts := accountRepo.NewAccountRepository(db)
	deviceTokens := accountRepo.NewDeviceTokenRepository(db)
	syncHistory := syncRepo.NewSyncHistoryRepository(db)

	// Provider API clients
	gmailService := gmail.NewService()
	outlookService := outlook.NewService()

	resolver := subUsecase.NewCredentialResolver(accounts, cipher, cfg)

	topicName := "projects/" + cfg.GoogleProjectID + "/topics/" + cfg.GooglePubSubTopic
	registry := provider.NewRegistry(
		provider.NewGmailClient(gmailService, topicName, cfg.ProviderTimeout),
		provider.NewOutlookClient(outlookService, cfg.WebhookBaseURL+"/api/webhooks/outlook", cfg.ProviderTimeout),
	)

	// Initialize FCM Client (optional, sync works without it)
	var fcmClient *fcm.Client
	if cfg.FirebaseCredentials != "" {
		fcmClient, err = fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		}
	}

	// Sync collaborator and the async dispatcher feeding it
	syncer := syncUsecase.NewSyncUsecase(accounts, deviceTokens, syncHistory, resolver, gmailService, outlookService, fcmClient)
	dispatcher := dispatch.NewDispatcher(syncer, cfg.DispatchWorkers, cfg.DispatchQueueSize)
	dispatcher.Start()

	// Notification router behind both ingress paths
	router := subUsecase.NewRouter(accounts, dispatcher)

	// Reconciliation engine and its scheduler
	eng := engine.NewEngine(accounts, resolver, registry, cfg.AccountDelay, cfg.RenewalWindow)
	scheduler := engine.NewScheduler(eng, cfg.ReconcileCron, cfg.CleanupCron)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}

	// Optional Pub/Sub pull ingress for gmail notifications
	if cfg.GoogleProjectID != "" {
		notifService, err := notification.NewService(cfg.GoogleProjectID, cfg.GooglePubSubTopic, router, cfg.GoogleCredentials)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize Pub/Sub ingress: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	} else {
		log.Printf("[WARN] GoogleProjectID not configured, Pub/Sub ingress disabled")
	}

	// Initialize use cases and HTTP delivery
	authUc := authUsecase.NewAuthUsecase(cfg)
	accountUc := accountUsecase.NewAccountUsecase(accounts, deviceTokens, cipher)

	accountHandler := accountDelivery.NewAccountHandler(accountUc)
	webhookHandler := subDelivery.NewWebhookHandler(router)
	adminHandler := subDelivery.NewAdminHandler(eng, scheduler)

	handler := api.NewHandler(authUc, accountHandler, webhookHandler, adminHandler, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
