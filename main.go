package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"funcal/config"
	"funcal/handlers"
	"funcal/internal/scrapers"
	_ "funcal/migrations"
	"funcal/monitoring"
	"funcal/security"
	"funcal/services"
	"funcal/utils"

	"github.com/joho/godotenv"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	app := pocketbase.New()
	cfg := config.LoadConfig()

	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}

	// Scraper stack
	fetcher := scrapers.NewFetcher(cfg.FetchTimeout)
	registry := scrapers.NewRegistry(fetcher)
	icalImporter := scrapers.NewIcalImporter(cfg.FetchTimeout)
	googleImporter := scrapers.NewGoogleImporter(cfg.GoogleClientID, cfg.GoogleClientSecret)
	firecrawlClient := scrapers.NewFirecrawlClient(cfg.FirecrawlAPIURL, cfg.FirecrawlAPIKey, cfg.ExtractTimeout)

	// Services
	dedupService := services.NewDedupService(app)
	eventService := services.NewEventService(app, dedupService, cfg)
	ingestService := services.NewIngestService(
		app, eventService, registry, icalImporter, googleImporter, firecrawlClient, pn)
	syncQueue := services.NewSyncQueueService(redisClient, ingestService, cfg)

	// Handlers
	eventHandler := handlers.NewEventHandler(app, eventService)
	icalHandler := handlers.NewIcalHandler(app)
	sourceHandler := handlers.NewSourceHandler(app, syncQueue)
	rateLimiter := security.NewRateLimiter(redisClient)

	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, syncQueue)

	// Periodic work: scan for due imports and scrapes, and the nightly
	// cross-source duplicate sweep.
	app.Cron().MustAdd("syncSweep", cfg.SweepCron, func() {
		syncQueue.ScheduleDueWork(ctx)
	})
	app.Cron().MustAdd("dedupSweep", cfg.DedupSweepCron, func() {
		if _, err := dedupService.Sweep(ctx); err != nil {
			log.Printf("[Dedup] Sweep failed: %v", err)
		}
	})

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Event submission (API and chat assistant tools)
		e.Router.POST("/api/events", eventHandler.CreateEvent).BindFunc(rateLimiter.SubmitRateLimit())
		e.Router.POST("/api/chat/tools/create_event", eventHandler.CreateEventFromChat).BindFunc(rateLimiter.SubmitRateLimit())
		e.Router.POST("/api/chat/tools/list_events", eventHandler.ListEvents)
		e.Router.POST("/api/chat/tools/search_events", eventHandler.SearchEvents)

		// iCal feeds
		e.Router.GET("/calendars/{token}/feed.ics", icalHandler.Feed)
		e.Router.POST("/api/calendars/{calendarId}/rotate-ical-token", icalHandler.RotateToken)

		// Sources and imports
		e.Router.GET("/api/sources", sourceHandler.ListSources)
		e.Router.POST("/api/sources/{sourceId}/run", sourceHandler.RunSource)
		e.Router.POST("/api/calendars/{calendarId}/import", sourceHandler.RunCalendarImport)
		e.Router.GET("/api/calendars/{calendarId}/import-status", sourceHandler.ImportStatus)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		if cfg.SourcesSeedFile != "" {
			if err := services.LoadSourcesFromFile(app, cfg.SourcesSeedFile); err != nil {
				log.Printf("[Seeds] %v", err)
			}
		}

		syncQueue.StartWorkers(ctx, cfg.SyncWorkers)

		if cfg.EnableMetrics {
			monitor := monitoring.NewMonitor(redisClient, syncQueue)
			monitor.StartMetricsServer(cfg.MetricsPort)
		}

		log.Println("Server routes registered")
		return e.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

func handleShutdown(cancel context.CancelFunc, syncQueue *services.SyncQueueService) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	syncQueue.Stop()
	cancel()
}
