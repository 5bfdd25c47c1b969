package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"lifeline/internal/config"
	"lifeline/internal/events"
	handlers "lifeline/internal/handlers/shared"
	"lifeline/internal/middleware"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/repositories/memory"
	"lifeline/internal/repositories/mongodb"
	"lifeline/internal/services"
	"lifeline/internal/utils"
	"lifeline/pkg/cache"
	"lifeline/pkg/database"
	"lifeline/pkg/geocode"
	"lifeline/pkg/logger"
	"lifeline/pkg/notify"
	"lifeline/pkg/push"
	"lifeline/pkg/storage"
	ws "lifeline/pkg/websocket"
	"lifeline/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: "json",
		Output: "stdout",
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	ctx := context.Background()

	// MongoDB backs the contact and agent directories; without it the
	// engine runs on in-memory repositories (dev mode).
	contactRepo, agentRepo, profileRepo := buildRepositories(ctx, cfg, log)

	var redisCache services.Cache
	if rc, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}); err != nil {
		log.WithError(err).Warn("Redis unavailable, contact cache and PIN counters run in-process")
	} else {
		redisCache = rc
		defer rc.Close()
	}

	clock := services.NewRealClock()
	bus := events.NewBus()

	store := services.NewIncidentStore(clock)
	timeline := services.NewTimelineRecorder(clock, log)
	pool := services.NewResponderPool(log)
	audio := services.NewAudioSessionManager(clock, buildRecordingStore(ctx, cfg, log), log)
	directory := services.NewDirectoryService(contactRepo, profileRepo, redisCache, log)

	notifier := services.NewNotificationService(
		clock,
		buildNotifyProvider(cfg, log),
		buildPushProvider(cfg, log),
		buildGeocoder(cfg, log),
		directory,
		pool,
		timeline,
		cfg.App.BaseURL,
		log,
	)

	sosService := services.NewSOSService(services.SOSServiceDeps{
		Clock:             clock,
		CheckpointOffsets: cfg.Escalation.CheckpointOffsets,
		Store:             store,
		Timeline:          timeline,
		Pool:              pool,
		Audio:             audio,
		Notifier:          notifier,
		Directory:         directory,
		Bus:               bus,
		Logger:            log,
	})

	loadRoster(ctx, agentRepo, pool, log)

	wsHandler := ws.NewHandler()
	bridgeEventsToWebSocket(bus, wsHandler)

	sosHandler := handlers.NewSOSHandler(sosService)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))

	v1 := router.Group("/api/v1")
	{
		routes.SetupSOSRoutes(v1, sosHandler, wsHandler, cfg.Security.JWTSecret)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": utils.AppVersion,
		})
	})

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	log.WithField("addr", addr).Info("Starting SOS engine")
	if err := http.ListenAndServe(addr, router); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}

func buildRepositories(ctx context.Context, cfg *config.Config, log *logger.Logger) (interfaces.EmergencyContactRepository, interfaces.SafetyAgentRepository, interfaces.UserProfileRepository) {
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		log.WithError(err).Warn("MongoDB unavailable, using in-memory repositories")
		return memory.NewEmergencyContactRepository(), memory.NewSafetyAgentRepository(), memory.NewUserProfileRepository()
	}

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.EnsureIndexes(indexCtx); err != nil {
		log.WithError(err).Warn("Failed to ensure indexes")
	}

	return mongodb.NewEmergencyContactRepository(db.Database),
		mongodb.NewSafetyAgentRepository(db.Database),
		mongodb.NewUserProfileRepository(db.Database)
}

func buildRecordingStore(ctx context.Context, cfg *config.Config, log *logger.Logger) storage.RecordingStore {
	switch cfg.Storage.Provider {
	case "s3":
		store, err := storage.NewAWSS3Storage(cfg.Storage.AWS.Region, cfg.Storage.AWS.Bucket, cfg.Storage.AWS.CDNDomain)
		if err != nil {
			log.WithError(err).Warn("S3 storage unavailable, recordings are not persisted")
			return nil
		}
		return store
	case "gcs":
		store, err := storage.NewGCPStorage(ctx, cfg.Storage.GCP.Bucket, cfg.Storage.GCP.CredentialsFile)
		if err != nil {
			log.WithError(err).Warn("GCS storage unavailable, recordings are not persisted")
			return nil
		}
		return store
	default:
		store, err := storage.NewLocalStorage(cfg.Storage.Local.BasePath, cfg.Storage.Local.BaseURL)
		if err != nil {
			log.WithError(err).Warn("Local storage unavailable, recordings are not persisted")
			return nil
		}
		return store
	}
}

func buildNotifyProvider(cfg *config.Config, log *logger.Logger) notify.Provider {
	if cfg.SMS.Provider == "sns" {
		provider, err := notify.NewAWSSNSProvider(cfg.SMS.AWS.Region)
		if err == nil {
			log.Info("Using SNS for outbound notifications (SMS only)")
			return provider
		}
		log.WithError(err).Warn("SNS unavailable, falling back to Twilio")
	}

	return notify.NewTwilioProvider(
		cfg.SMS.Twilio.AccountSID,
		cfg.SMS.Twilio.AuthToken,
		cfg.SMS.Twilio.FromNumber,
		cfg.SMS.Twilio.WhatsAppFrom,
	)
}

func buildPushProvider(cfg *config.Config, log *logger.Logger) push.Provider {
	switch cfg.Push.Provider {
	case "apns":
		provider, err := push.NewAPNSProvider(
			cfg.Push.APNS.KeyFile,
			cfg.Push.APNS.KeyID,
			cfg.Push.APNS.TeamID,
			cfg.Push.APNS.BundleID,
			cfg.Push.APNS.Production,
		)
		if err != nil {
			log.WithError(err).Warn("APNS unavailable, agent push alerts disabled")
			return nil
		}
		return provider
	case "fcm":
		provider, err := push.NewFCMProvider(cfg.Push.FCM.Credentials)
		if err != nil {
			log.WithError(err).Warn("FCM unavailable, agent push alerts disabled")
			return nil
		}
		return provider
	default:
		return nil
	}
}

func buildGeocoder(cfg *config.Config, log *logger.Logger) geocode.Geocoder {
	if !cfg.Maps.Enabled {
		return nil
	}
	geocoder, err := geocode.NewGoogleGeocoder(cfg.Maps.GoogleMaps.APIKey)
	if err != nil {
		log.WithError(err).Warn("Geocoder unavailable, alerts carry raw coordinates")
		return nil
	}
	return geocoder
}

func loadRoster(ctx context.Context, agentRepo interfaces.SafetyAgentRepository, pool services.ResponderPool, log *logger.Logger) {
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	agents, err := agentRepo.List(loadCtx)
	if err != nil {
		log.WithError(err).Warn("Failed to load agent roster, pool starts empty")
		return
	}
	pool.LoadRoster(agents)
}

// bridgeEventsToWebSocket feeds engine events into the live ops feed.
func bridgeEventsToWebSocket(bus *events.Bus, wsHandler *ws.Handler) {
	bus.OnIncidentTriggered(func(e events.IncidentTriggered) {
		wsHandler.BroadcastOpsEvent(e.Incident.ID, "sos_triggered", map[string]interface{}{
			"incident": e.Incident,
		})
	})

	bus.OnIncidentEscalated(func(e events.IncidentEscalated) {
		wsHandler.BroadcastOpsEvent(e.Incident.ID, "sos_escalated", map[string]interface{}{
			"incident":   e.Incident,
			"from_level": e.FromLevel.String(),
			"to_level":   e.ToLevel.String(),
			"source":     e.Source,
		})
	})

	bus.OnAgentResponded(func(e events.AgentResponded) {
		wsHandler.BroadcastOpsEvent(e.Incident.ID, "agent_responded", map[string]interface{}{
			"incident": e.Incident,
			"action":   string(e.Action),
		})
	})

	bus.OnIncidentClosed(func(e events.IncidentClosed) {
		wsHandler.BroadcastOpsEvent(e.Incident.ID, "sos_closed", map[string]interface{}{
			"incident":   e.Incident,
			"resolution": string(e.Resolution),
		})
		wsHandler.SendUserNotification(e.Incident.UserID, "sos_closed", map[string]interface{}{
			"incident_id": e.Incident.ID.Hex(),
			"resolution":  string(e.Resolution),
		})
	})
}
