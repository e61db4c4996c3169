package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/rundownapp/rundown/internal/config"
	"github.com/rundownapp/rundown/internal/db"
	"github.com/rundownapp/rundown/internal/message"
	"github.com/rundownapp/rundown/internal/model"
	"github.com/rundownapp/rundown/internal/repository"
	"github.com/rundownapp/rundown/internal/service"
	"github.com/rundownapp/rundown/internal/storage"
	"github.com/rundownapp/rundown/internal/strava"
)

type App struct {
	Cfg   *config.Config
	DB    *sqlx.DB
	Redis *redis.Client

	GoalService      *service.GoalService
	ProgressService  *service.ProgressService
	SchedulerService *service.SchedulerService
	DeliveryService  *service.DeliveryService
	ContactService   *service.ContactService
	SyncService      *service.ActivitySyncService
	ReportService    *service.ReportService
	EmailService     *service.EmailService
	Dedup            *message.Deduplicator
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := message.Validate(); err != nil {
		return nil, fmt.Errorf("message bank is incomplete: %w", err)
	}

	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.AutoMigrate {
		err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a := &App{Cfg: cfg, DB: database}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	goalRepository := repository.NewGoalRepository(database)
	activityRepository := repository.NewActivityRepository(database)
	contactRepository := repository.NewContactRepository(database)
	queueRepository := repository.NewQueueRepository(database)
	deliveryRepository := repository.NewDeliveryRepository(database)
	stravaRepository := repository.NewStravaRepository(database)
	eventRepository := repository.NewEventRepository(database)

	// Dedup store
	var store message.Store
	switch cfg.DedupBackend {
	case "redis":
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = message.NewRedisStore(a.Redis)
	default:
		store = message.NewMemoryStore()
	}
	a.Dedup = message.NewDeduplicator(store, cfg.DedupWindowDays)

	// Report archive
	archive, err := storage.New(ctx, storage.S3Config{
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Endpoint:  cfg.S3Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize report archive: %w", err)
	}

	// Transports
	a.EmailService = service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	pushService := service.NewPushService(cfg.ExpoPushURL)
	transports := service.Transports{
		model.ChannelEmail: a.EmailService,
		model.ChannelPush:  pushService,
	}
	switch {
	case cfg.SMSConfigured():
		transports[model.ChannelSMS] = service.NewSMSService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	case cfg.IsDevelopment():
		transports[model.ChannelSMS] = service.LogTransport{Channel: model.ChannelSMS}
	default:
		slog.Warn("twilio not configured, sms contacts will fail with not_configured")
	}

	// Services
	a.GoalService = service.NewGoalService(goalRepository, userRepository, eventRepository)
	a.ProgressService = service.NewProgressService(activityRepository)
	a.SchedulerService = service.NewSchedulerService(userRepository, queueRepository, cfg.Location(), cfg.QueueMaxAttempts)
	a.DeliveryService = service.NewDeliveryService(
		queueRepository,
		userRepository,
		contactRepository,
		deliveryRepository,
		eventRepository,
		a.GoalService,
		a.ProgressService,
		a.Dedup,
		transports,
		service.DeliveryConfig{
			BatchSize:      cfg.DeliveryBatchSize,
			MaxSendsPerRun: cfg.MaxSendsPerRun,
			PaceEvery:      cfg.SendPaceEvery,
			PaceDelay:      cfg.SendPaceDelay,
			Concurrency:    cfg.DeliveryConcurrency,
			RunTimeout:     cfg.RunTimeout,
			SendTimeout:    cfg.SendTimeout,
			StaleAfter:     cfg.StaleProcessingAfter,
		},
	)
	a.ContactService = service.NewContactService(
		contactRepository,
		userRepository,
		eventRepository,
		a.EmailService,
		pushService,
		cfg.AppURL,
	)
	stravaClient := strava.NewClient(strava.Config{
		ClientID:     cfg.StravaClientID,
		ClientSecret: cfg.StravaClientSecret,
		APIURL:       cfg.StravaAPIURL,
		TokenURL:     cfg.StravaTokenURL,
	}, stravaRepository)
	a.SyncService = service.NewActivitySyncService(stravaClient, stravaRepository, activityRepository)
	a.ReportService = service.NewReportService(archive)

	return a, nil
}

func (a *App) Close() error {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Error("failed to close redis", "error", err)
		}
	}
	if a.DB != nil {
		return db.Close(a.DB)
	}
	return nil
}
