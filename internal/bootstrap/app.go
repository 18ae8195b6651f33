package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"buscador-gpt/internal/ai"
	appsvc "buscador-gpt/internal/app"
	"buscador-gpt/internal/cache"
	"buscador-gpt/internal/config"
	"buscador-gpt/internal/events"
	"buscador-gpt/internal/jobs"
	"buscador-gpt/internal/platform/logger"
	mysqlClient "buscador-gpt/internal/platform/mysql"
	rabbitmqClient "buscador-gpt/internal/platform/rabbitmq"
	redisClient "buscador-gpt/internal/platform/redis"
	sqliteClient "buscador-gpt/internal/platform/sqlite"
	"buscador-gpt/internal/repository"
	"buscador-gpt/internal/upload"
	"buscador-gpt/internal/worker"
)

// App owns the process-wide resources. Redis and RabbitMQ are optional:
// an empty address or URL disables them.
type App struct {
	Config *config.Config
	Log    *logger.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	ActivityWorker *worker.ActivityPersistWorker
	Scheduler      *jobs.Scheduler
	Bus            *events.Bus

	Chat          ai.Sender
	ChatProbe     ai.Prober
	Uploads       *upload.Service
	Conversations appsvc.ConversationStore
	Activity      *appsvc.ActivityService
	// ActivitySink is the RabbitMQ publisher, or Activity itself without a broker.
	ActivitySink appsvc.ActivityPublisher

	StartedAt time.Time

	gcs *upload.GCSPresigner
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log, Bus: events.NewBus(16), StartedAt: time.Now()}

	if err := a.openDatabase(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.openRedis(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.openRabbitMQ(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.buildChat(); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.buildUploads(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.startJobs(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openDatabase(ctx context.Context) error {
	var (
		db  *gorm.DB
		err error
	)
	switch a.Config.Database.Driver {
	case config.DriverSQLite:
		db, err = sqliteClient.New(a.Config.Database.SQLitePath)
	default:
		db, err = mysqlClient.New(ctx, a.Config.MySQLDSN(), mysqlClient.DefaultPool)
	}
	if err != nil {
		return err
	}
	a.DB = db
	if err := repository.AutoMigrate(db); err != nil {
		return err
	}
	a.Activity = appsvc.NewActivityService(repository.NewActivityRepository(db), time.Local)
	a.ActivitySink = a.Activity
	return nil
}

func (a *App) openRedis(ctx context.Context) error {
	convRepo := repository.NewConversationRepository(a.DB)
	if strings.TrimSpace(a.Config.Redis.Addr) == "" {
		a.Log.Info("redis disabled, conversations read from the database")
		a.Conversations = appsvc.NewCachedConversationStore(convRepo, nil, a.Log)
		return nil
	}
	cli, err := redisClient.New(ctx, a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB)
	if err != nil {
		return err
	}
	a.Redis = cli
	convCache := cache.NewConversationCache(cli,
		time.Duration(a.Config.Redis.ConversationTTLSeconds)*time.Second,
		time.Duration(a.Config.Redis.DirtyTTLSeconds)*time.Second,
	)
	a.Conversations = appsvc.NewCachedConversationStore(convRepo, convCache, a.Log)
	return nil
}

func (a *App) openRabbitMQ(ctx context.Context) error {
	if strings.TrimSpace(a.Config.RabbitMQ.URL) == "" {
		a.Log.Info("rabbitmq disabled, search activity is written directly")
		return nil
	}
	conn, err := rabbitmqClient.New(ctx, a.Config.RabbitMQ.URL)
	if err != nil {
		return err
	}
	a.MQConn = conn

	w := worker.NewActivityPersistWorker(conn, repository.NewActivityRepository(a.DB), a.Config.RabbitMQ.ActivityQueue, a.Log)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start activity worker failed: %w", err)
	}
	a.ActivityWorker = w
	a.ActivitySink = rabbitmqClient.NewActivityPublisher(conn, a.Config.RabbitMQ.ActivityQueue)
	return nil
}

func (a *App) buildChat() error {
	chat := a.Config.Chat
	if strings.TrimSpace(chat.Endpoint) == "" && a.Config.IsMock() {
		a.Log.Warn("chat endpoint not configured, using demo responder")
		a.Chat = ai.MockResponder{}
		a.ChatProbe = ai.MockResponder{}
		return nil
	}
	retry := ai.DefaultRetryPolicy()
	retry.MaxRetries = chat.MaxRetries
	if chat.BackoffMS > 0 {
		retry.Backoff = ai.LinearBackoff(time.Duration(chat.BackoffMS) * time.Millisecond)
	}
	d, err := ai.NewDispatcher(ai.DispatcherConfig{
		Endpoint:    chat.Endpoint,
		Model:       chat.Model,
		Temperature: chat.Temperature,
		Timeout:     time.Duration(chat.TimeoutMS) * time.Millisecond,
		Retry:       retry,
	}, nil, a.Log)
	if err != nil {
		return fmt.Errorf("build chat dispatcher failed: %w", err)
	}
	a.Chat = d
	a.ChatProbe = d
	return nil
}

func (a *App) buildUploads(ctx context.Context) error {
	cfg := a.Config.Upload
	var presigner upload.Presigner
	switch {
	case strings.TrimSpace(cfg.PresignEndpoint) != "":
		presigner = upload.NewClient(cfg.PresignEndpoint, nil)
	case strings.TrimSpace(cfg.GCSBucket) != "":
		gcs, err := upload.NewGCSPresigner(ctx, upload.GCSConfig{
			Bucket:          cfg.GCSBucket,
			CredentialsFile: cfg.GCSCredentialsFile,
			UploadExpiry:    time.Duration(cfg.UploadExpirySeconds) * time.Second,
			AccessExpiry:    time.Duration(cfg.AccessExpirySeconds) * time.Second,
		})
		if err != nil {
			return err
		}
		a.gcs = gcs
		presigner = gcs
	case a.Config.IsMock():
		presigner = upload.NewMockPresigner()
	default:
		return fmt.Errorf("upload presigner is not configured")
	}
	a.Uploads = upload.NewService(upload.NewPolicy(cfg.AllowedTypes, cfg.MaxFileSize), presigner, nil)
	return nil
}

func (a *App) startJobs() error {
	a.Scheduler = jobs.NewScheduler(a.Log)
	if a.Config.Jobs.ActivityRetentionDays <= 0 {
		a.Log.Info("activity retention disabled")
		return nil
	}
	if err := a.Scheduler.AddActivityPurge(a.Config.Jobs.ActivityPurgeCron, a.Config.Jobs.ActivityRetentionDays, a.Activity); err != nil {
		return err
	}
	a.Scheduler.Start()
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Bus != nil {
		a.Bus.Close()
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.ActivityWorker != nil {
		a.ActivityWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
	return closeErr
}
