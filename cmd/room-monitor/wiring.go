package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/room-usage-monitor/api/swagger"
	"github.com/noah-isme/room-usage-monitor/internal/handler"
	"github.com/noah-isme/room-usage-monitor/internal/middleware"
	"github.com/noah-isme/room-usage-monitor/internal/repository"
	"github.com/noah-isme/room-usage-monitor/internal/service"
	"github.com/noah-isme/room-usage-monitor/pkg/cache"
	"github.com/noah-isme/room-usage-monitor/pkg/config"
	"github.com/noah-isme/room-usage-monitor/pkg/gsheets"
	"github.com/noah-isme/room-usage-monitor/pkg/logger"
	corsmiddleware "github.com/noah-isme/room-usage-monitor/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/room-usage-monitor/pkg/middleware/requestid"
	"github.com/noah-isme/room-usage-monitor/pkg/storage"
)

const githubTimeout = 30 * time.Second

// application holds the wired services for one process.
type application struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *service.MetricsService
	monitor *service.MonitorService
	closers []func() error
}

func buildApplication(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*application, error) {
	loc, err := cfg.Monitor.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	app := &application{cfg: cfg, logger: logr, metrics: service.NewMetricsService()}

	cacheRepo, err := app.cacheRepository(ctx)
	if err != nil {
		app.close()
		return nil, err
	}
	cacheSvc := service.NewCacheService(cacheRepo, app.metrics, cfg.Schedule.SnapshotTTL, logr)

	source, err := buildGridSource(ctx, cfg, logr)
	if err != nil {
		app.close()
		return nil, err
	}

	publishers, err := app.publishers()
	if err != nil {
		app.close()
		return nil, err
	}

	app.monitor = service.NewMonitorService(service.MonitorServiceParams{
		Source: source,
		Parser: service.NewGridParser(service.GridParserConfig{
			RoomID:    cfg.Room.SheetID,
			Year:      cfg.Schedule.Year,
			BlockRows: cfg.Schedule.BlockRows,
		}, logr),
		Sensor: service.NewSensorService(service.SensorServiceConfig{
			BaseURL:         cfg.Sensor.BaseURL,
			FeedID:          cfg.Sensor.FeedID,
			SubscriptionKey: cfg.Sensor.SubscriptionKey,
			RoomName:        cfg.Room.SensorName,
			Window:          cfg.Sensor.Window,
			Timeout:         cfg.Sensor.Timeout,
		}, nil, app.metrics, logr),
		Classifier: service.NewUsageClassifier(service.UsageClassifierConfig{
			HighPPM:          cfg.Classifier.HighPPM,
			LowPPM:           cfg.Classifier.LowPPM,
			FlagUnauthorized: cfg.Classifier.FlagUnauthorized,
		}),
		Publisher: service.NewPublishService(publishers, app.metrics, logr),
		Cache:     cacheSvc,
		Metrics:   app.metrics,
		Logger:    logr,
		Config: service.MonitorServiceConfig{
			RoomID:      cfg.Room.SheetID,
			Location:    loc,
			ScheduleTTL: cfg.Schedule.CacheTTL,
			SnapshotTTL: cfg.Schedule.SnapshotTTL,
		},
	})
	return app, nil
}

func (a *application) cacheRepository(ctx context.Context) (service.CacheRepository, error) {
	if !a.cfg.Cache.Enabled {
		return repository.NewMemoryCacheRepository(), nil
	}
	client, err := cache.NewRedis(ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	repo := repository.NewRedisCacheRepository(client, a.logger)
	a.closers = append(a.closers, repo.Close)
	a.logger.Info("redis cache enabled", zap.String("addr", cache.Addr(a.cfg.Redis)))
	return repo, nil
}

func buildGridSource(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.GridSource, error) {
	switch cfg.Sheets.Source {
	case config.SheetSourceXLSX:
		return repository.NewXLSXGridRepository(cfg.Sheets.XLSXPath, ""), nil
	default:
		client, err := gsheets.Acquire(ctx, gsheets.Config{
			CredentialsFile: cfg.Sheets.CredentialsFile,
			TokenFile:       cfg.Sheets.TokenFile,
			Logger:          logr,
		})
		if err != nil {
			return nil, fmt.Errorf("acquire google client: %w", err)
		}
		return repository.NewSheetsGridRepository(client.Sheets, client, cfg.Sheets.SpreadsheetID, cfg.Sheets.Title, logr), nil
	}
}

func (a *application) publishers() ([]service.StatusPublisher, error) {
	cfg := a.cfg
	var out []service.StatusPublisher

	if cfg.Publish.Enabled(config.PublisherFile) {
		store, err := storage.NewLocalStorage(cfg.Publish.Dir)
		if err != nil {
			return nil, err
		}
		out = append(out, repository.NewFileStatusRepository(store, cfg.Publish.FileName))
	}
	if cfg.Publish.Enabled(config.PublisherGitHub) {
		gh, err := repository.NewGitHubStatusRepository(repository.GitHubStatusConfig{
			Token:         cfg.GitHub.Token,
			Owner:         cfg.GitHub.Owner,
			Repo:          cfg.GitHub.Repo,
			Branch:        cfg.GitHub.Branch,
			FilePath:      cfg.GitHub.FilePath,
			CommitMessage: cfg.GitHub.CommitMessage,
			BaseURL:       cfg.GitHub.BaseURL,
		}, &http.Client{Timeout: githubTimeout}, a.logger)
		if err != nil {
			return nil, err
		}
		out = append(out, gh)
	}
	if cfg.Publish.Enabled(config.PublisherKafka) {
		k := repository.NewKafkaStatusRepository(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Room.SheetID)
		a.closers = append(a.closers, k.Close)
		out = append(out, k)
	}
	if cfg.Publish.Enabled(config.PublisherMQTT) {
		m, err := repository.NewMQTTStatusRepository(repository.MQTTStatusConfig{
			BrokerURL: cfg.MQTT.BrokerURL,
			ClientID:  cfg.MQTT.ClientID,
			Topic:     cfg.MQTT.Topic,
			Username:  cfg.MQTT.Username,
			Password:  cfg.MQTT.Password,
			QoS:       byte(cfg.MQTT.QoS),
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, m.Close)
		out = append(out, m)
	}

	names := make([]string, 0, len(out))
	for _, p := range out {
		names = append(names, p.Name())
	}
	a.logger.Info("publishers configured", zap.Strings("publishers", names))
	return out, nil
}

func (a *application) router() *gin.Engine {
	cfg := a.cfg
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))

	metricsHandler := handler.NewMetricsHandler(a.metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	statusHandler := handler.NewStatusHandler(a.monitor, cfg.Room.SheetID)
	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.GET("/status", statusHandler.Status)
	api.GET("/schedule", statusHandler.Schedule)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	return r
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("shutdown step failed", zap.Error(err))
		}
	}
	a.closers = nil
}
