package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/config"
	"github.com/yoockh/mockinterview/internal/cache"
	"github.com/yoockh/mockinterview/internal/channel"
	"github.com/yoockh/mockinterview/internal/logger"
	mongorepo "github.com/yoockh/mockinterview/internal/repositories/mongo"
	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/telemetry"
)

const serviceName = "interview-client"

// app holds what every command needs: configuration, logging and the
// progress store, plus the optional report archive.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	progress services.ProgressService
	reports  services.ReportService // nil without MONGO_URI
	client   *channel.Client

	closers []func(context.Context) error
}

// newApp loads configuration and connects the backing stores. Interactive
// commands log as text to stderr so stdout stays the conversation.
func newApp(interactive bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	format := cfg.LogFormat
	var out io.Writer = os.Stdout
	if interactive {
		format, out = "text", os.Stderr
	}
	log := logger.New(level, format, out)

	a := &app{cfg: cfg, log: log}

	shutdown, err := telemetry.InitTracer(cfg.Tracing, serviceName, os.Stderr, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdown)

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	a.progress = services.NewProgressService(store, profile, cfg.SessionTTL, log)

	if cfg.MongoURI != "" {
		if err := config.InitMongo(cfg.MongoURI); err != nil {
			log.WithError(err).Warn("mongo unavailable; interview reports will not be archived")
		} else {
			if err := config.EnsureMongoIndexes(cfg.MongoDB); err != nil {
				log.WithError(err).Warn("could not ensure report indexes")
			}
			repo := mongorepo.NewReportRepo(config.MongoClient.Database(cfg.MongoDB))
			a.reports = services.NewReportService(repo, log)
			a.closers = append(a.closers, config.CloseMongo)
		}
	}

	a.client = channel.NewClient(cfg.APIBaseURL, cfg.WSBaseURL, cfg.RPCTimeout, channel.WithLogger(log))
	return a, nil
}

func (a *app) openStore() (cache.Cache, error) {
	if target := a.cfg.RedisTarget(); target != "" {
		if err := config.InitRedis(target); err != nil {
			a.log.WithError(err).Warn("redis unavailable; using the local progress file")
		} else {
			a.closers = append(a.closers, func(context.Context) error { return config.RedisClient.Close() })
			return cache.NewRedisCache(config.RedisClient), nil
		}
	}
	path := stateFile
	if path == "" {
		path = cache.DefaultFilePath()
	}
	return cache.NewFileCache(path)
}

func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.WithError(err).Debug("shutdown")
		}
	}
}
