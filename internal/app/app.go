// Package app wires the configured backends into the services both binaries
// run.
package app

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"presensi/internal/attendance"
	"presensi/internal/config"
	"presensi/internal/httpapi"
	"presensi/internal/queue"
	"presensi/internal/roster"
	"presensi/internal/store"
	"presensi/internal/worker"
)

// App holds the running services and the connections behind them.
type App struct {
	Roster   *roster.Service
	Store    attendance.Store
	Engine   *attendance.Engine
	Reporter *attendance.Reporter
	Queue    queue.Queue
	Health   map[string]httpapi.HealthCheck

	// LocalQueue is set when Queue lives in this process, so no other
	// process can consume it.
	LocalQueue bool

	closers []func(context.Context) error
	log     *zap.Logger
}

type rosterRepo interface {
	roster.StudentRepository
	roster.TeacherRepository
}

// Build connects the backends selected by cfg.
func Build(ctx context.Context, cfg config.App, log *zap.Logger) (*App, error) {
	a := &App{Health: map[string]httpapi.HealthCheck{}, log: log}
	var repo rosterRepo

	switch strings.ToLower(cfg.StoreBackend) {
	case "postgres":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		if cfg.AutoMigrate {
			if err := store.Migrate(ctx, db.Client); err != nil {
				a.Close(ctx)
				return nil, err
			}
		}
		repo = roster.NewPostgresRepository(db.Client)
		a.Store = attendance.NewPostgresStore(db.Client)
		a.Health["db"] = db.Healthy
	case "firestore":
		client, err := store.NewFirestore(ctx, cfg.FirestoreProject, cfg.FirestoreCredentials)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		repo = roster.NewFirestoreRepository(client)
		a.Store = attendance.NewFirestoreStore(client)
	case "mongo":
		m, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, m.Close)
		mr := roster.NewMongoRepository(m.DB)
		ms := attendance.NewMongoStore(m.DB)
		if err := mr.EnsureIndexes(ctx); err != nil {
			a.Close(ctx)
			return nil, err
		}
		if err := ms.EnsureIndexes(ctx); err != nil {
			a.Close(ctx)
			return nil, err
		}
		repo, a.Store = mr, ms
		a.Health["db"] = m.Healthy
	case "memory":
		repo = roster.NewMemoryRepository()
		a.Store = attendance.NewMemoryStore()
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	var redisClient *store.Redis
	if cfg.CacheBackend == "redis" || cfg.QueueBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		a.closers = append(a.closers, func(context.Context) error { return redisClient.Close() })
		a.Health["redis"] = redisClient.Healthy
	}

	var studentCache roster.Cache[roster.Student] = roster.NewMemoryCache[roster.Student]()
	var teacherCache roster.Cache[roster.Teacher] = roster.NewMemoryCache[roster.Teacher]()
	if cfg.CacheBackend == "redis" {
		studentCache = roster.NewRedisCache[roster.Student](redisClient.Client, "presensi:roster:students")
		teacherCache = roster.NewRedisCache[roster.Teacher](redisClient.Client, "presensi:roster:teachers")
	}

	if cfg.QueueBackend == "redis" {
		a.Queue = queue.NewRedisQueue(redisClient.Client, "presensi:scans")
	} else {
		a.Queue = queue.NewInMemory(256)
		a.LocalQueue = true
	}

	a.Roster = roster.NewService(repo, repo, studentCache, teacherCache, log.Named("roster"), roster.Options{
		StudentTTL: cfg.StudentCacheTTL,
		TeacherTTL: cfg.TeacherCacheTTL,
		ClassLimit: cfg.ClassQueryLimit,
	})
	a.Engine = attendance.NewEngine(attendance.NewIdentityResolver(a.Roster), a.Store, log.Named("attendance"), attendance.EngineOptions{
		Location:      cfg.Location(),
		LateThreshold: cfg.LateThreshold,
	})
	a.Reporter = attendance.NewReporter(a.Store, a.Roster)

	log.Info("backends ready",
		zap.String("store", cfg.StoreBackend),
		zap.String("cache", cfg.CacheBackend),
		zap.String("queue", cfg.QueueBackend))
	return a, nil
}

// StartLocalWorker drains an in-process queue in the background until ctx
// ends. It does nothing and returns false for a shared queue, which
// cmd/worker consumes.
func (a *App) StartLocalWorker(ctx context.Context) bool {
	if !a.LocalQueue {
		return false
	}
	w := worker.New(a.Queue, a.Engine, a.log.Named("worker"))
	go func() {
		if err := w.Run(ctx); err != nil {
			a.log.Error("local worker stopped", zap.Error(err))
		}
	}()
	a.log.Info("in-memory queue drained by an in-process worker")
	return true
}

// Close releases every connection, newest first.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
