package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/AnshRaj112/safeharbor-backend/internal/config"
	"github.com/AnshRaj112/safeharbor-backend/internal/database"
	"github.com/AnshRaj112/safeharbor-backend/internal/library"
	"github.com/AnshRaj112/safeharbor-backend/internal/logger"
	"github.com/AnshRaj112/safeharbor-backend/internal/services"
)

// app holds the open connections and the stores built on top of them.
type app struct {
	mongoClient *mongo.Client
	mongo       *mongo.Database
	postgres    *sql.DB
	redis       *redis.Client

	content  *library.Content
	chats    *services.MongoChatStore
	sessions *services.SessionService
	journals *services.JournalService
	goals    *services.GoalService
	checkIns *services.CheckInService
	users    *services.UserService
	safety   *services.PostgresSafetyLog
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func connect(cfg *config.Config) (*app, error) {
	a := &app{}

	zap.L().Info("Connecting to PostgreSQL...")
	pg, err := database.ConnectPostgres(cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.postgres = pg

	zap.L().Info("Connecting to Redis...")
	rdb, err := database.ConnectRedis(cfg.RedisURI)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redis = rdb

	zap.L().Info("Connecting to MongoDB...", zap.String("uri", logger.MaskURI(cfg.MongoURI)))
	client, db, err := database.ConnectMongo(cfg.MongoURI)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	a.mongoClient, a.mongo = client, db

	content, err := library.Load()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load content library: %w", err)
	}
	a.content = content

	a.safety = services.NewPostgresSafetyLog(pg)
	a.chats = services.NewMongoChatStore(db)
	a.sessions = services.NewSessionService(db)
	a.journals = services.NewJournalService(db)
	a.goals = services.NewGoalService(db)
	a.checkIns = services.NewCheckInService(db, content, a.safety)
	a.users = services.NewUserService(pg, services.NewCacheService(rdb))
	return a, nil
}

// migrate creates the Postgres tables and every MongoDB index.
func (a *app) migrate(ctx context.Context) error {
	if err := database.InitPostgresTables(ctx, a.postgres); err != nil {
		return fmt.Errorf("init postgres tables: %w", err)
	}
	for _, ix := range []indexer{a.chats, a.sessions, a.journals, a.goals, a.checkIns} {
		if err := ix.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
	}
	return nil
}

func (a *app) close() {
	var errs []error
	if a.mongoClient != nil {
		errs = append(errs, database.DisconnectMongo(a.mongoClient))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.postgres != nil {
		errs = append(errs, a.postgres.Close())
	}
	if err := errors.Join(errs...); err != nil {
		zap.L().Warn("closing connections", zap.Error(err))
	}
}
