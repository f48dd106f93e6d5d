package container

import (
	"context"
	"errors"
	"fmt"

	"squadhub/internal/config"
	"squadhub/internal/feed"
	"squadhub/internal/repository"
	"squadhub/internal/repository/memory"
	"squadhub/internal/service"
	"squadhub/pkg/database"
	"squadhub/pkg/logger"
	"squadhub/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.PostgresDB
	RedisClient  *redis.Client
	Broker       feed.Broker
	Cache        *service.CacheService
	Repositories repository.Repositories
	Services     *service.Services
}

// New creates a new dependency injection container. Postgres is used when
// DATABASE_URL is set and is required to be reachable; otherwise state lives
// in memory. Redis is optional: when it is missing or unreachable the feed
// stays in process and caching is disabled.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}

	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		c.DB = db
		c.Repositories = repository.NewPostgresRepositories(db)
		log.Info("Using Postgres store")
	} else {
		c.Repositories = memory.New().Repositories()
		log.Warn("DATABASE_URL not configured, using in-memory store")
	}

	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			c.RedisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without caching")
	}

	if c.RedisClient != nil {
		c.Broker = feed.NewRedisBroker(c.RedisClient, log.Logger)
	} else {
		c.Broker = feed.NewLocalBroker()
	}
	c.Cache = service.NewCacheService(c.RedisClient, log.Logger)

	repos := c.Repositories
	zl := log.Logger
	c.Services = &service.Services{
		Recruitment:  service.NewRecruitmentService(repos.Posts, c.Broker, zl, cfg.MaxTeamSize),
		Membership:   service.NewMembershipService(repos.Posts, c.Broker, zl),
		Applications: service.NewApplicationService(repos.Posts, repos.Applications, c.Broker, zl),
		Chat:         service.NewChatService(repos.Posts, repos.Messages, repos.Tournaments, c.Cache, c.Broker, zl),
		Activity:     service.NewActivityService(repos.Posts, repos.Applications, c.Broker, zl),
		Tournaments:  service.NewTournamentService(repos.Tournaments, repos.Messages, c.Cache, c.Broker, zl, cfg.AdminIDs),
	}

	return c, nil
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// HasDatabase returns true when state is kept in Postgres
func (c *Container) HasDatabase() bool {
	return c.DB != nil
}

// Health pings every configured backing service. Components that are not
// configured report "disabled".
func (c *Container) Health(ctx context.Context) map[string]string {
	status := map[string]string{"database": "disabled", "redis": "disabled"}
	if c.DB != nil {
		status["database"] = "healthy"
		if err := c.DB.Health(ctx); err != nil {
			status["database"] = "unhealthy"
		}
	}
	if c.RedisClient != nil {
		status["redis"] = "healthy"
		if err := c.Cache.HealthCheck(ctx); err != nil {
			status["redis"] = "unhealthy"
		}
	}
	return status
}

// Close releases the database pool and the Redis connection
func (c *Container) Close() error {
	var errs []error
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	return errors.Join(errs...)
}
