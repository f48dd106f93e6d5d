package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"squadhub/internal/domain"
	"squadhub/pkg/redis"
)

// CacheService provides cache-aside reads and idempotency claims on Redis.
// A nil client disables caching: reads go straight to the fallback and every
// claim succeeds.
type CacheService struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *redis.Client, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		redis:  redisClient,
		logger: logger,
	}
}

// GetTournamentWithCache retrieves a tournament with the cache-aside pattern
func (c *CacheService) GetTournamentWithCache(ctx context.Context, tournamentID string, dbFallback func(ctx context.Context, id string) (*domain.Tournament, error)) (*domain.Tournament, error) {
	if c.redis == nil {
		return dbFallback(ctx, tournamentID)
	}
	cacheKey := c.redis.KeyBuilder.KeyTournament(tournamentID)

	cachedData, err := c.redis.Get(ctx, cacheKey)
	if err == nil && cachedData != "" {
		var t domain.Tournament
		if marshalErr := json.Unmarshal([]byte(cachedData), &t); marshalErr == nil {
			c.logger.Debug("Tournament cache hit", zap.String("tournament_id", tournamentID))
			return &t, nil
		} else {
			c.logger.Warn("Tournament cache corrupted, falling back to database",
				zap.String("tournament_id", tournamentID),
				zap.Error(marshalErr))
		}
	} else if err != nil && err != redis.Nil {
		c.logger.Warn("Tournament cache error, falling back to database",
			zap.String("tournament_id", tournamentID),
			zap.Error(err))
	}

	c.logger.Debug("Tournament cache miss", zap.String("tournament_id", tournamentID))
	t, err := dbFallback(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("database fallback failed: %w", err)
	}

	c.cacheTournament(ctx, t)
	return t, nil
}

// InvalidateTournament drops the cached document after a write
func (c *CacheService) InvalidateTournament(ctx context.Context, tournamentID string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Delete(ctx, c.redis.KeyBuilder.KeyTournament(tournamentID)); err != nil {
		c.logger.Error("Failed to invalidate tournament cache",
			zap.String("tournament_id", tournamentID),
			zap.Error(err))
	}
}

// ClaimMessageID reports whether this is the first time the client message
// id is seen for the sender in the channel. Redis failures fail open.
func (c *CacheService) ClaimMessageID(ctx context.Context, channel domain.ChannelID, senderID, clientMessageID string) bool {
	if c.redis == nil || clientMessageID == "" {
		return true
	}
	key := c.redis.KeyBuilder.KeyChatIdempotency(string(channel), senderID, clientMessageID)
	fresh, err := c.redis.SetNX(ctx, key, "1", redis.TTLChatIdempotency)
	if err != nil {
		c.logger.Warn("Chat idempotency check failed, accepting message",
			zap.String("channel_id", string(channel)),
			zap.Error(err))
		return true
	}
	return fresh
}

// ReleaseMessageID gives back a claim whose message was never stored, so
// the client can retry with the same id
func (c *CacheService) ReleaseMessageID(ctx context.Context, channel domain.ChannelID, senderID, clientMessageID string) {
	if c.redis == nil || clientMessageID == "" {
		return
	}
	key := c.redis.KeyBuilder.KeyChatIdempotency(string(channel), senderID, clientMessageID)
	if err := c.redis.Delete(ctx, key); err != nil {
		c.logger.Warn("Failed to release chat message id",
			zap.String("channel_id", string(channel)),
			zap.Error(err))
	}
}

// HealthCheck performs a health check on the cache system
func (c *CacheService) HealthCheck(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	start := time.Now()
	err := c.redis.Health(ctx)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("Cache health check failed",
			zap.Duration("duration", duration),
			zap.Error(err))
		return err
	}

	c.logger.Debug("Cache health check passed", zap.Duration("duration", duration))
	return nil
}

func (c *CacheService) cacheTournament(ctx context.Context, t *domain.Tournament) {
	data, err := json.Marshal(t)
	if err != nil {
		c.logger.Error("Failed to marshal tournament for caching",
			zap.String("tournament_id", t.ID),
			zap.Error(err))
		return
	}

	if err := c.redis.Set(ctx, c.redis.KeyBuilder.KeyTournament(t.ID), string(data), redis.TTLTournament); err != nil {
		c.logger.Error("Failed to cache tournament",
			zap.String("tournament_id", t.ID),
			zap.Error(err))
	} else {
		c.logger.Debug("Tournament cached successfully", zap.String("tournament_id", t.ID))
	}
}
