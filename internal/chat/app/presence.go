package app

import (
	"context"
	"errors"
	"time"

	"tourism_chat_service/internal/chat/domain"
	"tourism_chat_service/internal/chat/repository"
	"tourism_chat_service/pkg/database"
	"tourism_chat_service/pkg/logger"

	"go.uber.org/zap"
)

const presenceKeyPrefix = "chat:presence:"

// PresenceTracker persists online state on the user record and mirrors it in
// redis for cheap reads. It is driven only by connect and disconnect.
type PresenceTracker struct {
	users repository.UserRepository
	cache database.RedisRepository[domain.Presence]
	ttl   time.Duration
}

// NewPresenceTracker cache may be nil
func NewPresenceTracker(users repository.UserRepository, cache database.RedisRepository[domain.Presence], ttl time.Duration) *PresenceTracker {
	return &PresenceTracker{users: users, cache: cache, ttl: ttl}
}

// SetOnline mark userID online at ts
func (p *PresenceTracker) SetOnline(ctx context.Context, userID string, ts time.Time) error {
	return p.set(ctx, domain.Presence{UserID: userID, IsOnline: true, LastSeen: ts})
}

// SetOffline mark userID offline at ts
func (p *PresenceTracker) SetOffline(ctx context.Context, userID string, ts time.Time) error {
	return p.set(ctx, domain.Presence{UserID: userID, IsOnline: false, LastSeen: ts})
}

func (p *PresenceTracker) set(ctx context.Context, presence domain.Presence) error {
	if err := p.users.UpdatePresence(ctx, presence.UserID, presence.IsOnline, presence.LastSeen); err != nil {
		return err
	}
	if p.cache != nil {
		if err := p.cache.Set(ctx, presenceKeyPrefix+presence.UserID, presence, p.ttl); err != nil {
			logger.Log.Warn("presence cache write failed", zap.String("userID", presence.UserID), zap.Error(err))
		}
	}
	return nil
}

// Presence cached state, falling back to the user record
func (p *PresenceTracker) Presence(ctx context.Context, userID string) (domain.Presence, error) {
	if p.cache != nil {
		presence, err := p.cache.Get(ctx, presenceKeyPrefix+userID)
		if err == nil {
			return presence, nil
		}
		if !errors.Is(err, database.ErrCacheMiss) {
			logger.Log.Warn("presence cache read failed", zap.String("userID", userID), zap.Error(err))
		}
	}

	u, err := p.users.FindUser(ctx, userID)
	if err != nil {
		return domain.Presence{}, err
	}
	return domain.Presence{UserID: u.ID, IsOnline: u.IsOnline, LastSeen: u.LastSeen}, nil
}

// IsOnline false on any lookup error
func (p *PresenceTracker) IsOnline(ctx context.Context, userID string) bool {
	presence, err := p.Presence(ctx, userID)
	return err == nil && presence.IsOnline
}
