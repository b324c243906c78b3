package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baljotchohan/Trade-Track-App/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionStore manages server-side login sessions. Session rows live in the
// same relational store as everything else but are owned entirely by this
// package; the trade repository never touches them.
type SessionStore struct {
	db     *gorm.DB
	logger *zap.Logger
	ttl    time.Duration
}

// NewSessionStore creates a session store with the given session lifetime.
func NewSessionStore(db *gorm.DB, logger *zap.Logger, ttl time.Duration) *SessionStore {
	return &SessionStore{db: db, logger: logger, ttl: ttl}
}

// Create starts a new session for the user.
func (s *SessionStore) Create(ctx context.Context, userID string) (*models.Session, error) {
	session := models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

// Get loads a live session by ID. Returns (nil, nil) when the session does
// not exist or has expired; expired rows are left for the purge loop.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, nil
	}
	return &session, nil
}

// Delete removes a session. Deleting a missing session is a no-op.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", sessionID).Error
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes all sessions past their expiry.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// PurgeLoop removes expired sessions on a ticker until the context is
// cancelled. Run it as a background goroutine next to the HTTP server.
func (s *SessionStore) PurgeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping session purge loop")
			return
		case <-ticker.C:
			purged, err := s.PurgeExpired(ctx)
			if err != nil {
				s.logger.Error("Session purge failed", zap.Error(err))
				continue
			}
			if purged > 0 {
				s.logger.Info("Purged expired sessions", zap.Int64("count", purged))
			}
		}
	}
}
