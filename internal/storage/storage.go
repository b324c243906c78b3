package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baljotchohan/Trade-Track-App/internal/id"
	"github.com/baljotchohan/Trade-Track-App/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultListLimit is applied by callers that don't supply their own limit.
const DefaultListLimit = 10

// Repository owns persistence of users and trades. It is stateless: every
// operation takes the owning user's ID explicitly and folds it into the
// filter predicate, so no request-scoped state leaks into this layer and a
// trade can never be read or written across user boundaries.
type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// TradeInput is the payload for creating a trade. ExitPrice may be supplied
// at creation time, in which case the trade is created already closed.
type TradeInput struct {
	Symbol     string
	Direction  string
	Quantity   int
	EntryPrice decimal.Decimal
	ExitPrice  *decimal.Decimal
	Notes      *string
	EntryTime  time.Time // zero value means "now"
}

// TradePatch is a partial update; nil fields are left untouched.
type TradePatch struct {
	Symbol     *string
	Direction  *string
	Quantity   *int
	EntryPrice *decimal.Decimal
	ExitPrice  *decimal.Decimal
	Notes      *string
}

// GetUser fetches a user by ID. Returns (nil, nil) when no such user exists.
func (r *Repository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpsertUser inserts the user or, on ID conflict, overwrites all supplied
// fields and refreshes UpdatedAt. Called on every successful login, so it
// must be idempotent.
func (r *Repository) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return user, nil
}

// ListTrades returns the user's trades, newest first, truncated to limit.
func (r *Repository) ListTrades(ctx context.Context, userID string, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var trades []models.Trade
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// ListTradesInRange returns all of the user's trades with CreatedAt in
// [start, end], newest first. Both boundaries are inclusive.
func (r *Repository) ListTradesInRange(ctx context.Context, userID string, start, end time.Time) ([]models.Trade, error) {
	var trades []models.Trade
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at <= ?", userID, start, end).
		Order("created_at desc").
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trades in range: %w", err)
	}
	return trades, nil
}

// CreateTrade persists a new trade for the user. When the input carries an
// exit price the trade is created directly as closed, with PnL computed and
// ExitTime stamped; otherwise it starts open with PnL, ExitPrice and
// ExitTime all nil.
func (r *Repository) CreateTrade(ctx context.Context, userID string, input TradeInput) (*models.Trade, error) {
	entryTime := input.EntryTime
	if entryTime.IsZero() {
		entryTime = time.Now()
	}

	trade := models.Trade{
		ID:         id.New(),
		UserID:     userID,
		Symbol:     input.Symbol,
		Direction:  input.Direction,
		Quantity:   input.Quantity,
		EntryPrice: input.EntryPrice,
		Notes:      input.Notes,
		Status:     models.StatusOpen,
		EntryTime:  entryTime,
	}

	if input.ExitPrice != nil {
		closeTrade(&trade, *input.ExitPrice, time.Now())
	}

	if err := r.db.WithContext(ctx).Create(&trade).Error; err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}

	r.logger.Debug("Created trade",
		zap.String("trade_id", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.String("status", trade.Status),
	)
	return &trade, nil
}

// UpdateTrade applies a partial update to the (tradeID, userID) trade and
// returns the updated record. Returns (nil, nil) when no such trade exists
// for this user.
//
// Whenever both entry and exit price are known after the patch — whether
// the exit price was just supplied or was already present — PnL is
// recomputed, the status is forced to closed, and ExitTime is restamped.
// Re-closing a closed trade therefore recomputes PnL from the patched
// values rather than preserving the old figure.
func (r *Repository) UpdateTrade(ctx context.Context, tradeID, userID string, patch TradePatch) (*models.Trade, error) {
	var trade models.Trade
	err := r.db.WithContext(ctx).
		First(&trade, "id = ? AND user_id = ?", tradeID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trade for update: %w", err)
	}

	if patch.Symbol != nil {
		trade.Symbol = *patch.Symbol
	}
	if patch.Direction != nil {
		trade.Direction = *patch.Direction
	}
	if patch.Quantity != nil {
		trade.Quantity = *patch.Quantity
	}
	if patch.EntryPrice != nil {
		trade.EntryPrice = *patch.EntryPrice
	}
	if patch.ExitPrice != nil {
		trade.ExitPrice = patch.ExitPrice
	}
	if patch.Notes != nil {
		trade.Notes = patch.Notes
	}

	if trade.ExitPrice != nil {
		closeTrade(&trade, *trade.ExitPrice, time.Now())
	}

	if err := r.db.WithContext(ctx).Save(&trade).Error; err != nil {
		return nil, fmt.Errorf("failed to update trade: %w", err)
	}

	r.logger.Debug("Updated trade",
		zap.String("trade_id", trade.ID),
		zap.String("status", trade.Status),
	)
	return &trade, nil
}

// DeleteTrade removes the (tradeID, userID) trade. Deleting a trade that
// does not exist, or that belongs to another user, is a silent no-op.
func (r *Repository) DeleteTrade(ctx context.Context, tradeID, userID string) error {
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", tradeID, userID).
		Delete(&models.Trade{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	return nil
}

// closeTrade sets the four closure fields together: exit price, PnL,
// status and exit time.
func closeTrade(trade *models.Trade, exitPrice decimal.Decimal, exitTime time.Time) {
	pnl := computePnL(trade.Direction, trade.EntryPrice, exitPrice, trade.Quantity)
	trade.ExitPrice = &exitPrice
	trade.ProfitLoss = &pnl
	trade.Status = models.StatusClosed
	trade.ExitTime = &exitTime
}

// computePnL returns the signed profit on a closed position, rounded to
// 2 decimal places: (exit-entry)*qty for long, (entry-exit)*qty for short.
func computePnL(direction string, entry, exit decimal.Decimal, quantity int) decimal.Decimal {
	qty := decimal.NewFromInt(int64(quantity))
	if direction == models.DirectionShort {
		return entry.Sub(exit).Mul(qty).Round(2)
	}
	return exit.Sub(entry).Mul(qty).Round(2)
}
