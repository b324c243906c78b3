package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/baljotchohan/Trade-Track-App/internal/models"
	"github.com/baljotchohan/Trade-Track-App/internal/trace"
	"github.com/shopspring/decimal"
)

// TradingStats is the summary returned by GetTradingStats.
type TradingStats struct {
	TodayTrades     int64   `json:"today_trades"`
	YesterdayTrades int64   `json:"yesterday_trades"`
	TotalTrades     int64   `json:"total_trades"`
	WinRate         float64 `json:"win_rate"`  // % of closed trades with positive PnL, 2 dp
	TotalPnL        float64 `json:"total_pnl"` // sum over closed trades, 2 dp
}

// GetTradingStats derives the user's summary counts and PnL rollup: trade
// counts for today, yesterday and all time, plus win rate and total PnL
// over closed trades.
//
// Both day windows are inclusive on both ends, so a trade created exactly
// at midnight is counted in yesterday's window and today's. That boundary
// overlap is long-standing behavior this layer reproduces deliberately.
func (r *Repository) GetTradingStats(ctx context.Context, userID string) (*TradingStats, error) {
	ctx, span := trace.StartSpan(ctx, "storage.GetTradingStats")
	defer span.End()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)
	yesterday := today.AddDate(0, 0, -1)

	stats := &TradingStats{}

	todayCount, err := r.countTradesInRange(ctx, userID, today, tomorrow)
	if err != nil {
		return nil, err
	}
	stats.TodayTrades = todayCount

	yesterdayCount, err := r.countTradesInRange(ctx, userID, yesterday, today)
	if err != nil {
		return nil, err
	}
	stats.YesterdayTrades = yesterdayCount

	err = r.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalTrades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count trades: %w", err)
	}

	var closed []models.Trade
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.StatusClosed).
		Find(&closed).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch closed trades: %w", err)
	}

	var wins int
	totalPnL := decimal.Zero
	for _, trade := range closed {
		// A nil PnL on a closed trade violates the closure invariant;
		// treat it as zero rather than failing the whole rollup.
		if trade.ProfitLoss == nil {
			continue
		}
		if trade.ProfitLoss.IsPositive() {
			wins++
		}
		totalPnL = totalPnL.Add(*trade.ProfitLoss)
	}

	if len(closed) > 0 {
		winRate := decimal.NewFromInt(int64(wins)).
			Div(decimal.NewFromInt(int64(len(closed)))).
			Mul(decimal.NewFromInt(100)).
			Round(2)
		stats.WinRate = winRate.InexactFloat64()
	}
	stats.TotalPnL = totalPnL.Round(2).InexactFloat64()

	return stats, nil
}

func (r *Repository) countTradesInRange(ctx context.Context, userID string, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("user_id = ? AND created_at >= ? AND created_at <= ?", userID, start, end).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count trades in range: %w", err)
	}
	return count, nil
}
