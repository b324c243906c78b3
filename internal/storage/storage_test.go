package storage

import (
	"context"
	"testing"
	"time"

	"github.com/baljotchohan/Trade-Track-App/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupRepo creates a repository over a fresh in-memory database.
// Each test gets its own non-shared database to ensure isolation.
func setupRepo(t *testing.T) *Repository {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Trade{}, &models.Session{})
	require.NoError(t, err)

	return NewRepository(db, zap.NewNop())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

// setCreatedAt backdates a trade; CreatedAt is otherwise stamped by gorm.
func setCreatedAt(t *testing.T, repo *Repository, tradeID string, at time.Time) {
	err := repo.db.Model(&models.Trade{}).
		Where("id = ?", tradeID).
		Update("created_at", at).Error
	require.NoError(t, err)
}

func TestCreateTrade_OpenPosition(t *testing.T) {
	repo := setupRepo(t)

	trade, err := repo.CreateTrade(context.Background(), "user-a", TradeInput{
		Symbol:     "AAPL",
		Direction:  models.DirectionLong,
		Quantity:   5,
		EntryPrice: dec("100.00"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, trade.ID)
	assert.Equal(t, models.StatusOpen, trade.Status)
	assert.Nil(t, trade.ExitPrice)
	assert.Nil(t, trade.ProfitLoss)
	assert.Nil(t, trade.ExitTime)
	assert.False(t, trade.EntryTime.IsZero())
}

func TestCreateTrade_ClosedLong_ComputesPnL(t *testing.T) {
	repo := setupRepo(t)

	trade, err := repo.CreateTrade(context.Background(), "user-a", TradeInput{
		Symbol:     "AAPL",
		Direction:  models.DirectionLong,
		Quantity:   5,
		EntryPrice: dec("100.00"),
		ExitPrice:  decPtr("110.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusClosed, trade.Status)
	require.NotNil(t, trade.ProfitLoss)
	assert.True(t, trade.ProfitLoss.Equal(dec("50.00")), "pnl = %s", trade.ProfitLoss)
	assert.NotNil(t, trade.ExitPrice)
	assert.NotNil(t, trade.ExitTime)
}

func TestCreateTrade_ClosedShort_ComputesPnL(t *testing.T) {
	repo := setupRepo(t)

	trade, err := repo.CreateTrade(context.Background(), "user-a", TradeInput{
		Symbol:     "AAPL",
		Direction:  models.DirectionShort,
		Quantity:   5,
		EntryPrice: dec("100.00"),
		ExitPrice:  decPtr("90.00"),
	})
	require.NoError(t, err)

	require.NotNil(t, trade.ProfitLoss)
	assert.True(t, trade.ProfitLoss.Equal(dec("50.00")), "pnl = %s", trade.ProfitLoss)
}

func TestUpdateTrade_ClosesOpenPosition(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTrade(ctx, "user-a", TradeInput{
		Symbol:     "TSLA",
		Direction:  models.DirectionLong,
		Quantity:   2,
		EntryPrice: dec("200.00"),
	})
	require.NoError(t, err)

	updated, err := repo.UpdateTrade(ctx, created.ID, "user-a", TradePatch{
		ExitPrice: decPtr("210.50"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, models.StatusClosed, updated.Status)
	require.NotNil(t, updated.ProfitLoss)
	assert.True(t, updated.ProfitLoss.Equal(dec("21.00")), "pnl = %s", updated.ProfitLoss)
	assert.NotNil(t, updated.ExitTime)
}

func TestUpdateTrade_RecloseRecomputesPnL(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTrade(ctx, "user-a", TradeInput{
		Symbol:     "TSLA",
		Direction:  models.DirectionLong,
		Quantity:   2,
		EntryPrice: dec("200.00"),
		ExitPrice:  decPtr("210.00"),
	})
	require.NoError(t, err)
	firstExitTime := *created.ExitTime

	// Patching only the quantity of an already-closed trade still recomputes
	// PnL from the patched values and restamps the exit time.
	time.Sleep(10 * time.Millisecond)
	updated, err := repo.UpdateTrade(ctx, created.ID, "user-a", TradePatch{
		Quantity: intPtr(3),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	require.NotNil(t, updated.ProfitLoss)
	assert.True(t, updated.ProfitLoss.Equal(dec("30.00")), "pnl = %s", updated.ProfitLoss)
	assert.True(t, updated.ExitTime.After(firstExitTime))
}

func TestUpdateTrade_NotFoundYieldsNil(t *testing.T) {
	repo := setupRepo(t)

	updated, err := repo.UpdateTrade(context.Background(), "no-such-trade", "user-a", TradePatch{
		Notes: strPtr("hello"),
	})
	assert.NoError(t, err)
	assert.Nil(t, updated)
}

func TestUpdateTrade_CannotTouchOtherUsersTrade(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTrade(ctx, "user-b", TradeInput{
		Symbol:     "NVDA",
		Direction:  models.DirectionLong,
		Quantity:   1,
		EntryPrice: dec("500.00"),
	})
	require.NoError(t, err)

	// A valid trade ID belonging to another user behaves as not-found.
	updated, err := repo.UpdateTrade(ctx, created.ID, "user-a", TradePatch{
		Notes: strPtr("mine now"),
	})
	assert.NoError(t, err)
	assert.Nil(t, updated)

	unchanged, err := repo.ListTrades(ctx, "user-b", 10)
	require.NoError(t, err)
	require.Len(t, unchanged, 1)
	assert.Nil(t, unchanged[0].Notes)
}

func TestDeleteTrade_MissingRowIsSilent(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTrade(ctx, "user-a", TradeInput{
		Symbol:     "AAPL",
		Direction:  models.DirectionLong,
		Quantity:   1,
		EntryPrice: dec("100.00"),
	})
	require.NoError(t, err)

	// Nonexistent ID: no error, store unchanged.
	err = repo.DeleteTrade(ctx, "no-such-trade", "user-a")
	assert.NoError(t, err)

	// Someone else's trade: also silent, also unchanged.
	err = repo.DeleteTrade(ctx, created.ID, "user-b")
	assert.NoError(t, err)

	trades, err := repo.ListTrades(ctx, "user-a", 10)
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	// The owner can delete it.
	err = repo.DeleteTrade(ctx, created.ID, "user-a")
	assert.NoError(t, err)

	trades, err = repo.ListTrades(ctx, "user-a", 10)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestListTrades_LimitAndOrdering(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 10, 12, 0, 0, 0, time.Local)
	var newest string
	for i := 0; i < 5; i++ {
		trade, err := repo.CreateTrade(ctx, "user-a", TradeInput{
			Symbol:     "AAPL",
			Direction:  models.DirectionLong,
			Quantity:   1,
			EntryPrice: dec("100.00"),
		})
		require.NoError(t, err)
		setCreatedAt(t, repo, trade.ID, base.Add(time.Duration(i)*time.Hour))
		newest = trade.ID
	}

	trades, err := repo.ListTrades(ctx, "user-a", 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, newest, trades[0].ID)
	assert.True(t, trades[0].CreatedAt.After(trades[1].CreatedAt))
}

func TestListTradesInRange_InclusiveBoundaries(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	start := time.Date(2026, 8, 10, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 0, 1)

	ids := make(map[string]time.Time)
	for _, at := range []time.Time{
		start.Add(-time.Second), // before the window
		start,                   // on the lower boundary
		start.Add(time.Hour),
		end,                   // on the upper boundary
		end.Add(time.Second),  // after the window
	} {
		trade, err := repo.CreateTrade(ctx, "user-a", TradeInput{
			Symbol:     "AAPL",
			Direction:  models.DirectionLong,
			Quantity:   1,
			EntryPrice: dec("100.00"),
		})
		require.NoError(t, err)
		setCreatedAt(t, repo, trade.ID, at)
		ids[trade.ID] = at
	}

	trades, err := repo.ListTradesInRange(ctx, "user-a", start, end)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	for _, trade := range trades {
		at := ids[trade.ID]
		assert.False(t, at.Before(start))
		assert.False(t, at.After(end))
	}
}

func TestListTrades_ScopedByUser(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.CreateTrade(ctx, "user-a", TradeInput{
		Symbol: "AAPL", Direction: models.DirectionLong, Quantity: 1, EntryPrice: dec("100.00"),
	})
	require.NoError(t, err)
	_, err = repo.CreateTrade(ctx, "user-b", TradeInput{
		Symbol: "MSFT", Direction: models.DirectionLong, Quantity: 1, EntryPrice: dec("300.00"),
	})
	require.NoError(t, err)

	trades, err := repo.ListTrades(ctx, "user-a", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "AAPL", trades[0].Symbol)
}

func TestUpsertUser_InsertThenRefresh(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.UpsertUser(ctx, &models.User{
		ID:        "user-a",
		Email:     strPtr("a@example.com"),
		FirstName: strPtr("Ada"),
	})
	require.NoError(t, err)

	// Same ID with new field values overwrites the row.
	_, err = repo.UpsertUser(ctx, &models.User{
		ID:        "user-a",
		Email:     strPtr("ada@example.com"),
		FirstName: strPtr("Ada"),
		LastName:  strPtr("Lovelace"),
	})
	require.NoError(t, err)

	user, err := repo.GetUser(ctx, "user-a")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "ada@example.com", *user.Email)
	assert.Equal(t, "Lovelace", *user.LastName)
}

func TestGetUser_MissingYieldsNil(t *testing.T) {
	repo := setupRepo(t)

	user, err := repo.GetUser(context.Background(), "nobody")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestClosureInvariant(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.CreateTrade(ctx, "user-a", TradeInput{
		Symbol: "AAPL", Direction: models.DirectionLong, Quantity: 1, EntryPrice: dec("100.00"),
	})
	require.NoError(t, err)
	_, err = repo.CreateTrade(ctx, "user-a", TradeInput{
		Symbol: "AAPL", Direction: models.DirectionShort, Quantity: 1,
		EntryPrice: dec("100.00"), ExitPrice: decPtr("95.00"),
	})
	require.NoError(t, err)

	trades, err := repo.ListTrades(ctx, "user-a", 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	for _, trade := range trades {
		isClosed := trade.Status == models.StatusClosed
		assert.Equal(t, isClosed, trade.ExitPrice != nil, "trade %s", trade.ID)
		assert.Equal(t, isClosed, trade.ProfitLoss != nil, "trade %s", trade.ID)
		assert.Equal(t, isClosed, trade.ExitTime != nil, "trade %s", trade.ID)
	}
}

func intPtr(v int) *int { return &v }
