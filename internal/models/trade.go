package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade direction values.
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Trade status values. A trade is closed exactly when an exit price has
// been recorded.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Trade is a single position in a user's trade journal.
//
// Closure invariant: Status == closed iff ExitPrice != nil iff
// ProfitLoss != nil iff ExitTime != nil. The four fields are always set
// together by the storage layer, never independently.
type Trade struct {
	ID        string `gorm:"primaryKey" json:"id"`
	UserID    string `gorm:"index;not null" json:"user_id"`
	Symbol    string `gorm:"not null" json:"symbol"`
	Direction string `gorm:"not null" json:"direction"` // "long" or "short"
	Quantity  int    `gorm:"not null" json:"quantity"`

	EntryPrice decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"entry_price"`
	ExitPrice  *decimal.Decimal `gorm:"type:decimal(18,2)" json:"exit_price"`
	// gorm would otherwise render "ProfitLoss" as profit_loss; the column is
	// named pnl to match the wire field.
	ProfitLoss *decimal.Decimal `gorm:"column:pnl;type:decimal(18,2)" json:"pnl"`

	Status string  `gorm:"not null;default:open" json:"status"`
	Notes  *string `json:"notes"`

	EntryTime time.Time  `json:"entry_time"`
	ExitTime  *time.Time `json:"exit_time"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
