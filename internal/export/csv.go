package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/baljotchohan/Trade-Track-App/internal/models"
	"github.com/shopspring/decimal"
)

var csvHeader = []string{
	"trade_id", "symbol", "direction", "quantity",
	"entry_price", "exit_price", "pnl", "status",
	"entry_time", "exit_time", "notes",
}

// WriteTrades renders trades as CSV, one row per trade, with a header row.
// Open trades leave exit_price, pnl and exit_time blank.
func WriteTrades(w io.Writer, trades []models.Trade) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, t := range trades {
		notes := ""
		if t.Notes != nil {
			notes = *t.Notes
		}
		if err := cw.Write([]string{
			t.ID,
			t.Symbol,
			t.Direction,
			strconv.Itoa(t.Quantity),
			t.EntryPrice.StringFixed(2),
			d(t.ExitPrice),
			d(t.ProfitLoss),
			t.Status,
			t.EntryTime.Format(time.RFC3339),
			ts(t.ExitTime),
			notes,
		}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func d(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.StringFixed(2)
}

func ts(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format(time.RFC3339)
}
