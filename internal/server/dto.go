package server

import (
	"errors"
	"net/http"

	"github.com/baljotchohan/Trade-Track-App/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// createTradeRequest is the body for POST /api/trades.
type createTradeRequest struct {
	Symbol     string           `json:"symbol" validate:"required"`
	Direction  string           `json:"direction" validate:"required,oneof=long short"`
	Quantity   int              `json:"quantity" validate:"required,gt=0"`
	EntryPrice decimal.Decimal  `json:"entry_price" validate:"required"`
	ExitPrice  *decimal.Decimal `json:"exit_price"`
	Notes      *string          `json:"notes"`
}

func (req *createTradeRequest) toInput() storage.TradeInput {
	return storage.TradeInput{
		Symbol:     req.Symbol,
		Direction:  req.Direction,
		Quantity:   req.Quantity,
		EntryPrice: req.EntryPrice.Round(2),
		ExitPrice:  roundPtr(req.ExitPrice),
		Notes:      req.Notes,
	}
}

// updateTradeRequest is the body for PATCH /api/trades/{id}. All fields are
// optional; absent fields leave the trade untouched.
type updateTradeRequest struct {
	Symbol     *string          `json:"symbol" validate:"omitempty,min=1"`
	Direction  *string          `json:"direction" validate:"omitempty,oneof=long short"`
	Quantity   *int             `json:"quantity" validate:"omitempty,gt=0"`
	EntryPrice *decimal.Decimal `json:"entry_price"`
	ExitPrice  *decimal.Decimal `json:"exit_price"`
	Notes      *string          `json:"notes"`
}

func (req *updateTradeRequest) toPatch() storage.TradePatch {
	return storage.TradePatch{
		Symbol:     req.Symbol,
		Direction:  req.Direction,
		Quantity:   req.Quantity,
		EntryPrice: roundPtr(req.EntryPrice),
		ExitPrice:  roundPtr(req.ExitPrice),
		Notes:      req.Notes,
	}
}

func roundPtr(v *decimal.Decimal) *decimal.Decimal {
	if v == nil {
		return nil
	}
	rounded := v.Round(2)
	return &rounded
}

// fieldError is one entry in a validation failure response.
type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// writeValidationError renders a 400 with field-level detail.
func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fields := make([]fieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = fieldError{Field: fe.Field(), Rule: fe.Tag()}
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"message": "validation failed",
		"errors":  fields,
	})
}
