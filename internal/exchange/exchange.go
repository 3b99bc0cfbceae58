package exchange

import (
	"context"
	"errors"

	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

// Order types accepted by PlaceOrder.
const (
	TypeLimit  = "LIMIT"
	TypeMarket = "MARKET"
)

// Submission failures that must never be retried. Everything else returned
// by an Exchange is treated as transient and goes through the engine's
// bounded retry/backoff policy.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidOrder        = errors.New("invalid order parameters")
	ErrOrderNotFound       = errors.New("order not found")
)

// IsPermanent reports whether an exchange error is a hard submission
// failure that retrying cannot fix.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidOrder) ||
		errors.Is(err, ErrOrderNotFound)
}

// Exchange is the minimal surface the engine needs from a trading venue.
// Implementations must be safe for concurrent use; every call honors the
// deadline on its context.
type Exchange interface {
	Name() string
	GetTicker(ctx context.Context, symbol string) (float64, error)
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
	PlaceOrder(ctx context.Context, symbol string, side models.OrderSide, orderType string, quantity, price float64) (string, error)
	CancelOrder(ctx context.Context, orderID, symbol string) error
	GetBalances(ctx context.Context) (map[string]models.Balance, error)
}
