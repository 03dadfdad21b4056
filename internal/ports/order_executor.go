package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// OrderExecutor submits real buy/sell orders to the Polymarket CLOB.
// Only used in live mode; paper mode never touches it.
type OrderExecutor interface {
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error)
}
