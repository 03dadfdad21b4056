package polymarket

// clob.go — Live order submission to the Polymarket CLOB.
//
// Implements ports.OrderExecutor. Orders are submitted as fill-or-kill market
// orders with a local client order ID for idempotent retries on the venue
// side. The executor owns price clamping; this adapter only ships what it is
// given.

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

const clobOrderPath = "/order"

// PlaceOrder submits a buy/sell order and returns the venue acknowledgement.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error) {
	body := clobOrderRequest{
		TokenID:       req.TokenID,
		Side:          string(req.Side),
		Price:         req.Price,
		Size:          req.SizeUSD,
		ClientOrderID: uuid.NewString(),
		OrderType:     "FOK",
	}

	var resp clobOrderResponse
	if err := c.post(ctx, c.clobLimiter, c.clobBase+clobOrderPath, nil, body, &resp); err != nil {
		return domain.OrderAck{}, fmt.Errorf("polymarket.PlaceOrder: %w", err)
	}

	if !resp.Success || resp.ErrorMsg != "" {
		return domain.OrderAck{}, fmt.Errorf("polymarket.PlaceOrder: clob error: %s", resp.ErrorMsg)
	}

	return domain.OrderAck{
		OrderID: resp.OrderID,
		Status:  resp.Status,
		Success: resp.Success,
	}, nil
}
