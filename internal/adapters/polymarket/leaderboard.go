package polymarket

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// FetchTraders obtiene la lista rankeada de traders del API de discovery,
// truncada a maxTraders. Implementa ports.TraderProvider.
// Los retries/backoff en 429 y 5xx los maneja el client compartido.
func (c *Client) FetchTraders(ctx context.Context) ([]domain.TraderRecord, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("polymarket.FetchTraders: no API key configured")
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var raw []leaderboardTrader
	if err := c.get(ctx, c.dataLimiter, c.leaderboardURL, headers, &raw); err != nil {
		return nil, fmt.Errorf("polymarket.FetchTraders: %w", err)
	}

	traders := mapLeaderboardTraders(raw)
	if len(traders) > c.maxTraders {
		traders = traders[:c.maxTraders]
	}
	return traders, nil
}
