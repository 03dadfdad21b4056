package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

const gammaMarketsPath = "/markets"

// marketCache cachea metadata de mercados para toda la vida del proceso.
// Seguro porque la metadata es inmutable una vez asignada.
type marketCache struct {
	mu sync.RWMutex
	m  map[string]domain.MarketInfo
}

func newMarketCache() *marketCache {
	return &marketCache{m: make(map[string]domain.MarketInfo)}
}

func (mc *marketCache) get(id string) (domain.MarketInfo, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	info, ok := mc.m[id]
	return info, ok
}

func (mc *marketCache) put(id string, info domain.MarketInfo) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.m[id] = info
}

// ResolveMarket obtiene la metadata de un mercado desde Gamma, cacheada
// indefinidamente. Implementa ports.MarketResolver.
func (c *Client) ResolveMarket(ctx context.Context, marketID string) (domain.MarketInfo, error) {
	if info, ok := c.marketCache.get(marketID); ok {
		return info, nil
	}

	u := fmt.Sprintf("%s%s?id=%s", c.gammaBase, gammaMarketsPath, url.QueryEscape(marketID))

	// Gamma devuelve una lista incluso al consultar por id
	var raw []gammaMarket
	if err := c.get(ctx, c.gammaLimiter, u, nil, &raw); err != nil {
		return domain.MarketInfo{}, fmt.Errorf("polymarket.ResolveMarket %s: %w", marketID, err)
	}
	if len(raw) == 0 {
		return domain.MarketInfo{}, fmt.Errorf("polymarket.ResolveMarket %s: not found", marketID)
	}

	info := mapGammaMarket(raw[0], marketID)
	c.marketCache.put(marketID, info)
	return info, nil
}
