package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// MarketResolver resuelve la metadata de un mercado (condition id, tokens,
// outcomes). La metadata es inmutable, el caller puede cachearla sin límite.
type MarketResolver interface {
	ResolveMarket(ctx context.Context, marketID string) (domain.MarketInfo, error)
}
