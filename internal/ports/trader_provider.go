package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// TraderProvider descubre los traders a copiar (leaderboard API).
type TraderProvider interface {
	// FetchTraders devuelve la lista ordenada de traders, ya truncada
	// al máximo configurado.
	FetchTraders(ctx context.Context) ([]domain.TraderRecord, error)
}
