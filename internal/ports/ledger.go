package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// Ledger persiste el estado del bot: posiciones abiertas, traders, settings
// y el activity log. Single-writer: solo el runner escribe.
type Ledger interface {
	// Posiciones (key: market id, upsert/delete atómicos)
	UpsertPosition(ctx context.Context, p domain.OpenPosition) error
	RemovePosition(ctx context.Context, marketID string) error
	GetPositions(ctx context.Context) ([]domain.OpenPosition, error)

	// Traders
	GetTraders(ctx context.Context, activeOnly bool) ([]domain.TraderRecord, error)
	AddTrader(ctx context.Context, t domain.TraderRecord) error
	RemoveTrader(ctx context.Context, address string) error

	// Settings key-value
	GetSetting(ctx context.Context, key, fallback string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	AllSettings(ctx context.Context) (map[string]string, error)

	// Activity log append-only
	LogActivity(ctx context.Context, e domain.ActivityEvent) error
	GetActivity(ctx context.Context, limit int) ([]domain.ActivityEvent, error)

	Close() error
}
