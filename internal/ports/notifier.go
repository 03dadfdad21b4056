package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// Notifier reporta el estado del bot al operador.
type Notifier interface {
	// NotifyDiff reporta los eventos de un tick (si hubo alguno).
	NotifyDiff(ctx context.Context, diff domain.Diff) error

	// NotifyStatus imprime el resumen de estado y las posiciones abiertas.
	NotifyStatus(ctx context.Context, stats domain.BotStats, positions []domain.OpenPosition) error
}
