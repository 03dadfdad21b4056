package tracker

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

// sizeEpsilon es la tolerancia de ruido en cambios de tamaño: diferencias
// de hasta 0.01 no generan evento adjusted.
const sizeEpsilon = 0.01

// Tracker mantiene el último snapshot de cada wallet monitoreada y produce
// eventos new/closed/adjusted al comparar contra el snapshot anterior.
//
// No es seguro para uso concurrente: los snapshots se mutan in place y el
// runner garantiza un solo tick a la vez.
type Tracker struct {
	positions ports.PositionProvider
	resolver  ports.MarketResolver

	// address → snapshot del último poll
	snapshots map[string]domain.Snapshot

	// pausa entre wallets para no saturar la Data API. Es parte del
	// contrato: el scan NO termina en tiempo acotado independiente del
	// número de wallets.
	walletDelay time.Duration
}

// New crea un Tracker sin snapshots previos.
func New(positions ports.PositionProvider, resolver ports.MarketResolver, walletDelay time.Duration) *Tracker {
	return &Tracker{
		positions:   positions,
		resolver:    resolver,
		snapshots:   make(map[string]domain.Snapshot),
		walletDelay: walletDelay,
	}
}

// DetectChanges escanea las wallets en orden y devuelve el diff agregado.
//
// Un fetch fallido degrada a snapshot vacío SOLO para esa wallet (se loguea,
// no se propaga). Efecto conocido: todos los markets que esa wallet tenía se
// emiten como closed en este tick.
func (t *Tracker) DetectChanges(ctx context.Context, addresses []string) domain.Diff {
	var diff domain.Diff

	for i, addr := range addresses {
		current, err := t.positions.FetchPositions(ctx, addr)
		if err != nil {
			slog.Warn("tracker: fetch failed, treating wallet as empty",
				"wallet", addr, "err", err)
			current = domain.Snapshot{}
		}

		previous := t.snapshots[addr]
		newPos, closed, adjusted := diffSnapshots(previous, current)
		diff.New = append(diff.New, newPos...)
		diff.Closed = append(diff.Closed, closed...)
		diff.Adjusted = append(diff.Adjusted, adjusted...)

		// Reemplazo completo, sin tombstones: los markets cerrados desaparecen
		t.snapshots[addr] = current

		if i < len(addresses)-1 && t.walletDelay > 0 {
			select {
			case <-time.After(t.walletDelay):
			case <-ctx.Done():
				return diff
			}
		}
	}

	return diff
}

// EnrichConditionID completa el condition id de una posición via Gamma si
// falta. La metadata es inmutable, el resolver la cachea de por vida.
func (t *Tracker) EnrichConditionID(ctx context.Context, pos *domain.Position) {
	if pos.ConditionID != "" || t.resolver == nil {
		return
	}
	info, err := t.resolver.ResolveMarket(ctx, pos.MarketID)
	if err != nil {
		slog.Debug("tracker: market metadata lookup failed",
			"market", pos.MarketID, "err", err)
		return
	}
	pos.ConditionID = info.ConditionID
	if pos.TokenID == "" && len(info.TokenIDs) > 0 {
		pos.TokenID = info.TokenIDs[0]
	}
}

// WalletCount devuelve cuántas wallets tienen snapshot almacenado.
func (t *Tracker) WalletCount() int {
	return len(t.snapshots)
}

// diffSnapshots compara dos snapshots de una wallet.
// Particiona previous ∪ current en {unchanged, new, closed, adjusted}:
//   - en current pero no en previous             → new
//   - en ambos con |Δsize| > sizeEpsilon         → adjusted
//   - en previous pero no en current             → closed
func diffSnapshots(previous, current domain.Snapshot) (newPos, closed, adjusted []domain.Position) {
	for mid, pos := range current {
		prev, ok := previous[mid]
		switch {
		case !ok:
			newPos = append(newPos, pos)
		case math.Abs(pos.Size-prev.Size) > sizeEpsilon:
			adjusted = append(adjusted, pos)
		}
	}

	for mid, pos := range previous {
		if _, ok := current[mid]; !ok {
			closed = append(closed, pos)
		}
	}

	return newPos, closed, adjusted
}
