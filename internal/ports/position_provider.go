package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// PositionProvider obtiene las posiciones actuales de una wallet desde la
// data API de Polymarket.
type PositionProvider interface {
	// FetchPositions devuelve el snapshot completo de la wallet dada.
	FetchPositions(ctx context.Context, address string) (domain.Snapshot, error)

	// FetchFunderPositions devuelve las posiciones on-chain del funder wallet,
	// usado por el discovery de orphans (sizeThreshold filtra dust en origen).
	FetchFunderPositions(ctx context.Context, funder string, sizeThreshold float64) ([]domain.Position, error)
}
