package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

const dataPositionsPath = "/positions"

// FetchPositions devuelve el snapshot completo de posiciones de una wallet.
// Implementa ports.PositionProvider.
func (c *Client) FetchPositions(ctx context.Context, address string) (domain.Snapshot, error) {
	u := fmt.Sprintf("%s%s?user=%s", c.dataBase, dataPositionsPath, url.QueryEscape(address))

	var raw []dataPosition
	if err := c.get(ctx, c.dataLimiter, u, nil, &raw); err != nil {
		return nil, fmt.Errorf("polymarket.FetchPositions %s: %w", shortAddr(address), err)
	}

	snap := make(domain.Snapshot, len(raw))
	for _, r := range raw {
		pos, ok := mapDataPosition(r, address)
		if !ok {
			continue
		}
		snap[pos.MarketID] = pos
	}
	return snap, nil
}

// FetchFunderPositions devuelve las posiciones on-chain del funder wallet,
// con el filtro de tamaño aplicado en origen (sizeThreshold).
func (c *Client) FetchFunderPositions(ctx context.Context, funder string, sizeThreshold float64) ([]domain.Position, error) {
	q := url.Values{}
	q.Set("user", funder)
	q.Set("sizeThreshold", strconv.FormatFloat(sizeThreshold, 'f', -1, 64))
	q.Set("limit", "200")
	u := fmt.Sprintf("%s%s?%s", c.dataBase, dataPositionsPath, q.Encode())

	var raw []dataPosition
	if err := c.get(ctx, c.dataLimiter, u, nil, &raw); err != nil {
		return nil, fmt.Errorf("polymarket.FetchFunderPositions: %w", err)
	}

	out := make([]domain.Position, 0, len(raw))
	for _, r := range raw {
		pos, ok := mapDataPosition(r, funder)
		if !ok {
			continue
		}
		out = append(out, pos)
	}
	return out, nil
}

// shortAddr trunca una address para logging.
func shortAddr(a string) string {
	if len(a) > 10 {
		return a[:10] + ".."
	}
	return a
}
