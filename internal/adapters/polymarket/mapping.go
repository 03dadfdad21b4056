package polymarket

import (
	"encoding/json"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// mapping.go — conversión DTO → domain, con las reglas de defaulting de la
// Data API declaradas en un solo lugar:
//   - size:   `size`, si es 0 se usa `amount`; posiciones sin tamaño se descartan
//   - market: `market`, luego `conditionId`, luego `market_id`; sin market id se descarta
//   - price:  `avgPrice`, luego `entry_price`
//   - token:  `asset`, luego `tokenId`

// mapDataPosition convierte un dataPosition a domain.Position.
// Devuelve ok=false si la posición debe descartarse.
func mapDataPosition(r dataPosition, trader string) (domain.Position, bool) {
	size := r.Size
	if size == 0 {
		size = r.Amount
	}
	if size <= 0 {
		return domain.Position{}, false
	}

	marketID := firstNonEmpty(r.Market, r.ConditionID, r.MarketIDAlt)
	if marketID == "" {
		return domain.Position{}, false
	}

	price := r.AvgPrice
	if price == 0 {
		price = r.EntryPrice
	}

	return domain.Position{
		MarketID:    marketID,
		TokenID:     firstNonEmpty(r.Asset, r.TokenID),
		ConditionID: r.ConditionID,
		Outcome:     r.Outcome,
		Size:        size,
		Price:       price,
		Trader:      trader,
	}, true
}

// mapGammaMarket convierte un gammaMarket a domain.MarketInfo.
// Los campos list llegan como strings JSON-encoded; si no parsean quedan vacíos.
func mapGammaMarket(r gammaMarket, marketID string) domain.MarketInfo {
	info := domain.MarketInfo{
		ConditionID: r.ConditionID,
		Question:    r.Question,
	}
	if info.ConditionID == "" {
		info.ConditionID = marketID
	}
	info.TokenIDs = parseJSONStringList(r.ClobTokenIDs)
	info.Outcomes = parseJSONStringList(r.Outcomes)
	return info
}

// mapLeaderboardTraders convierte y filtra los traders del leaderboard,
// descartando entradas sin address.
func mapLeaderboardTraders(raw []leaderboardTrader) []domain.TraderRecord {
	out := make([]domain.TraderRecord, 0, len(raw))
	for _, t := range raw {
		if t.Address == "" {
			continue
		}
		out = append(out, domain.TraderRecord{
			Address: t.Address,
			Label:   t.Label,
			Source:  "api",
			Active:  true,
		})
	}
	return out
}

// parseJSONStringList parsea un string tipo `["a","b"]` a slice.
func parseJSONStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
