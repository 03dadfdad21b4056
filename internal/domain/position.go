package domain

import "time"

// TradeMode indica si las operaciones son simuladas o reales.
type TradeMode string

const (
	ModePaper TradeMode = "paper"
	ModeLive  TradeMode = "live"
)

// Position es una posición observada en la wallet de un trader copiado.
// Es efímera: se reconstruye completa en cada poll y nunca se muta.
type Position struct {
	MarketID    string
	TokenID     string
	ConditionID string // puede estar vacío hasta resolverlo via Gamma
	Outcome     string
	Size        float64 // unidades del trader, no USD nuestros
	Price       float64
	Trader      string // address de la wallet copiada
}

// Snapshot es el mapa market_id → Position de una wallet en un poll.
// Se reemplaza entero en cada ciclo, nunca se mergea.
type Snapshot map[string]Position

// Diff es el resultado de comparar dos snapshots consecutivos de las wallets
// monitoreadas. Cada market id aparece en a lo sumo una de las tres listas.
type Diff struct {
	New      []Position
	Closed   []Position
	Adjusted []Position
}

// Empty devuelve true si el diff no contiene ningún evento.
func (d Diff) Empty() bool {
	return len(d.New) == 0 && len(d.Closed) == 0 && len(d.Adjusted) == 0
}

// OpenPosition es una posición nuestra persistida en el ledger.
// Hay a lo sumo una por market id.
type OpenPosition struct {
	MarketID    string
	TokenID     string
	ConditionID string
	Outcome     string
	SizeUSD     float64
	EntryPrice  float64
	Trader      string // wallet de la que se copió
	Mode        TradeMode
	OpenedAt    time.Time
}

// MarketInfo es la metadata inmutable de un mercado, resuelta via Gamma
// y cacheada para toda la vida del proceso.
type MarketInfo struct {
	ConditionID string
	Question    string
	TokenIDs    []string
	Outcomes    []string
}
