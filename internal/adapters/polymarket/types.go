package polymarket

// DTOs raw de las APIs de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities (y las reglas de defaulting para los campos
// que la API devuelve bajo nombres alternativos) vive en mapping.go.

// --- Data API ---

// dataPosition es una posición según GET /positions de la Data API.
// Algunos deployments devuelven claves alternativas (amount, market_id,
// entry_price, tokenId) — se listan todas y mapping.go decide.
type dataPosition struct {
	ProxyWallet string  `json:"proxyWallet"`
	Asset       string  `json:"asset"`
	TokenID     string  `json:"tokenId"`
	ConditionID string  `json:"conditionId"`
	Market      string  `json:"market"`
	MarketIDAlt string  `json:"market_id"`
	Size        float64 `json:"size"`
	Amount      float64 `json:"amount"`
	AvgPrice    float64 `json:"avgPrice"`
	EntryPrice  float64 `json:"entry_price"`
	CurPrice    float64 `json:"curPrice"`
	Outcome     string  `json:"outcome"`
	Redeemable  bool    `json:"redeemable"`
	Title       string  `json:"title"`
}

// --- Gamma API ---

// gammaMarket es la metadata de un mercado según GET /markets de Gamma.
// clobTokenIds y outcomes llegan como strings JSON-encoded ("[\"Yes\",\"No\"]").
type gammaMarket struct {
	ID           string `json:"id"`
	ConditionID  string `json:"conditionId"`
	Question     string `json:"question"`
	ClobTokenIDs string `json:"clobTokenIds"`
	Outcomes     string `json:"outcomes"`
	Active       bool   `json:"active"`
	Closed       bool   `json:"closed"`
}

// --- Leaderboard API ---

// leaderboardTrader es un trader según el API de discovery.
type leaderboardTrader struct {
	Address string `json:"address"`
	Label   string `json:"label"`
	Rank    int    `json:"rank"`
}

// --- CLOB API ---

// clobOrderRequest es el body de POST /order (market order simplificada).
type clobOrderRequest struct {
	TokenID       string  `json:"token_id"`
	Side          string  `json:"side"`
	Price         float64 `json:"price"`
	Size          float64 `json:"size"`
	ClientOrderID string  `json:"client_order_id"`
	OrderType     string  `json:"orderType"`
}

// clobOrderResponse es la respuesta de POST /order.
type clobOrderResponse struct {
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
	Success  bool   `json:"success"`
}
