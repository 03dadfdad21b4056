package domain

import "time"

// RelayCall es una sub-llamada dentro de una transacción batcheada del relayer.
type RelayCall struct {
	To    string // contrato destino
	Data  string // calldata hex 0x...
	Value string // wei, normalmente "0"
}

// RelayState es el estado terminal (o no) de una transacción del relayer.
type RelayState string

const (
	RelayStateSubmitted RelayState = "STATE_SUBMITTED"
	RelayStateMined     RelayState = "STATE_MINED"
	RelayStateConfirmed RelayState = "STATE_CONFIRMED"
	RelayStateFailed    RelayState = "STATE_FAILED"
)

// Terminal devuelve true si el estado ya no va a cambiar.
func (s RelayState) Terminal() bool {
	return s == RelayStateMined || s == RelayStateConfirmed || s == RelayStateFailed
}

// RelaySubmission es el acuse de recibo de una transacción enviada al relayer.
type RelaySubmission struct {
	TransactionID string
	TxHash        string
}

// RedemptionResult es el resultado de un batch_redeem.
type RedemptionResult struct {
	Success  bool
	TxHash   string
	Redeemed []string // condition ids incluidos en el batch
	Note     string   // "all already redeemed", "submitted but unconfirmed", etc.
	Err      string
}

// Resolution es el resultado de consultar payoutDenominator/payoutNumerators
// on-chain para un condition id.
type Resolution struct {
	Resolved   bool
	Numerators []uint64 // solo válido si Resolved
}

// OrderSide es el lado de una orden en el exchange.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderRequest es una orden a enviar al CLOB en modo live.
type OrderRequest struct {
	TokenID string
	Side    OrderSide
	Price   float64 // clampeado a [0.01, 0.99] por el executor
	SizeUSD float64
}

// OrderAck es la respuesta del exchange a una orden.
type OrderAck struct {
	OrderID string
	Status  string
	Success bool
}

// Accepted devuelve true si el exchange aceptó o llenó la orden.
func (a OrderAck) Accepted() bool {
	return a.Success && (a.Status == "live" || a.Status == "matched" || a.Status == "delayed")
}

// BotStats es el snapshot de estado que expone el runner para reporting.
type BotStats struct {
	Status       string
	Mode         TradeMode
	OpenCount    int
	ExposureUSD  float64
	DailyPnL     float64
	Traders      int
	TickCount    int
	LastError    string
	StartedAt    time.Time
	QuotaUsed    int
	QuotaLimit   int
	RedeemedCIDs int
}
