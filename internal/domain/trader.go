package domain

import "time"

// TraderRecord es un trader monitoreado, persistido en storage.
type TraderRecord struct {
	Address string
	Label   string
	Source  string // "manual" | "api"
	Active  bool
	AddedAt time.Time
}

// ActivityEvent es una entrada del log de actividad append-only.
// Los campos no aplicables quedan en su zero value.
type ActivityEvent struct {
	ID        int64
	Timestamp time.Time
	Type      string
	MarketID  string
	Trader    string
	Outcome   string
	SizeUSD   float64
	Price     float64
	Mode      TradeMode
	Details   string
}

// Tipos de evento del activity log.
const (
	EventBotStart       = "bot_start"
	EventBotStop        = "bot_stop"
	EventTradeOpen      = "trade_open"
	EventTradeClose     = "trade_close"
	EventTradeAdjust    = "trade_adjust"
	EventClaimSubmitted = "claim_submitted"
	EventClaimConfirmed = "claim_confirmed"
	EventError          = "error"
)
