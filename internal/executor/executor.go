package executor

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

const (
	// minTradeUSD es la unidad mínima tradeable: sizes menores se descartan.
	minTradeUSD = 1.0
	// minAdjustUSD: ajustes live menores no justifican un round trip al venue.
	minAdjustUSD = 1.0
	// Rango de precios permitido por el venue.
	minPrice = 0.01
	maxPrice = 0.99
)

// Config contiene los límites de riesgo del executor.
type Config struct {
	CapitalRatio           float64 // capital del trader copiado / el nuestro
	MaxPositionUSD         float64 // cap fijo si no hay balance configurado
	MaxPositionPct         float64 // cap como fracción del balance
	AccountBalanceUSD      float64 // 0 = usar cap fijo
	MaxConcurrentPositions int
	DailyLossLimitUSD      float64
	Mode                   domain.TradeMode
}

// Entry es una posición abierta en el ledger in-memory del executor.
type Entry struct {
	SizeUSD    float64
	EntryPrice float64
}

// Executor convierte eventos de posición en trades con sizing de riesgo.
// Mantiene el ledger de posiciones abiertas y el P&L realizado del día.
// No es seguro para uso concurrente; el runner serializa los ticks.
type Executor struct {
	cfg    Config
	orders ports.OrderExecutor // solo en modo live

	open     map[string]Entry // market id → entry
	dailyPnL float64
	pnlDate  string // fecha UTC del último reset

	now func() time.Time
}

// New crea un Executor. orders puede ser nil en modo paper.
func New(cfg Config, orders ports.OrderExecutor) *Executor {
	return &Executor{
		cfg:    cfg,
		orders: orders,
		open:   make(map[string]Entry),
		now:    time.Now,
	}
}

// CalculateSize devuelve el tamaño en USD a tradear para la posición de un
// trader copiado, o 0 si algún límite de riesgo lo bloquea.
func (e *Executor) CalculateSize(pos domain.Position) float64 {
	e.maybeResetDay()

	raw := pos.Size / e.cfg.CapitalRatio

	cap := e.cfg.MaxPositionUSD
	if e.cfg.AccountBalanceUSD > 0 {
		cap = e.cfg.AccountBalanceUSD * e.cfg.MaxPositionPct
	}

	size := math.Min(raw, cap)
	if size < minTradeUSD {
		return 0
	}

	if len(e.open) >= e.cfg.MaxConcurrentPositions {
		slog.Debug("executor: max concurrent positions reached",
			"open", len(e.open), "max", e.cfg.MaxConcurrentPositions)
		return 0
	}

	// Freno diario: tras alcanzar el límite de pérdida no se abre nada
	// hasta el siguiente día UTC
	if e.dailyPnL <= -e.cfg.DailyLossLimitUSD {
		slog.Debug("executor: daily loss limit reached", "daily_pnl", e.dailyPnL)
		return 0
	}

	return math.Round(size*100) / 100
}

// OpenPosition abre una posición copiada. Size 0 es no-op (sin ledger, sin
// orden). En live, un fallo de submission se loguea y deja el ledger intacto.
func (e *Executor) OpenPosition(ctx context.Context, pos domain.Position) {
	size := e.CalculateSize(pos)
	if size <= 0 {
		return
	}

	if e.cfg.Mode == domain.ModeLive {
		ack, err := e.submitOrder(ctx, pos, domain.SideBuy, size)
		if err != nil {
			slog.Warn("executor: buy failed", "market", pos.MarketID, "err", err)
			return
		}
		if !ack.Accepted() {
			slog.Warn("executor: buy not accepted by venue",
				"market", pos.MarketID, "order_id", ack.OrderID, "status", ack.Status)
			return
		}
		slog.Info("executor: live buy accepted",
			"market", pos.MarketID, "order_id", ack.OrderID, "size", size)
	} else {
		slog.Info("executor: paper buy",
			"market", pos.MarketID, "outcome", pos.Outcome,
			"size", size, "price", pos.Price, "copying", pos.Trader)
	}

	// Se registra el size/precio solicitados, no re-leídos del venue
	e.open[pos.MarketID] = Entry{SizeUSD: size, EntryPrice: pos.Price}
}

// ClosePosition cierra la posición si existe, realizando el P&L.
// En live, el sell es best-effort: el entry ya salió del ledger aunque la
// orden falle (ventana de inconsistencia aceptada).
func (e *Executor) ClosePosition(ctx context.Context, pos domain.Position) {
	entry, ok := e.open[pos.MarketID]
	if !ok {
		return
	}
	delete(e.open, pos.MarketID)

	if entry.EntryPrice > 0 {
		pnl := entry.SizeUSD * (pos.Price/entry.EntryPrice - 1)
		e.dailyPnL += pnl
		slog.Info("executor: position closed",
			"market", pos.MarketID, "pnl", math.Round(pnl*100)/100,
			"daily_pnl", math.Round(e.dailyPnL*100)/100)
	}

	if e.cfg.Mode == domain.ModeLive {
		if _, err := e.submitOrder(ctx, pos, domain.SideSell, entry.SizeUSD); err != nil {
			slog.Warn("executor: sell failed, ledger entry already removed",
				"market", pos.MarketID, "err", err)
		}
	}
}

// AdjustPosition recalcula el size con el sizing normal. Si da 0 la posición
// existente queda intacta (no se cierra). En live, ajustes < 1 USD se saltan;
// el ledger se sobreescribe con el nuevo size y el último precio observado
// independientemente del resultado de la orden.
func (e *Executor) AdjustPosition(ctx context.Context, pos domain.Position) {
	newSize := e.CalculateSize(pos)
	if newSize <= 0 {
		return
	}

	oldSize := e.open[pos.MarketID].SizeUSD
	diff := newSize - oldSize

	if e.cfg.Mode == domain.ModeLive {
		if math.Abs(diff) < minAdjustUSD {
			return
		}
		side := domain.SideBuy
		if diff < 0 {
			side = domain.SideSell
		}
		if _, err := e.submitOrder(ctx, pos, side, math.Abs(diff)); err != nil {
			slog.Warn("executor: adjust order failed", "market", pos.MarketID, "err", err)
		}
	} else {
		slog.Info("executor: paper adjust",
			"market", pos.MarketID, "old", oldSize, "new", newSize)
	}

	// El entry price se refresca al último precio observado, no se preserva
	e.open[pos.MarketID] = Entry{SizeUSD: newSize, EntryPrice: pos.Price}
}

// Open devuelve el entry del ledger para un market id, si existe.
func (e *Executor) Open(marketID string) (Entry, bool) {
	entry, ok := e.open[marketID]
	return entry, ok
}

// OpenCount devuelve cuántas posiciones hay abiertas.
func (e *Executor) OpenCount() int {
	return len(e.open)
}

// TotalExposure devuelve la suma de sizes del ledger. Solo para reporting.
func (e *Executor) TotalExposure() float64 {
	var total float64
	for _, entry := range e.open {
		total += entry.SizeUSD
	}
	return total
}

// DailyPnL devuelve el P&L realizado desde el último reset UTC.
func (e *Executor) DailyPnL() float64 {
	e.maybeResetDay()
	return e.dailyPnL
}

// submitOrder envía una orden al venue con el precio clampeado al rango
// permitido [0.01, 0.99].
func (e *Executor) submitOrder(ctx context.Context, pos domain.Position, side domain.OrderSide, size float64) (domain.OrderAck, error) {
	price := math.Min(math.Max(pos.Price, minPrice), maxPrice)
	return e.orders.PlaceOrder(ctx, domain.OrderRequest{
		TokenID: pos.TokenID,
		Side:    side,
		Price:   price,
		SizeUSD: size,
	})
}

// maybeResetDay resetea el P&L diario si la fecha UTC avanzó.
func (e *Executor) maybeResetDay() {
	today := e.now().UTC().Format(time.DateOnly)
	if today != e.pnlDate {
		if e.pnlDate != "" {
			slog.Info("executor: daily P&L reset", "previous", e.dailyPnL)
		}
		e.dailyPnL = 0
		e.pnlDate = today
	}
}
