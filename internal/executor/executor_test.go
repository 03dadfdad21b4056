package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// fakeVenue registra órdenes y responde con el ack configurado.
type fakeVenue struct {
	orders []domain.OrderRequest
	ack    *domain.OrderAck // nil = matched
	err    error
}

func (f *fakeVenue) PlaceOrder(_ context.Context, req domain.OrderRequest) (domain.OrderAck, error) {
	if f.err != nil {
		return domain.OrderAck{}, f.err
	}
	f.orders = append(f.orders, req)
	if f.ack != nil {
		return *f.ack, nil
	}
	return domain.OrderAck{OrderID: "ord-1", Status: "matched", Success: true}, nil
}

func defaultConfig() Config {
	return Config{
		CapitalRatio:           10,
		MaxPositionUSD:         50,
		MaxConcurrentPositions: 10,
		DailyLossLimitUSD:      100,
		Mode:                   domain.ModePaper,
	}
}

func traderPos(marketID string, size, price float64) domain.Position {
	return domain.Position{
		MarketID: marketID, TokenID: "tok_" + marketID,
		Outcome: "Yes", Size: size, Price: price, Trader: "0xcopied",
	}
}

func TestCalculateSize_FixedDollarCap(t *testing.T) {
	// Escenario D: max 50, ratio 10, size 1000 → raw 100, cap 50
	e := New(defaultConfig(), nil)
	assert.InDelta(t, 50.0, e.CalculateSize(traderPos("m1", 1000, 0.5)), 0.001)
}

func TestCalculateSize_BalancePctCap(t *testing.T) {
	cfg := defaultConfig()
	cfg.AccountBalanceUSD = 200
	cfg.MaxPositionPct = 0.1
	e := New(cfg, nil)

	// cap = 200 * 0.1 = 20; raw = 1000/10 = 100 → 20
	assert.InDelta(t, 20.0, e.CalculateSize(traderPos("m1", 1000, 0.5)), 0.001)
}

func TestCalculateSize_NeverExceedsCapNorNegative(t *testing.T) {
	e := New(defaultConfig(), nil)
	for _, size := range []float64{0, 1, 9.99, 10, 500, 1e6} {
		got := e.CalculateSize(traderPos("m1", size, 0.5))
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 50.0)
	}
}

func TestCalculateSize_BelowMinimumUnit(t *testing.T) {
	e := New(defaultConfig(), nil)
	// raw = 9/10 = 0.9 < 1.0 → 0
	assert.Zero(t, e.CalculateSize(traderPos("m1", 9, 0.5)))
}

func TestCalculateSize_ConcurrentLimit(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxConcurrentPositions = 2
	e := New(cfg, nil)

	e.OpenPosition(context.Background(), traderPos("m1", 100, 0.5))
	e.OpenPosition(context.Background(), traderPos("m2", 100, 0.5))
	require.Equal(t, 2, e.OpenCount())

	assert.Zero(t, e.CalculateSize(traderPos("m3", 100, 0.5)))
}

func TestCalculateSize_Rounding(t *testing.T) {
	e := New(defaultConfig(), nil)
	// 123.456 / 10 = 12.3456 → 12.35
	assert.InDelta(t, 12.35, e.CalculateSize(traderPos("m1", 123.456, 0.5)), 0.0001)
}

func TestLossBreaker_BlocksUntilUTCNextDay(t *testing.T) {
	e := New(defaultConfig(), nil)

	day1 := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return day1 }

	// Abrir a 0.5 y cerrar a 0.1: pnl = 50 * (0.1/0.5 - 1) = -40
	e.OpenPosition(context.Background(), traderPos("m1", 1000, 0.5))
	e.ClosePosition(context.Background(), traderPos("m1", 1000, 0.1))
	e.OpenPosition(context.Background(), traderPos("m2", 1000, 0.5))
	e.ClosePosition(context.Background(), traderPos("m2", 1000, 0.1))
	e.OpenPosition(context.Background(), traderPos("m3", 1000, 0.5))
	e.ClosePosition(context.Background(), traderPos("m3", 1000, 0.05))

	require.LessOrEqual(t, e.DailyPnL(), -100.0)

	// Bloqueado para cualquier input mientras no avance la fecha UTC
	assert.Zero(t, e.CalculateSize(traderPos("m4", 1000, 0.5)))
	assert.Zero(t, e.CalculateSize(traderPos("m5", 20, 0.9)))

	// Avanza el día UTC: reset y vuelve a operar
	e.now = func() time.Time { return day1.Add(3 * time.Hour) }
	assert.Zero(t, e.DailyPnL())
	assert.InDelta(t, 50.0, e.CalculateSize(traderPos("m4", 1000, 0.5)), 0.001)
}

func TestOpenPosition_ZeroSizeIsNoop(t *testing.T) {
	e := New(defaultConfig(), nil)
	e.OpenPosition(context.Background(), traderPos("m1", 5, 0.5)) // raw 0.5 < 1
	assert.Zero(t, e.OpenCount())
}

func TestClosePosition_RealizesPnL(t *testing.T) {
	e := New(defaultConfig(), nil)

	e.OpenPosition(context.Background(), traderPos("m1", 500, 0.40))
	entry, ok := e.Open("m1")
	require.True(t, ok)
	assert.InDelta(t, 0.40, entry.EntryPrice, 0.001)

	// Cierra a 0.50: pnl = 50 * (0.5/0.4 - 1) = 12.5
	e.ClosePosition(context.Background(), traderPos("m1", 500, 0.50))
	assert.Zero(t, e.OpenCount())
	assert.InDelta(t, 12.5, e.DailyPnL(), 0.001)
}

func TestClosePosition_UnknownMarketNoop(t *testing.T) {
	e := New(defaultConfig(), nil)
	e.ClosePosition(context.Background(), traderPos("m9", 100, 0.5))
	assert.Zero(t, e.DailyPnL())
}

func TestAdjustPosition_RefreshesEntryPrice(t *testing.T) {
	e := New(defaultConfig(), nil)

	e.OpenPosition(context.Background(), traderPos("m1", 300, 0.40))

	// Ajuste: el entry price se refresca al último precio observado
	e.AdjustPosition(context.Background(), traderPos("m1", 400, 0.55))
	entry, ok := e.Open("m1")
	require.True(t, ok)
	assert.InDelta(t, 40.0, entry.SizeUSD, 0.001)
	assert.InDelta(t, 0.55, entry.EntryPrice, 0.001)
}

func TestAdjustPosition_ZeroSizeLeavesExisting(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxConcurrentPositions = 1
	e := New(cfg, nil)

	e.OpenPosition(context.Background(), traderPos("m1", 300, 0.40))

	// Con el límite concurrente alcanzado el sizing da 0: no tocar la posición
	e.AdjustPosition(context.Background(), traderPos("m1", 999, 0.60))
	entry, _ := e.Open("m1")
	assert.InDelta(t, 30.0, entry.SizeUSD, 0.001)
	assert.InDelta(t, 0.40, entry.EntryPrice, 0.001)
}

func TestLiveOpen_ClampsPriceAndRecordsRequested(t *testing.T) {
	venue := &fakeVenue{}
	cfg := defaultConfig()
	cfg.Mode = domain.ModeLive
	e := New(cfg, venue)

	e.OpenPosition(context.Background(), traderPos("m1", 500, 0.995))

	require.Len(t, venue.orders, 1)
	assert.Equal(t, domain.SideBuy, venue.orders[0].Side)
	assert.InDelta(t, 0.99, venue.orders[0].Price, 0.0001, "precio clampeado al rango del venue")
	assert.InDelta(t, 50.0, venue.orders[0].SizeUSD, 0.001)

	entry, ok := e.Open("m1")
	require.True(t, ok)
	assert.InDelta(t, 0.995, entry.EntryPrice, 0.0001, "se registra el precio observado, no el clampeado")
}

func TestLiveOpen_SubmissionFailureLeavesLedgerUntouched(t *testing.T) {
	venue := &fakeVenue{err: fmt.Errorf("clob unavailable")}
	cfg := defaultConfig()
	cfg.Mode = domain.ModeLive
	e := New(cfg, venue)

	e.OpenPosition(context.Background(), traderPos("m1", 500, 0.5))
	assert.Zero(t, e.OpenCount())
}

func TestLiveOpen_NonAcceptedStatusLeavesLedgerUntouched(t *testing.T) {
	// El venue responde sin error pero con un status no aceptado: la
	// posición no se registra
	venue := &fakeVenue{ack: &domain.OrderAck{OrderID: "ord-1", Status: "unmatched", Success: true}}
	cfg := defaultConfig()
	cfg.Mode = domain.ModeLive
	e := New(cfg, venue)

	e.OpenPosition(context.Background(), traderPos("m1", 500, 0.5))

	require.Len(t, venue.orders, 1)
	assert.Zero(t, e.OpenCount())
}

func TestLiveAdjust_SubMinimumSkipsVenue(t *testing.T) {
	venue := &fakeVenue{}
	cfg := defaultConfig()
	cfg.Mode = domain.ModeLive
	e := New(cfg, venue)

	e.OpenPosition(context.Background(), traderPos("m1", 300, 0.50))
	require.Len(t, venue.orders, 1)

	// 300 → 305: diff = 0.5 USD < 1 → sin orden y sin cambio de ledger
	e.AdjustPosition(context.Background(), traderPos("m1", 305, 0.52))
	assert.Len(t, venue.orders, 1)
	entry, _ := e.Open("m1")
	assert.InDelta(t, 30.0, entry.SizeUSD, 0.001)
}

func TestLiveAdjust_SellOnDecrease(t *testing.T) {
	venue := &fakeVenue{}
	cfg := defaultConfig()
	cfg.Mode = domain.ModeLive
	e := New(cfg, venue)

	e.OpenPosition(context.Background(), traderPos("m1", 400, 0.50))
	e.AdjustPosition(context.Background(), traderPos("m1", 200, 0.45))

	require.Len(t, venue.orders, 2)
	assert.Equal(t, domain.SideSell, venue.orders[1].Side)
	assert.InDelta(t, 20.0, venue.orders[1].SizeUSD, 0.001)

	entry, _ := e.Open("m1")
	assert.InDelta(t, 20.0, entry.SizeUSD, 0.001)
}

func TestTotalExposure(t *testing.T) {
	e := New(defaultConfig(), nil)
	e.OpenPosition(context.Background(), traderPos("m1", 300, 0.5))
	e.OpenPosition(context.Background(), traderPos("m2", 200, 0.5))
	assert.InDelta(t, 50.0, e.TotalExposure(), 0.001)
}
