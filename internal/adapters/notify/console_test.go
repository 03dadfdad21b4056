package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

func TestNotifyDiff_SilentWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	require.NoError(t, c.NotifyDiff(context.Background(), domain.Diff{}))
	assert.Empty(t, buf.String())
}

func TestNotifyDiff_OneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	diff := domain.Diff{
		New: []domain.Position{{
			MarketID: "will-x-happen", Outcome: "Yes", Size: 25, Price: 0.62,
			Trader: "0x1234567890abcdef1234567890abcdef12345678",
		}},
		Adjusted: []domain.Position{{MarketID: "mkt-b", Outcome: "No", Size: 40, Price: 0.3}},
		Closed:   []domain.Position{{MarketID: "mkt-c", Outcome: "Yes"}},
	}
	require.NoError(t, c.NotifyDiff(context.Background(), diff))

	out := buf.String()
	assert.Contains(t, out, "NEW    will-x-happen Yes $25.00 @ 0.620")
	assert.Contains(t, out, "copying 0x12..5678")
	assert.Contains(t, out, "ADJUST mkt-b No → $40.00")
	assert.Contains(t, out, "CLOSE  mkt-c Yes")
}

func TestNotifyStatus_SummaryLine(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	stats := domain.BotStats{
		Status: "running", Mode: domain.ModePaper,
		OpenCount: 2, ExposureUSD: 75.5, DailyPnL: -3.25,
		Traders: 3, TickCount: 42,
		QuotaUsed: 5, QuotaLimit: 80, RedeemedCIDs: 1,
		LastError: "data api timeout",
	}
	require.NoError(t, c.NotifyStatus(context.Background(), stats, nil))

	out := buf.String()
	assert.Contains(t, out, "running mode=paper traders=3 ticks=42")
	assert.Contains(t, out, "open=2 exposure=$75.50 pnl=$-3.25")
	assert.Contains(t, out, "quota 5/80 redeemed=1")
	assert.Contains(t, out, "last error: data api timeout")
	assert.Contains(t, out, "no open positions")
}

func TestNotifyStatus_PositionsTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, true)

	positions := []domain.OpenPosition{{
		MarketID:   "a-market-id-that-is-definitely-long-enough",
		Outcome:    "Yes",
		SizeUSD:    50,
		EntryPrice: 0.55,
		Trader:     "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
		Mode:       domain.ModeLive,
		OpenedAt:   time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}}
	require.NoError(t, c.NotifyStatus(context.Background(), domain.BotStats{Status: "running", Mode: domain.ModeLive}, positions))

	out := buf.String()
	assert.Contains(t, out, "a-market-id-that-is-d...")
	assert.Contains(t, out, "$50.00")
	assert.Contains(t, out, "0xab..abcd")
	assert.Contains(t, out, "live")
	assert.Contains(t, out, "03-01 09:30")
}
