package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// Console implementa ports.Notifier escribiendo al terminal del operador.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyDiff imprime una línea por evento del tick. Sin eventos no imprime
// nada: el loop corre cada pocos segundos y el silencio es la norma.
func (c *Console) NotifyDiff(_ context.Context, diff domain.Diff) error {
	if diff.Empty() {
		return nil
	}

	now := time.Now().Format("15:04:05")
	for _, pos := range diff.New {
		fmt.Fprintf(c.out, "[%s] NEW    %s %s $%.2f @ %.3f (copying %s)\n",
			now, compactMarket(pos.MarketID), pos.Outcome, pos.Size, pos.Price, shortAddr(pos.Trader))
	}
	for _, pos := range diff.Adjusted {
		fmt.Fprintf(c.out, "[%s] ADJUST %s %s → $%.2f @ %.3f\n",
			now, compactMarket(pos.MarketID), pos.Outcome, pos.Size, pos.Price)
	}
	for _, pos := range diff.Closed {
		fmt.Fprintf(c.out, "[%s] CLOSE  %s %s\n",
			now, compactMarket(pos.MarketID), pos.Outcome)
	}
	return nil
}

// NotifyStatus imprime el resumen de estado y la tabla de posiciones.
func (c *Console) NotifyStatus(_ context.Context, stats domain.BotStats, positions []domain.OpenPosition) error {
	fmt.Fprintf(c.out, "\n[%s] %s mode=%s traders=%d ticks=%d | open=%d exposure=$%.2f pnl=$%.2f | quota %d/%d redeemed=%d\n",
		time.Now().Format("15:04:05"), stats.Status, stats.Mode,
		stats.Traders, stats.TickCount,
		stats.OpenCount, stats.ExposureUSD, stats.DailyPnL,
		stats.QuotaUsed, stats.QuotaLimit, stats.RedeemedCIDs)

	if stats.LastError != "" {
		fmt.Fprintf(c.out, "  last error: %s\n", stats.LastError)
	}

	if len(positions) == 0 {
		fmt.Fprintln(c.out, "  no open positions")
		return nil
	}

	if !c.table {
		for _, pos := range positions {
			fmt.Fprintf(c.out, "  %s %s $%.2f @ %.3f (%s)\n",
				compactMarket(pos.MarketID), pos.Outcome, pos.SizeUSD, pos.EntryPrice, shortAddr(pos.Trader))
		}
		return nil
	}

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Market", "Outcome", "Size", "Entry", "Copying", "Mode", "Opened")

	for _, pos := range positions {
		opened := ""
		if !pos.OpenedAt.IsZero() {
			opened = pos.OpenedAt.Format("01-02 15:04")
		}
		tbl.Append(
			compactMarket(pos.MarketID),
			pos.Outcome,
			fmt.Sprintf("$%.2f", pos.SizeUSD),
			fmt.Sprintf("%.3f", pos.EntryPrice),
			shortAddr(pos.Trader),
			string(pos.Mode),
			opened,
		)
	}

	tbl.Render()
	return nil
}

// compactMarket recorta market ids largos para que la línea quepa en 80 cols.
func compactMarket(id string) string {
	if len(id) <= 24 {
		return id
	}
	return id[:21] + "..."
}

// shortAddr abrevia una address 0x... al formato 0xab..cdef.
func shortAddr(addr string) string {
	if !strings.HasPrefix(addr, "0x") || len(addr) < 10 {
		return addr
	}
	return addr[:4] + ".." + addr[len(addr)-4:]
}
