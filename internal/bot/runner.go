package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/executor"
	"github.com/alejandrodnm/polycopy/internal/ports"
	"github.com/alejandrodnm/polycopy/internal/settlement"
	"github.com/alejandrodnm/polycopy/internal/tracker"
)

// Config controla el scheduling del loop principal.
type Config struct {
	PollInterval time.Duration
	ErrorSleep   time.Duration

	// Las tareas lentas corren en múltiplos del tick base.
	RefreshTicks   int // re-fetch de la lista de traders
	SettleTicks    int // sweep de settlement sobre posiciones tracked
	DiscoveryTicks int // sweep de orphans en el funder wallet

	ManualTraders []string
	MaxTraders    int
	Mode          domain.TradeMode
	QuotaLimit    int
}

// Runner es el orquestador: un solo loop secuencial que escanea wallets,
// rutea eventos al executor, y dispara settlement en múltiplos gruesos.
// Todas las operaciones del tick corren en la misma goroutine; solo Stats()
// puede llamarse desde fuera.
type Runner struct {
	cfg       Config
	tracker   *tracker.Tracker
	exec      *executor.Executor
	settle    *settlement.Session
	discovery ports.TraderProvider // nil si no hay API key
	ledger    ports.Ledger
	notify    ports.Notifier

	mu        sync.Mutex
	traders   []string
	ticks     int
	lastError string
	startedAt time.Time
	// Snapshot del executor al final del último tick; el executor no es
	// thread-safe así que Stats() lee esta copia, no el executor vivo.
	openCount    int
	exposureUSD  float64
	dailyPnL     float64
	quotaUsed    int
	redeemedCIDs int
}

// New arma el Runner con sus colaboradores ya construidos.
func New(cfg Config, tr *tracker.Tracker, exec *executor.Executor, settle *settlement.Session,
	discovery ports.TraderProvider, ledger ports.Ledger, notify ports.Notifier) *Runner {
	return &Runner{
		cfg:       cfg,
		tracker:   tr,
		exec:      exec,
		settle:    settle,
		discovery: discovery,
		ledger:    ledger,
		notify:    notify,
	}
}

// Run ejecuta el loop hasta que el contexto se cancele. Un error por tick
// nunca termina el loop: se loguea, se registra en el activity log y se
// duerme ErrorSleep antes del siguiente tick.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.startedAt = time.Now()
	r.mu.Unlock()

	r.logEvent(ctx, domain.ActivityEvent{Type: domain.EventBotStart, Mode: r.cfg.Mode})

	if err := r.loadTraders(ctx); err != nil {
		return fmt.Errorf("bot.Run: %w", err)
	}
	if len(r.traderList()) == 0 {
		return fmt.Errorf("bot.Run: no traders to copy (configure api key or manual_traders)")
	}

	// Baseline: el primer scan solo establece snapshots, sin emitir trades.
	// Sin esto, cada posición preexistente de los traders sería un "new".
	baseline := r.tracker.DetectChanges(ctx, r.traderList())
	slog.Info("bot: baseline established",
		"wallets", r.tracker.WalletCount(), "positions", len(baseline.New))

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	slog.Info("bot: loop started",
		"mode", r.cfg.Mode, "traders", len(r.traderList()),
		"poll_interval", r.cfg.PollInterval)

	for {
		select {
		case <-ctx.Done():
			r.logEvent(context.WithoutCancel(ctx), domain.ActivityEvent{Type: domain.EventBotStop, Mode: r.cfg.Mode})
			slog.Info("bot: loop stopped", "ticks", r.TickCount())
			return nil
		case <-ticker.C:
			if err := r.tick(ctx); err != nil {
				r.setError(err)
				slog.Error("bot: tick failed", "err", err)
				r.logEvent(ctx, domain.ActivityEvent{
					Type: domain.EventError, Mode: r.cfg.Mode, Details: err.Error(),
				})
				select {
				case <-time.After(r.cfg.ErrorSleep):
				case <-ctx.Done():
				}
			}
		}
	}
}

// tick ejecuta una iteración: scan + routing + tareas en múltiplos gruesos.
func (r *Runner) tick(ctx context.Context) error {
	r.mu.Lock()
	r.ticks++
	n := r.ticks
	r.mu.Unlock()

	diff := r.tracker.DetectChanges(ctx, r.traderList())
	if !diff.Empty() {
		if err := r.notify.NotifyDiff(ctx, diff); err != nil {
			slog.Debug("bot: notify failed", "err", err)
		}
		if err := r.route(ctx, diff); err != nil {
			return err
		}
	}

	if r.cfg.RefreshTicks > 0 && n%r.cfg.RefreshTicks == 0 {
		if err := r.loadTraders(ctx); err != nil {
			return err
		}
	}
	if r.settle != nil && r.cfg.SettleTicks > 0 && n%r.cfg.SettleTicks == 0 {
		if err := r.settleSweep(ctx); err != nil {
			return err
		}
	}
	if r.settle != nil && r.cfg.DiscoveryTicks > 0 && n%r.cfg.DiscoveryTicks == 0 {
		if err := r.orphanSweep(ctx); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.openCount = r.exec.OpenCount()
	r.exposureUSD = r.exec.TotalExposure()
	r.dailyPnL = r.exec.DailyPnL()
	if r.settle != nil {
		r.quotaUsed = r.settle.QuotaUsed()
		r.redeemedCIDs = r.settle.RedeemedCount()
	}
	r.mu.Unlock()

	return nil
}

// openRecord construye el registro persistible de una posición abierta.
func (r *Runner) openRecord(pos domain.Position, entry executor.Entry) domain.OpenPosition {
	return domain.OpenPosition{
		MarketID:    pos.MarketID,
		TokenID:     pos.TokenID,
		ConditionID: pos.ConditionID,
		Outcome:     pos.Outcome,
		SizeUSD:     entry.SizeUSD,
		EntryPrice:  entry.EntryPrice,
		Trader:      pos.Trader,
		Mode:        r.cfg.Mode,
		OpenedAt:    time.Now().UTC(),
	}
}

// route aplica el diff al executor y persiste los cambios en el ledger.
func (r *Runner) route(ctx context.Context, diff domain.Diff) error {
	for _, pos := range diff.New {
		// El condition id hace falta más adelante para settlement; se
		// resuelve una vez aquí, con la metadata cacheada de por vida
		r.tracker.EnrichConditionID(ctx, &pos)

		r.exec.OpenPosition(ctx, pos)
		entry, ok := r.exec.Open(pos.MarketID)
		if !ok {
			continue // bloqueada por riesgo o sizing < mínimo
		}
		if err := r.ledger.UpsertPosition(ctx, r.openRecord(pos, entry)); err != nil {
			return fmt.Errorf("bot.route: persist open: %w", err)
		}
		r.logEvent(ctx, domain.ActivityEvent{
			Type: domain.EventTradeOpen, MarketID: pos.MarketID, Trader: pos.Trader,
			Outcome: pos.Outcome, SizeUSD: entry.SizeUSD, Price: entry.EntryPrice,
			Mode: r.cfg.Mode,
		})
	}

	// El executor arranca vacío tras un restart (el baseline descarta las
	// posiciones preexistentes), pero el ledger persistido no: un close
	// tiene que borrar la fila aunque el executor no conozca el entry.
	var persisted map[string]domain.OpenPosition
	if len(diff.Closed) > 0 {
		rows, err := r.ledger.GetPositions(ctx)
		if err != nil {
			return fmt.Errorf("bot.route: load persisted: %w", err)
		}
		persisted = make(map[string]domain.OpenPosition, len(rows))
		for _, row := range rows {
			persisted[row.MarketID] = row
		}
	}

	for _, pos := range diff.Closed {
		entry, ok := r.exec.Open(pos.MarketID)
		r.exec.ClosePosition(ctx, pos)

		row, inLedger := persisted[pos.MarketID]
		if !ok && !inLedger {
			continue // nunca se copió (p.ej. bloqueada por riesgo)
		}
		size := entry.SizeUSD
		if !ok {
			size = row.SizeUSD
		}
		if err := r.ledger.RemovePosition(ctx, pos.MarketID); err != nil {
			return fmt.Errorf("bot.route: persist close: %w", err)
		}
		r.logEvent(ctx, domain.ActivityEvent{
			Type: domain.EventTradeClose, MarketID: pos.MarketID, Trader: pos.Trader,
			Outcome: pos.Outcome, SizeUSD: size, Price: pos.Price,
			Mode: r.cfg.Mode,
		})
	}

	for _, pos := range diff.Adjusted {
		before, _ := r.exec.Open(pos.MarketID)
		r.exec.AdjustPosition(ctx, pos)
		after, ok := r.exec.Open(pos.MarketID)
		if !ok || after == before {
			continue
		}
		if err := r.ledger.UpsertPosition(ctx, r.openRecord(pos, after)); err != nil {
			return fmt.Errorf("bot.route: persist adjust: %w", err)
		}
		r.logEvent(ctx, domain.ActivityEvent{
			Type: domain.EventTradeAdjust, MarketID: pos.MarketID, Trader: pos.Trader,
			Outcome: pos.Outcome, SizeUSD: after.SizeUSD, Price: after.EntryPrice,
			Mode: r.cfg.Mode,
		})
	}

	return nil
}

// settleSweep busca posiciones tracked ya resueltas on-chain y las redime
// en un solo batch del relayer.
func (r *Runner) settleSweep(ctx context.Context) error {
	positions, err := r.ledger.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("bot.settleSweep: %w", err)
	}

	// condition id → markets del ledger que dependen de él
	markets := make(map[string][]string)
	var resolved []string
	for _, pos := range positions {
		cid := pos.ConditionID
		if cid == "" || r.settle.Redeemed(cid) {
			continue
		}
		if _, ok := markets[cid]; ok {
			markets[cid] = append(markets[cid], pos.MarketID)
			continue
		}
		markets[cid] = []string{pos.MarketID}
		if r.settle.CheckResolved(ctx, cid).Resolved {
			resolved = append(resolved, cid)
		}
	}
	if len(resolved) == 0 {
		return nil
	}

	result := r.settle.BatchRedeem(ctx, resolved)
	r.recordRedemption(ctx, result)

	// Las posiciones redimidas (aunque sea provisionalmente) salen del
	// ledger: el payout ya no depende de lo que haga el trader copiado
	if result.Success {
		for _, cid := range result.Redeemed {
			for _, marketID := range markets[cid] {
				if err := r.ledger.RemovePosition(ctx, marketID); err != nil {
					return fmt.Errorf("bot.settleSweep: remove claimed: %w", err)
				}
			}
		}
	}
	return nil
}

// orphanSweep redime posiciones resueltas del funder que el bot no trackea.
func (r *Runner) orphanSweep(ctx context.Context) error {
	positions, err := r.ledger.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("bot.orphanSweep: %w", err)
	}
	known := make(map[string]struct{}, len(positions))
	for _, pos := range positions {
		if pos.ConditionID != "" {
			known[pos.ConditionID] = struct{}{}
		}
	}

	r.recordRedemption(ctx, r.settle.DiscoverAndRedeemOrphans(ctx, known))
	return nil
}

// recordRedemption traduce el resultado de un batch al activity log.
func (r *Runner) recordRedemption(ctx context.Context, result domain.RedemptionResult) {
	switch {
	case !result.Success:
		if result.Err != "" {
			slog.Warn("bot: redemption failed", "err", result.Err)
			r.setError(fmt.Errorf("redemption: %s", result.Err))
		}
	case len(result.Redeemed) == 0:
		// nada que redimir este sweep
	case result.Note == "submitted but unconfirmed":
		r.logEvent(ctx, domain.ActivityEvent{
			Type: domain.EventClaimSubmitted, Mode: r.cfg.Mode,
			Details: fmt.Sprintf("%d conditions, tx %s", len(result.Redeemed), result.TxHash),
		})
	default:
		r.logEvent(ctx, domain.ActivityEvent{
			Type: domain.EventClaimConfirmed, Mode: r.cfg.Mode,
			Details: fmt.Sprintf("%d conditions, tx %s", len(result.Redeemed), result.TxHash),
		})
	}
}

// loadTraders refresca la lista de wallets a copiar: API de discovery si hay,
// fallback a la lista manual. Los traders fetched se persisten con source=api.
func (r *Runner) loadTraders(ctx context.Context) error {
	if r.discovery != nil {
		records, err := r.discovery.FetchTraders(ctx)
		if err != nil {
			slog.Warn("bot: trader discovery failed, keeping current list", "err", err)
		} else {
			for _, rec := range records {
				rec.Source = "api"
				rec.Active = true
				if err := r.ledger.AddTrader(ctx, rec); err != nil {
					return fmt.Errorf("bot.loadTraders: persist trader: %w", err)
				}
			}
		}
	}
	for _, addr := range r.cfg.ManualTraders {
		err := r.ledger.AddTrader(ctx, domain.TraderRecord{
			Address: addr, Source: "manual", Active: true,
		})
		if err != nil {
			return fmt.Errorf("bot.loadTraders: persist manual trader: %w", err)
		}
	}

	records, err := r.ledger.GetTraders(ctx, true)
	if err != nil {
		return fmt.Errorf("bot.loadTraders: %w", err)
	}

	addrs := make([]string, 0, len(records))
	for _, rec := range records {
		addrs = append(addrs, rec.Address)
		if r.cfg.MaxTraders > 0 && len(addrs) >= r.cfg.MaxTraders {
			break
		}
	}

	r.mu.Lock()
	r.traders = addrs
	r.mu.Unlock()

	slog.Info("bot: trader list loaded", "count", len(addrs))
	return nil
}

// Stats devuelve el snapshot de estado para reporting. Seguro de llamar
// desde otra goroutine.
func (r *Runner) Stats() domain.BotStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return domain.BotStats{
		Status:       "running",
		Mode:         r.cfg.Mode,
		OpenCount:    r.openCount,
		ExposureUSD:  r.exposureUSD,
		DailyPnL:     r.dailyPnL,
		Traders:      len(r.traders),
		TickCount:    r.ticks,
		LastError:    r.lastError,
		StartedAt:    r.startedAt,
		QuotaLimit:   r.cfg.QuotaLimit,
		QuotaUsed:    r.quotaUsed,
		RedeemedCIDs: r.redeemedCIDs,
	}
}

// TickCount devuelve cuántos ticks completó el loop.
func (r *Runner) TickCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

func (r *Runner) traderList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.traders
}

func (r *Runner) setError(err error) {
	r.mu.Lock()
	r.lastError = err.Error()
	r.mu.Unlock()
}

// logEvent persiste un evento en el activity log; un fallo aquí nunca
// interrumpe el flujo del tick.
func (r *Runner) logEvent(ctx context.Context, e domain.ActivityEvent) {
	if err := r.ledger.LogActivity(ctx, e); err != nil {
		slog.Debug("bot: activity log write failed", "type", e.Type, "err", err)
	}
}
