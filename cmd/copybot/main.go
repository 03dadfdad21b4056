package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/polycopy/config"
	"github.com/alejandrodnm/polycopy/internal/adapters/notify"
	"github.com/alejandrodnm/polycopy/internal/adapters/onchain"
	"github.com/alejandrodnm/polycopy/internal/adapters/polymarket"
	"github.com/alejandrodnm/polycopy/internal/adapters/relayer"
	"github.com/alejandrodnm/polycopy/internal/adapters/storage"
	"github.com/alejandrodnm/polycopy/internal/bot"
	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/executor"
	"github.com/alejandrodnm/polycopy/internal/ports"
	"github.com/alejandrodnm/polycopy/internal/settlement"
	"github.com/alejandrodnm/polycopy/internal/tracker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	paper := flag.Bool("paper", false, "force paper trading regardless of config")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "render open positions as a table")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *paper {
		cfg.Bot.PaperTrading = true
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			slog.Error("invalid config", "err", e)
		}
		os.Exit(1)
	}

	mode := domain.ModeLive
	if cfg.Bot.PaperTrading {
		mode = domain.ModePaper
	}

	slog.Info("polycopy starting",
		"config", *configPath,
		"mode", mode,
		"poll_interval", cfg.PollInterval(),
	)

	store, err := storage.NewSQLiteLedger(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Overrides operacionales persistidos: cada campo corrupto se reporta
	settings, settingErrs := bot.LoadSettings(ctx, store, bot.Settings{
		PollInterval: cfg.PollInterval(),
		MaxTraders:   cfg.Bot.MaxTraders,
		PaperTrading: cfg.Bot.PaperTrading,
	})
	for _, e := range settingErrs {
		slog.Warn("ignoring persisted setting", "err", e)
	}
	if *paper {
		settings.PaperTrading = true
	}
	if settings.PaperTrading {
		mode = domain.ModePaper
	}

	var opts []polymarket.Option
	if cfg.API.APIKey != "" {
		opts = append(opts, polymarket.WithLeaderboard(cfg.API.LeaderboardURL, cfg.API.APIKey, settings.MaxTraders))
	}
	client := polymarket.NewClient(cfg.API.DataBase, cfg.API.GammaBase, cfg.API.CLOBBase, opts...)

	var discovery ports.TraderProvider
	if cfg.API.APIKey != "" {
		discovery = client
	}

	var orders ports.OrderExecutor
	if mode == domain.ModeLive {
		orders = client
	}
	exec := executor.New(executor.Config{
		CapitalRatio:           cfg.Risk.CapitalRatio,
		MaxPositionUSD:         cfg.Risk.MaxPositionUSD,
		MaxPositionPct:         cfg.Risk.MaxPositionPct,
		AccountBalanceUSD:      cfg.Risk.AccountBalanceUSD,
		MaxConcurrentPositions: cfg.Risk.MaxConcurrentPositions,
		DailyLossLimitUSD:      cfg.Risk.DailyLossLimitUSD,
		Mode:                   mode,
	}, orders)

	tr := tracker.New(client, client, cfg.WalletDelay())

	// Settlement solo con funder configurado: sin wallet que redimir no hay
	// nada que enviar al relayer
	var settle *settlement.Session
	if cfg.Chain.Funder != "" {
		chain, err := onchain.NewCTFReader(cfg.Chain.RPCURL)
		if err != nil {
			slog.Error("failed to connect to Polygon RPC", "err", err, "url", cfg.Chain.RPCURL)
			os.Exit(1)
		}
		relay := relayer.NewClient(cfg.Chain.RelayerURL, cfg.Chain.Funder, cfg.API.APIKey)
		settle = settlement.NewSession(settlementConfig(cfg), chain, relay, client)
	} else {
		slog.Warn("settlement disabled: chain.funder not configured")
	}

	notifier := notify.NewConsole(*table)

	runner := bot.New(bot.Config{
		PollInterval:   settings.PollInterval,
		ErrorSleep:     errorSleep(cfg),
		RefreshTicks:   cfg.Bot.RefreshTicks,
		SettleTicks:    cfg.Bot.SettleTicks,
		DiscoveryTicks: cfg.Bot.DiscoveryTicks,
		ManualTraders:  cfg.ManualTraderList(),
		MaxTraders:     settings.MaxTraders,
		Mode:           mode,
		QuotaLimit:     cfg.Settlement.DailyTxLimit,
	}, tr, exec, settle, discovery, store, notifier)

	if err := runner.Run(ctx); err != nil {
		slog.Error("bot exited with error", "err", err)
		os.Exit(1)
	}

	// Resumen final para el operador
	positions, err := store.GetPositions(context.Background())
	if err == nil {
		stats := runner.Stats()
		stats.Status = "stopped"
		_ = notifier.NotifyStatus(context.Background(), stats, positions)
	}

	slog.Info("polycopy stopped cleanly")
}

func settlementConfig(cfg *config.Config) settlement.Config {
	return settlement.Config{
		Funder:             cfg.Chain.Funder,
		DailyTxLimit:       cfg.Settlement.DailyTxLimit,
		MinInterval:        time.Duration(cfg.Settlement.MinIntervalSeconds * float64(time.Second)),
		PollAttempts:       cfg.Settlement.PollAttempts,
		PollInterval:       time.Duration(cfg.Settlement.PollIntervalMs) * time.Millisecond,
		DiscoveryMax:       cfg.Settlement.DiscoveryMax,
		DiscoveryThreshold: settlement.DefaultDiscoveryThreshold,
		DustMin:            cfg.Settlement.DustThreshold,
		RPCDelay:           time.Duration(cfg.Settlement.RPCDelayMs) * time.Millisecond,
	}
}

func errorSleep(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Bot.ErrorSleepSeconds) * time.Second
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
