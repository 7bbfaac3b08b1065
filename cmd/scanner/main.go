package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/polyclaw/config"
	"github.com/alejandrodnm/polyclaw/internal/adapters/executor"
	"github.com/alejandrodnm/polyclaw/internal/adapters/llm"
	"github.com/alejandrodnm/polyclaw/internal/adapters/news"
	"github.com/alejandrodnm/polyclaw/internal/adapters/notify"
	"github.com/alejandrodnm/polyclaw/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyclaw/internal/adapters/storage"
	"github.com/alejandrodnm/polyclaw/internal/arena"
	"github.com/alejandrodnm/polyclaw/internal/domain"
	"github.com/alejandrodnm/polyclaw/internal/ports"
	"github.com/alejandrodnm/polyclaw/internal/risk"
	"github.com/alejandrodnm/polyclaw/internal/scanner"
	signalpkg "github.com/alejandrodnm/polyclaw/internal/signal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)
	log := slog.Default()

	slog.Info("polyclaw starting",
		"config", *configPath,
		"interval", cfg.ScanInterval(),
		"once", *once,
		"live", cfg.Trading.LiveEnabled,
		"llm", cfg.LLM.Enabled,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)
	cache := polymarket.NewMarketCache(client, cfg.MarketCacheTTL())

	var analyzer ports.LLMAnalyzer
	if cfg.LLM.Enabled {
		analyzer = llm.New(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, log)
	}

	var notifier ports.Notifier = notify.NewConsole()
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewMulti(notifier, notify.NewWebhook(cfg.Notify.WebhookURL, log))
	}

	// La estrategia espejo siempre tiene ejecutor: real con credenciales,
	// simulado sin ellas. Mismo camino de órdenes en ambos modos.
	var mirrorExec ports.OrderExecutor = executor.NewPaper(cfg.Trading.Bankroll)
	if cfg.Trading.LiveEnabled {
		auth, err := polymarket.NewAuthClient(cfg.API.CLOBBase, cfg.API.GammaBase, polymarket.Credentials{
			Address:    cfg.API.WalletAddress,
			APIKey:     cfg.API.CLOBKey,
			Secret:     cfg.API.CLOBSecret,
			Passphrase: cfg.API.CLOBPassphrase,
		})
		if err != nil {
			slog.Error("failed to build clob auth client", "err", err)
			os.Exit(1)
		}
		mirrorExec = executor.NewLive(auth, log)
	}

	cooldown := time.Duration(cfg.Scanner.CooldownHours * float64(time.Hour))

	ar := arena.New(arena.Options{
		Strategies:     buildStrategies(cfg),
		Bankroll:       cfg.Trading.Bankroll,
		DailyLossLimit: cfg.Risk.DailyLossLimit,
		Cooldown:       cooldown,
		MaxOrderSize:   cfg.Trading.MaxOrderSize,
		FeeRate:        cfg.Trading.FeeRateDefault,
		SpreadCost:     cfg.Trading.SpreadCostDefault,
		LiveStrategy:   cfg.Trading.LiveStrategy,
		LiveExecutor:   mirrorExec,
	}, store, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := ar.Restore(ctx); err != nil {
		slog.Error("failed to restore open positions", "err", err)
		os.Exit(1)
	}

	scanCfg := scanner.Config{
		ScanInterval:     cfg.ScanInterval(),
		SourceTimeout:    cfg.SourceTimeout(),
		Workers:          cfg.Scanner.Workers,
		MaxAlertsPerHour: cfg.Scanner.MaxAlertsPerHour,
		AlertCooldown:    cooldown,
		Once:             *once,
	}

	s := scanner.New(
		scanCfg,
		news.NewProviders(news.DefaultFeeds(), log),
		news.NewKeywordMatcher(log),
		cache,
		analyzer,
		signalAggregator(log),
		ar,
		store,
		notifier,
		risk.NewBreaker(cfg.Risk.MaxConsecutiveFails, log),
		log,
	)

	if err := s.Run(ctx); err != nil {
		slog.Error("scanner exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("polyclaw stopped cleanly")
}

// buildStrategies parte del set estático y aplica los límites globales de
// la config: el cap de posiciones abiertas recorta a todas, y baseline
// toma min_edge/ai_discount de la config para poder calibrarla sin tocar
// las demás.
func buildStrategies(cfg *config.Config) []domain.StrategyConfig {
	strategies := domain.DefaultStrategies()
	for i := range strategies {
		if strategies[i].MaxOpen > cfg.Risk.MaxOpenPositions {
			strategies[i].MaxOpen = cfg.Risk.MaxOpenPositions
		}
		if strategies[i].Name == cfg.Trading.LiveStrategy {
			strategies[i].MinEdge = cfg.Trading.MinEdge
			strategies[i].AIDiscount = cfg.Trading.AIDiscount
		}
	}
	return strategies
}

func signalAggregator(log *slog.Logger) *signalpkg.Aggregator {
	return signalpkg.New(signalpkg.DefaultConfig(), log)
}

func setupLogger(cfg config.Log) {
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
