package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/poolmgr/internal/config"
	"github.com/l1jgo/poolmgr/internal/core/event"
	coresys "github.com/l1jgo/poolmgr/internal/core/system"
	"github.com/l1jgo/poolmgr/internal/data"
	"github.com/l1jgo/poolmgr/internal/persist"
	"github.com/l1jgo/poolmgr/internal/pool"
	"github.com/l1jgo/poolmgr/internal/scripting"
	"github.com/l1jgo/poolmgr/internal/system"
	"github.com/l1jgo/poolmgr/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              poolmgr  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/poolmgr.toml"
	if p := os.Getenv("POOLMGR_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 3. Scene and catalog
	printSection("Catalog")
	scene := world.NewScene()
	catalog, closeCatalog, err := openCatalog(ctx, cfg, scene, log)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer closeCatalog()

	// 4. Optional Lua hooks and metrics
	var opts []pool.Option
	opts = append(opts, pool.WithLogger(log.Named("pool")))
	if cfg.Scripting.Dir != "" {
		luaEngine, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer luaEngine.Close()
		opts = append(opts, pool.WithHooks(luaEngine))
		printOK("Lua hooks loaded")
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		metrics, err := pool.NewMetrics(reg, cfg.Metrics.Namespace)
		if err != nil {
			return err
		}
		opts = append(opts, pool.WithMetrics(metrics))
		srv := serveMetrics(cfg.Metrics.ListenAddress, reg, log)
		defer srv.Close()
	}

	// 5. Pool manager, owned by this composition root
	holder := pool.NewHolder(log)
	mgr := holder.Get(func() *pool.Manager { return pool.New(opts...) })
	warmup := make([]pool.Warmup, 0, len(cfg.Warmup))
	for _, w := range cfg.Warmup {
		warmup = append(warmup, pool.Warmup{Kind: w.Kind, Count: w.Count})
	}
	if err := mgr.Initialize(ctx, catalog, warmup); err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	for _, k := range mgr.Stats().Kinds {
		printStat(k.Kind, k.Spares)
	}
	fmt.Println()

	// 6. Systems
	bus := event.NewBus()
	mgr.Start(bus)
	defer mgr.Close()

	sceneSys := system.NewSceneSystem(scene, bus, log.Named("scene"))
	defer sceneSys.Close()

	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(sceneSys)

	// 7. Tick loop. SIGHUP ends the current round.
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	resetCh := make(chan os.Signal, 1)
	signal.Notify(resetCh, syscall.SIGHUP)

	ticker := time.NewTicker(cfg.Loop.TickRate)
	defer ticker.Stop()

	printSection("Ready")
	printReady(fmt.Sprintf("tick loop running (tick: %s)", cfg.Loop.TickRate))
	fmt.Println()

	round := 1
	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Loop.TickRate)
		case <-resetCh:
			event.Emit(bus, event.RoundEnded{Round: round, Reason: "operator"})
			round++
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			stats := mgr.Stats()
			log.Info("pool stopped", zap.Int("live", stats.Live))
			return nil
		}
	}
}

// openCatalog returns the configured catalog source and a cleanup func.
func openCatalog(ctx context.Context, cfg *config.Config, scene *world.Scene, log *zap.Logger) (pool.Catalog, func(), error) {
	switch cfg.Catalog.Source {
	case config.CatalogPostgres:
		db, err := persist.NewDB(ctx, cfg.Database, log.Named("db"))
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		printOK("PostgreSQL connected")
		if err := persist.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		repo := persist.NewKindRepo(db, scene)
		if cfg.Catalog.Seed != "" {
			n, err := seedKinds(ctx, repo, cfg.Catalog.Seed)
			if err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("seed: %w", err)
			}
			printStat("kinds seeded", n)
		}
		return repo, db.Close, nil
	default:
		c, err := data.LoadCatalog(cfg.Catalog.Path, scene)
		if err != nil {
			return nil, nil, err
		}
		printStat("pool kinds", c.Count())
		return c, func() {}, nil
	}
}

// seedKinds pushes the YAML catalog at path into pool_kinds.
func seedKinds(ctx context.Context, repo *persist.KindRepo, path string) (int, error) {
	c, err := data.LoadCatalog(path, nil)
	if err != nil {
		return 0, err
	}
	rows := persist.KindRowsFromCatalog(c)
	if err := repo.Seed(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()
	printReady(fmt.Sprintf("metrics on %s/metrics", addr))
	return srv
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
