package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pthm-cable/broth/brain"
	"github.com/pthm-cable/broth/config"
	"github.com/pthm-cable/broth/sim"
	"github.com/pthm-cable/broth/statefeed"
	"github.com/pthm-cable/broth/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	brainAddr := flag.String("brain", "", "Decision service address (empty = use config)")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot (empty = use config)")
	storePath := flag.String("store", "", "SQLite run store path (empty = use config)")
	feedAddr := flag.String("feed", "", "WebSocket state feed listen address (empty = use config)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	realtime := flag.Bool("realtime", false, "Pace ticks to wall-clock dt instead of running flat out")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// CLI flags override the loaded config
	if *brainAddr != "" {
		cfg.Brain.Addr = *brainAddr
	}
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}
	if *outputDir != "" {
		cfg.Telemetry.CSVDir = *outputDir
	}
	if *storePath != "" {
		cfg.Telemetry.SQLitePath = *storePath
	}
	if *feedAddr != "" {
		cfg.StateFeed.Addr = *feedAddr
	}

	log, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	if err := run(cfg, log, rngSeed, *maxTicks, *realtime); err != nil {
		log.Fatal("run failed", zap.Error(err))
	}
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("logging level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

func run(cfg *config.Config, log *zap.Logger, rngSeed int64, maxTicks int64, realtime bool) error {
	client, err := brain.Dial(cfg.Brain.Addr, brain.Encoding(cfg.Brain.Encoding), cfg.Brain.DialTimeout, log)
	if err != nil {
		return fmt.Errorf("dial decision service: %w", err)
	}
	defer client.Close()

	out, err := telemetry.NewOutputManager(cfg.Telemetry.CSVDir)
	if err != nil {
		return fmt.Errorf("open output dir: %w", err)
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		return fmt.Errorf("write config snapshot: %w", err)
	}

	configYAML, err := cfg.YAML()
	if err != nil {
		return err
	}
	store, err := telemetry.OpenStore(cfg.Telemetry.SQLitePath, string(configYAML))
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer store.Close()

	var feed *statefeed.Feed
	if cfg.StateFeed.Addr != "" {
		feed = statefeed.New(cfg.StateFeed.Addr, log)
		feed.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			feed.Shutdown(shutdownCtx)
		}()
	}

	rng := rand.New(rand.NewSource(rngSeed))
	world := sim.New(cfg, client, rng, log)

	collector := telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Sim.DT)
	perf := telemetry.NewPerfCollector(int(collector.WindowDurationTicks()))
	tracker := telemetry.NewLifetimeTracker()
	world.SetPhaseTimer(perf)

	world.Populate()

	log.Info("starting simulation",
		zap.Int64("seed", rngSeed),
		zap.Int64("max_ticks", maxTicks),
		zap.Bool("realtime", realtime),
		zap.String("brain_addr", cfg.Brain.Addr),
		zap.Int("creatures", world.CreatureCount()),
		zap.Int("plants", world.PlantCount()),
	)
	if store != nil {
		log.Info("run store opened", zap.String("run_id", store.RunID()))
	}

	// How many ticks fit between state feed broadcasts.
	feedEvery := int64(1)
	if feed != nil && cfg.StateFeed.Interval > 0 {
		feedEvery = int64(cfg.StateFeed.Interval.Seconds() / cfg.Sim.DT)
		if feedEvery < 1 {
			feedEvery = 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ticker *time.Ticker
	if realtime {
		ticker = time.NewTicker(time.Duration(cfg.Sim.DT * float64(time.Second)))
		defer ticker.Stop()
	}

loop:
	for {
		if realtime {
			select {
			case <-ctx.Done():
				log.Info("shutdown signal received", zap.Int64("tick", world.Tick()))
				break loop
			case <-ticker.C:
			}
		} else {
			select {
			case <-ctx.Done():
				log.Info("shutdown signal received", zap.Int64("tick", world.Tick()))
				break loop
			default:
			}
		}

		perf.StartTick()
		ev := world.Step()
		collector.Record(ev)
		tick := world.Tick()

		perf.StartPhase(telemetry.PhaseTelemetry)
		if collector.ShouldFlush(tick) {
			view := world.View()
			tracker.Observe(view)
			stats := collector.Flush(view)
			log.Info("window stats", zap.Object("stats", stats))
			if err := out.WriteTelemetry(stats); err != nil {
				log.Warn("write telemetry", zap.Error(err))
			}
			if err := out.WritePerf(perf.Stats(), stats.WindowEndTick); err != nil {
				log.Warn("write perf", zap.Error(err))
			}
			if err := store.SaveWindow(stats); err != nil {
				log.Warn("save window", zap.Error(err))
			}
			for _, lt := range tracker.Completed() {
				log.Debug("creature lifetime",
					zap.Int64("id", lt.ID),
					zap.String("diet", lt.Diet),
					zap.Float64("survival_sec", lt.SurvivalTimeSec),
					zap.Float64("peak_energy", lt.PeakEnergy),
				)
			}
		}

		if feed != nil && tick%feedEvery == 0 {
			perf.StartPhase(telemetry.PhaseStateFeed)
			feed.Broadcast(world.View())
		}
		perf.EndTick()

		if maxTicks > 0 && tick >= maxTicks {
			log.Info("max ticks reached", zap.Int64("tick", tick))
			break
		}
		if world.CreatureCount() == 0 {
			log.Info("population extinct", zap.Int64("tick", tick))
			break
		}
	}

	// Let in-flight brain calls finish before tearing down the connection.
	world.Wait()
	log.Info("simulation stopped", zap.Int64("tick", world.Tick()))
	return nil
}
