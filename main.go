package main

import (
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/pthm-cable/cytoplasm/config"
	"github.com/pthm-cable/cytoplasm/engine"
	"github.com/pthm-cable/cytoplasm/genome"
	"github.com/pthm-cable/cytoplasm/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	genomePath := flag.String("genome", "", "Path to genome.yaml (empty = built-in stem genome)")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	spawn := flag.Int("spawn", 0, "Scatter N extra mode-0 cells at startup")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update batch")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(rngSeed))

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	gen, err := loadGenome(*genomePath)
	if err != nil {
		slog.Error("failed to load genome", "error", err)
		os.Exit(1)
	}

	sim, err := engine.New(cfg, gen.Modes)
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}
	defer sim.Close()

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	// Seed the initial population from the genome, plus an optional
	// scattered cluster.
	for _, s := range gen.Seeds {
		c := engine.NewCell(s.Mode)
		c.Position = s.Position
		c.Age = s.Age
		sim.Stage(c)
	}
	if *spawn > 0 {
		sim.SpawnCluster(rng, *spawn, 0)
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"modes", len(gen.Modes),
		"seeds", len(gen.Seeds),
		"spawn", *spawn,
		"max_ticks", *maxTicks,
		"steps_per_update", *stepsPerUpdate,
	)

	collector := sim.Collector()
	for {
		for i := 0; i < *stepsPerUpdate; i++ {
			sim.Step()
		}

		if collector.ShouldFlush(sim.Tick()) {
			counters := sim.Counters()
			stats := collector.Flush(sim.Tick(), counters.CellsLive, counters.BondsLive)
			perfStats := sim.Perf().Stats()

			if *logStats {
				stats.LogStats()
				perfStats.LogStats()
			}
			if err := output.WriteTelemetry(stats); err != nil {
				slog.Error("telemetry write failed", "error", err)
			}
			if err := output.WritePerf(perfStats, sim.Tick()); err != nil {
				slog.Error("perf write failed", "error", err)
			}
		}

		if *maxTicks > 0 && int(sim.Tick()) >= *maxTicks {
			counters := sim.Counters()
			slog.Info("max ticks reached",
				"tick", sim.Tick(),
				"cells", counters.CellsLive,
				"bonds", counters.BondsLive,
			)
			return
		}
	}
}

func loadGenome(path string) (*genome.Genome, error) {
	if path == "" {
		return genome.Default(), nil
	}
	return genome.Load(path)
}
