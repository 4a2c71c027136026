package telemetry

import "log/slog"

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population counts at window end
	Cells int `csv:"cells"`
	Bonds int `csv:"bonds"`

	// Events during window
	Splits          int     `csv:"splits"`
	SplitsDeferred  int     `csv:"splits_deferred"`
	SplitsCancelled int     `csv:"splits_cancelled"`
	BondsCreated    int     `csv:"bonds_created"`
	BondsBroken     int     `csv:"bonds_broken"`
	BondsDropped    int     `csv:"bonds_dropped"`
	StagedAdmitted  int     `csv:"staged_admitted"`
	StagedRejected  int     `csv:"staged_rejected"`
	SplitRate       float64 `csv:"split_rate"`
}

// LogStats logs the window using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"tick", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"cells", s.Cells,
		"bonds", s.Bonds,
		"splits", s.Splits,
		"splits_deferred", s.SplitsDeferred,
		"splits_cancelled", s.SplitsCancelled,
		"bonds_created", s.BondsCreated,
		"bonds_broken", s.BondsBroken,
		"bonds_dropped", s.BondsDropped,
		"staged_admitted", s.StagedAdmitted,
		"staged_rejected", s.StagedRejected,
		"split_rate", s.SplitRate,
	)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("cells", s.Cells),
		slog.Int("bonds", s.Bonds),
		slog.Int("splits", s.Splits),
		slog.Int("splits_deferred", s.SplitsDeferred),
		slog.Int("splits_cancelled", s.SplitsCancelled),
		slog.Int("bonds_created", s.BondsCreated),
		slog.Int("bonds_broken", s.BondsBroken),
		slog.Int("bonds_dropped", s.BondsDropped),
		slog.Int("staged_admitted", s.StagedAdmitted),
		slog.Int("staged_rejected", s.StagedRejected),
		slog.Float64("split_rate", s.SplitRate),
	)
}
