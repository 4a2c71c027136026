package telemetry

import "sync/atomic"

// Collector accumulates lifecycle events within time windows and produces
// WindowStats. Record methods are called concurrently from device workers
// during the lifecycle stage, so every counter is atomic.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks uint64
	dt                  float64

	windowStartTick uint64

	splits          atomic.Int64
	splitsDeferred  atomic.Int64
	splitsCancelled atomic.Int64
	bondsCreated    atomic.Int64
	bondsBroken     atomic.Int64
	bondsDropped    atomic.Int64
	stagedAdmitted  atomic.Int64
	stagedRejected  atomic.Int64
}

// NewCollector creates a stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := uint64(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}
	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordSplit records a completed mitosis.
func (c *Collector) RecordSplit() { c.splits.Add(1) }

// RecordSplitDeferred records a candidate that yielded to a bonded neighbor.
func (c *Collector) RecordSplitDeferred() { c.splitsDeferred.Add(1) }

// RecordSplitCancelled records a split abandoned for lack of capacity.
func (c *Collector) RecordSplitCancelled() { c.splitsCancelled.Add(1) }

// RecordBondCreated records a new adhesion bond.
func (c *Collector) RecordBondCreated() { c.bondsCreated.Add(1) }

// RecordBondBroken records an overstressed bond snapping.
func (c *Collector) RecordBondBroken() { c.bondsBroken.Add(1) }

// RecordBondDropped records a bond lost because a pool or list was full.
func (c *Collector) RecordBondDropped() { c.bondsDropped.Add(1) }

// RecordStagedAdmitted records an externally staged cell entering the world.
func (c *Collector) RecordStagedAdmitted() { c.stagedAdmitted.Add(1) }

// RecordStagedRejected records a staged cell refused at full capacity.
func (c *Collector) RecordStagedRejected() { c.stagedRejected.Add(1) }

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// cellsLive and bondsLive are the population counts at window end.
func (c *Collector) Flush(currentTick uint64, cellsLive, bondsLive int) WindowStats {
	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,
		Cells:           cellsLive,
		Bonds:           bondsLive,
		Splits:          int(c.splits.Swap(0)),
		SplitsDeferred:  int(c.splitsDeferred.Swap(0)),
		SplitsCancelled: int(c.splitsCancelled.Swap(0)),
		BondsCreated:    int(c.bondsCreated.Swap(0)),
		BondsBroken:     int(c.bondsBroken.Swap(0)),
		BondsDropped:    int(c.bondsDropped.Swap(0)),
		StagedAdmitted:  int(c.stagedAdmitted.Swap(0)),
		StagedRejected:  int(c.stagedRejected.Swap(0)),
	}
	if c.windowDurationSec > 0 {
		stats.SplitRate = float64(stats.Splits) / c.windowDurationSec
	}
	c.windowStartTick = currentTick
	return stats
}

// Reset clears all counters and restarts the window at tick zero.
func (c *Collector) Reset() {
	c.splits.Store(0)
	c.splitsDeferred.Store(0)
	c.splitsCancelled.Store(0)
	c.bondsCreated.Store(0)
	c.bondsBroken.Store(0)
	c.bondsDropped.Store(0)
	c.stagedAdmitted.Store(0)
	c.stagedRejected.Store(0)
	c.windowStartTick = 0
}
