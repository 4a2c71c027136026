package telemetry

import (
	"sync"
	"testing"
)

func TestCollector_FlushResetsCounters(t *testing.T) {
	c := NewCollector(1.0, 0.1) // 10-tick window

	c.RecordSplit()
	c.RecordSplit()
	c.RecordSplitDeferred()
	c.RecordBondCreated()
	c.RecordBondBroken()
	c.RecordStagedAdmitted()
	c.RecordStagedRejected()

	stats := c.Flush(10, 42, 7)

	if stats.Splits != 2 || stats.SplitsDeferred != 1 {
		t.Errorf("splits = %d deferred = %d, want 2/1", stats.Splits, stats.SplitsDeferred)
	}
	if stats.BondsCreated != 1 || stats.BondsBroken != 1 {
		t.Errorf("bonds created = %d broken = %d, want 1/1", stats.BondsCreated, stats.BondsBroken)
	}
	if stats.StagedAdmitted != 1 || stats.StagedRejected != 1 {
		t.Errorf("staged = %d/%d, want 1/1", stats.StagedAdmitted, stats.StagedRejected)
	}
	if stats.Cells != 42 || stats.Bonds != 7 {
		t.Errorf("populations = %d/%d, want 42/7", stats.Cells, stats.Bonds)
	}
	if stats.SplitRate != 2.0 {
		t.Errorf("split rate = %v, want 2.0 per second", stats.SplitRate)
	}

	// A second flush sees only events recorded after the first.
	stats = c.Flush(20, 42, 7)
	if stats.Splits != 0 || stats.BondsCreated != 0 {
		t.Errorf("second flush = %+v, want zero event counts", stats)
	}
	if stats.WindowStartTick != 10 || stats.WindowEndTick != 20 {
		t.Errorf("window = [%d, %d], want [10, 20]", stats.WindowStartTick, stats.WindowEndTick)
	}
}

func TestCollector_ShouldFlush(t *testing.T) {
	c := NewCollector(1.0, 0.1) // 10-tick window

	if c.ShouldFlush(9) {
		t.Error("ShouldFlush(9) = true before window elapsed")
	}
	if !c.ShouldFlush(10) {
		t.Error("ShouldFlush(10) = false at window boundary")
	}

	c.Flush(10, 0, 0)
	if c.ShouldFlush(19) {
		t.Error("ShouldFlush(19) = true immediately after flush")
	}
	if !c.ShouldFlush(20) {
		t.Error("ShouldFlush(20) = false a full window after flush")
	}
}

func TestCollector_WindowNeverShorterThanOneTick(t *testing.T) {
	c := NewCollector(0.001, 1.0) // sub-tick window clamps to one tick
	if !c.ShouldFlush(1) {
		t.Error("clamped window should flush every tick")
	}
}

func TestCollector_ConcurrentRecords(t *testing.T) {
	c := NewCollector(1.0, 0.1)

	const workers = 8
	const perWorker = 1000
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				c.RecordSplit()
			}
		}()
	}
	wg.Wait()

	stats := c.Flush(10, 0, 0)
	if stats.Splits != workers*perWorker {
		t.Errorf("splits = %d, want %d", stats.Splits, workers*perWorker)
	}
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector(1.0, 0.1)
	c.Flush(10, 0, 0)
	c.RecordSplit()

	c.Reset()

	stats := c.Flush(10, 0, 0)
	if stats.Splits != 0 {
		t.Errorf("splits after reset = %d, want 0", stats.Splits)
	}
	if stats.WindowStartTick != 0 {
		t.Errorf("window start after reset = %d, want 0", stats.WindowStartTick)
	}
}
