package engine

import "sync/atomic"

// ChildCell is a mitosis product waiting for admission: the record plus the
// destination slot the lifecycle kernel already reserved for it.
type ChildCell struct {
	Slot int32
	Cell Cell
}

// IngestionQueue merges the two sources of new cells. Externally authored
// cells accumulate in a host-side staging slice and are admitted in one
// batch at the start of the tick. Mitosis children are written by device
// workers into a bounded addition buffer during the lifecycle stage and
// applied at the end of the tick.
type IngestionQueue struct {
	staging []Cell

	additions []ChildCell
	pending   atomic.Int32
}

// NewIngestionQueue creates a queue with the given addition-buffer length.
func NewIngestionQueue(additionSlots int) *IngestionQueue {
	return &IngestionQueue{
		staging:   make([]Cell, 0, 64),
		additions: make([]ChildCell, additionSlots),
	}
}

// Stage appends an externally authored cell for the next admission pass.
// The radius (mass) is forced to 1 for every cell.
func (q *IngestionQueue) Stage(c Cell) {
	c.Mass = 1.0
	q.staging = append(q.staging, c)
}

// StagedCount returns the number of cells waiting for admission.
func (q *IngestionQueue) StagedCount() int { return len(q.staging) }

// TakeStaged returns the staged batch and resets the staging slice.
func (q *IngestionQueue) TakeStaged() []Cell {
	batch := q.staging
	q.staging = q.staging[:0]
	return batch
}

// ReserveChild claims an addition-buffer entry from a device worker.
// Reserve before performing any side effects of a split so that a full
// buffer cancels the split cleanly instead of corrupting it.
func (q *IngestionQueue) ReserveChild() (idx int32, ok bool) {
	n := q.pending.Add(1)
	if int(n) > len(q.additions) {
		q.pending.Add(-1)
		return 0, false
	}
	return n - 1, true
}

// CommitChild fills a reserved entry.
func (q *IngestionQueue) CommitChild(idx, slot int32, c Cell) {
	q.additions[idx] = ChildCell{Slot: slot, Cell: c}
}

// Pending returns the number of committed additions this tick.
func (q *IngestionQueue) Pending() int { return int(q.pending.Load()) }

// Additions returns the pending addition entries.
func (q *IngestionQueue) Additions() []ChildCell {
	return q.additions[:q.pending.Load()]
}

// ResetPending zeroes the pending counter after the additions have been
// applied.
func (q *IngestionQueue) ResetPending() { q.pending.Store(0) }

// Reset discards all staged and pending entries.
func (q *IngestionQueue) Reset() {
	q.staging = q.staging[:0]
	for i := range q.additions {
		q.additions[i] = ChildCell{}
	}
	q.pending.Store(0)
}
