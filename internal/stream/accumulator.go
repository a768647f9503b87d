package stream

// Accumulator owns the running result total across chunks of one request.
// Chunks are processed sequentially, so there is exactly one writer and the
// type needs no locking. Results, once merged, are never removed or
// reordered: clients observe a strictly non-decreasing, order-stable list.
type Accumulator struct {
	running []ResultItem
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Merge appends a chunk's finalized results to the running total. Called
// exactly once per chunk, after its stream reaches done.
func (a *Accumulator) Merge(chunkResults []ResultItem) {
	a.running = append(a.running, chunkResults...)
}

// Snapshot returns the running total followed by the in-progress chunk's
// partial results, as a fresh slice safe to serialize while the next delta
// is processed.
func (a *Accumulator) Snapshot(partial []ResultItem) []ResultItem {
	merged := make([]ResultItem, 0, len(a.running)+len(partial))
	merged = append(merged, a.running...)
	merged = append(merged, partial...)
	return merged
}

// Results returns the finalized running total
func (a *Accumulator) Results() []ResultItem {
	return a.running
}
