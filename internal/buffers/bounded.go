// bounded.go — Generic byte-budget FIFO buffer.
// Holds an ordered sequence of entries bounded by total serialized byte size,
// evicting oldest-first whenever an append would exceed the budget.
// Not self-synchronized: the owning controller guards it with its own mutex
// (same convention as sub-structs protected by a parent lock).
package buffers

// Summary is a read-only diagnostic snapshot of a buffer.
type Summary struct {
	Count       int   `json:"count"`
	UsedBytes   int64 `json:"used_bytes"`
	BudgetBytes int64 `json:"budget_bytes"`
}

// Bounded is a FIFO buffer bounded by total byte size rather than entry count.
// Entry sizes are computed once at append time by the sizeOf function and kept
// in a parallel slice so eviction never re-measures an entry.
//
// Invariants:
//  1. used == sum(sizes) at all times.
//  2. After Append, used <= budget unless the buffer holds exactly one entry
//     whose own size exceeds the budget (oversized entries are accepted and
//     allowed to transiently overflow — see Append).
//  3. Insertion order is preserved among surviving entries.
type Bounded[T any] struct {
	entries []T
	sizes   []int64 // parallel slice: serialized size of entries[i]
	used    int64
	budget  int64
	sizeOf  func(T) int64
}

// NewBounded creates an empty buffer with a zero budget. Callers set the
// budget with Resize before the first Append.
func NewBounded[T any](sizeOf func(T) int64) *Bounded[T] {
	return &Bounded[T]{sizeOf: sizeOf}
}

// Resize sets the byte budget. If the buffer currently holds more than the new
// budget allows, oldest entries are evicted until the invariant holds again.
// The controller only resizes an empty buffer, but Resize stays safe for
// populated buffers regardless of caller discipline.
func (b *Bounded[T]) Resize(budgetBytes int64) int {
	b.budget = budgetBytes
	evicted := 0
	for b.used > b.budget && len(b.entries) > 0 {
		b.evictFront()
		evicted++
	}
	return evicted
}

// Append adds an entry to the back, evicting from the front until it fits.
// An entry larger than the whole budget first empties the buffer and is then
// appended anyway, leaving the buffer over budget by exactly that one entry
// until the next append evicts it. Returns the number of entries evicted.
func (b *Bounded[T]) Append(entry T) int {
	size := b.sizeOf(entry)
	evicted := 0
	for b.used+size > b.budget && len(b.entries) > 0 {
		b.evictFront()
		evicted++
	}
	b.entries = append(b.entries, entry)
	b.sizes = append(b.sizes, size)
	b.used += size
	return evicted
}

// evictFront drops the oldest entry and its size accounting.
func (b *Bounded[T]) evictFront() {
	var zero T
	b.used -= b.sizes[0]
	b.entries[0] = zero // release payload references held by the evicted entry
	b.entries = b.entries[1:]
	b.sizes = b.sizes[1:]
	if len(b.entries) == 0 {
		// Reset backing arrays so the slices stop pinning evicted tails.
		b.entries = nil
		b.sizes = nil
	}
}

// Entries returns the held entries oldest-first. The returned slice is a copy;
// the entries themselves are shared and must be treated as immutable.
func (b *Bounded[T]) Entries() []T {
	if len(b.entries) == 0 {
		return nil
	}
	out := make([]T, len(b.entries))
	copy(out, b.entries)
	return out
}

// Clear drops every entry and resets byte accounting.
func (b *Bounded[T]) Clear() {
	b.entries = nil
	b.sizes = nil
	b.used = 0
}

// Len returns the number of entries currently held.
func (b *Bounded[T]) Len() int { return len(b.entries) }

// Used returns the total serialized byte size currently held.
func (b *Bounded[T]) Used() int64 { return b.used }

// Budget returns the configured byte budget.
func (b *Bounded[T]) Budget() int64 { return b.budget }

// Summarize returns a read-only diagnostic snapshot.
func (b *Bounded[T]) Summarize() Summary {
	return Summary{Count: len(b.entries), UsedBytes: b.used, BudgetBytes: b.budget}
}
