// tracer.go — Capture controller for composition-event tracing.
// Tracer owns the enabled state, the capture flags, the byte budget, and the
// bounded entry buffer. One mutex serializes every public operation, so
// concurrent producer and control-plane callers are totally ordered and no
// caller observes partially-updated state. File and stream writes happen under
// the lock; a slow sink stalls the producer's next Notify, which is the
// accepted trade for snapshot atomicity.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/frametrace/frametrace/internal/buffers"
	"github.com/frametrace/frametrace/internal/envelope"
)

// DefaultBufferSizeBytes is the byte budget used when the control plane never
// configures one.
const DefaultBufferSizeBytes int64 = 20 * 1024 * 1024

// Tracer records one Entry per composition event into a byte-bounded FIFO
// buffer and persists the buffer on demand. The zero value is not usable;
// construct with New.
type Tracer struct {
	mu sync.Mutex

	enabled bool
	flags   Flags

	// bufferSizeBytes is the pending budget; it takes effect at the next
	// Enable, never retroactively.
	bufferSizeBytes int64

	// buffer is protected by mu (no separate lock).
	buffer *buffers.Bounded[record]
}

// New creates a disabled tracer with the default buffer budget.
func New() *Tracer {
	return &Tracer{
		bufferSizeBytes: DefaultBufferSizeBytes,
		buffer: buffers.NewBounded(func(r record) int64 {
			return int64(len(r.frame))
		}),
	}
}

// Enable turns tracing on, applying the configured byte budget to the buffer.
// Returns false if tracing was already enabled; the re-enable attempt is
// rejected and existing buffer contents are preserved.
func (t *Tracer) Enable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled {
		return false
	}
	t.buffer.Resize(t.bufferSizeBytes)
	t.enabled = true
	return true
}

// Disable turns tracing off. When writeToFile is set, current contents are
// written to path first. The buffer is cleared regardless of write success —
// a failed write does not preserve data for retry. Returns false with no I/O
// when tracing was already disabled.
func (t *Tracer) Disable(path string, writeToFile bool) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return false, nil
	}
	t.enabled = false
	var err error
	if writeToFile {
		err = t.writeFileLocked(path)
	}
	t.buffer.Clear()
	return true, err
}

// SnapshotToFile writes current contents plus a header to path without
// clearing the buffer. When tracing is disabled it returns (false, nil) —
// nothing to snapshot — and touches neither the buffer nor the file.
func (t *Tracer) SnapshotToFile(path string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return false, nil
	}
	return true, t.writeFileLocked(path)
}

// AppendToStream writes a header plus current contents to an already-open
// stream, then clears the buffer. Meaningful whether or not tracing is
// enabled: repeated calls drain a long-lived session into one growing file,
// and a call with an empty buffer writes a valid zero-entry segment. The
// stream's lifecycle belongs to the caller.
func (t *Tracer) AppendToStream(w io.Writer) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.writeLocked(w)
	t.buffer.Clear()
	return err
}

// Notify records one composition event. Called by the producer once per
// frame; returns without touching the buffer when tracing is disabled, or
// when dirty is false and the always-capture flag is unset.
//
// Payload and displays are transferred, not copied: on capture their contents
// are swapped into the entry and the caller's slices are left nil, so the
// producer cannot retain a live reference to captured data. When the call is
// filtered out the caller's slices are untouched.
func (t *Tracer) Notify(dirty bool, elapsedTimeNanos, vsyncID int64, payload *[]byte, hwcText string, displays *[][]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	if !dirty && !t.flags.AlwaysCapture {
		return
	}

	e := Entry{
		ElapsedTimeNanos: elapsedTimeNanos,
		VsyncID:          vsyncID,
		Reason:           ReasonBufferLatched,
	}
	if dirty {
		e.Reason = ReasonStateDirty
	}
	if payload != nil {
		e.Payload, *payload = *payload, nil
	}
	if t.flags.IncludeHwcText {
		e.HwcText = hwcText
	}
	if !t.flags.IncludeCompositionState {
		e.ExcludesCompositionState = true
	}
	if displays != nil {
		e.Displays, *displays = *displays, nil
	}

	frame, err := encodeEntry(e)
	if err != nil {
		// Entries hold only plain fields and byte slices; encoding cannot
		// fail for them. Drop rather than corrupt the stream.
		return
	}
	t.buffer.Append(record{entry: e, frame: frame})
}

// SetFlags replaces the capture flags. Applied per entry at capture time,
// never retroactively to entries already buffered.
func (t *Tracer) SetFlags(f Flags) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flags = f
}

// Flags returns the current capture flags.
func (t *Tracer) Flags() Flags {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags
}

// SetBufferSize stores the byte budget applied at the next Enable. A running
// trace keeps its current budget.
func (t *Tracer) SetBufferSize(bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bufferSizeBytes = bytes
}

// IsEnabled reports whether tracing is currently on.
func (t *Tracer) IsEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Summarize returns the buffer's diagnostic counters.
func (t *Tracer) Summarize() buffers.Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buffer.Summarize()
}

// Describe reports tracing state and a buffer summary for operator dumps.
func (t *Tracer) Describe() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := "disabled"
	if t.enabled {
		state = "enabled"
	}
	s := t.buffer.Summarize()
	return fmt.Sprintf("Tracing state: %s\nBuffer: %d entries, %d / %d bytes",
		state, s.Count, s.UsedBytes, s.BudgetBytes)
}

// writeLocked serializes a header followed by every buffered entry in
// insertion order. Caller holds mu.
func (t *Tracer) writeLocked(w io.Writer) error {
	hdr := envelope.Build(envelope.ClockOffsetNanos())
	if err := envelope.WriteHeader(w, hdr); err != nil {
		return fmt.Errorf("write trace header: %w", err)
	}
	for _, rec := range t.buffer.Entries() {
		if err := envelope.WriteEntry(w, rec.frame); err != nil {
			return fmt.Errorf("write trace entry: %w", err)
		}
	}
	return nil
}

// writeFileLocked creates path and serializes current contents into it.
// Caller holds mu.
func (t *Tracer) writeFileLocked(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace file: %w", err)
	}
	w := bufio.NewWriter(f)
	werr := t.writeLocked(w)
	if err := w.Flush(); werr == nil {
		werr = err
	}
	if err := f.Close(); werr == nil {
		werr = err
	}
	return werr
}
