// entry.go — Captured event record and its serialized form.
package trace

import "encoding/json"

// Reason tags what triggered an entry's capture.
type Reason string

const (
	// ReasonStateDirty marks entries captured because visible state changed.
	ReasonStateDirty Reason = "state-dirty"
	// ReasonBufferLatched marks entries captured on a plain buffer latch,
	// recorded only when the always-capture flag is set.
	ReasonBufferLatched Reason = "buffer-latched"
)

// Entry is one captured composition event. Once appended to the buffer an
// entry is immutable until it is evicted or consumed. Payload and Displays are
// opaque blobs transferred from the producer; the tracer never inspects them.
type Entry struct {
	ElapsedTimeNanos int64  `json:"elapsed_time_nanos"`
	VsyncID          int64  `json:"vsync_id"`
	Reason           Reason `json:"reason"`
	Payload          []byte `json:"payload,omitempty"`
	HwcText          string `json:"hwc_text,omitempty"`

	// ExcludesCompositionState is true when the composition-state flag was
	// off at capture time, telling downstream consumers that part of the
	// payload is intentionally omitted.
	ExcludesCompositionState bool `json:"excludes_composition_state,omitempty"`

	Displays [][]byte `json:"displays,omitempty"`
}

// record pairs an entry with its serialized frame. The frame is encoded once
// at capture time so eviction accounting and persistence never re-serialize.
type record struct {
	entry Entry
	frame []byte
}

// encodeEntry serializes an entry into its on-wire JSON document. The frame
// length is the entry's byte size for budget accounting.
func encodeEntry(e Entry) ([]byte, error) {
	return json.Marshal(e)
}
