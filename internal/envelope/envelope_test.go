// envelope_test.go — Tests for header build, record framing, and stream decode.

package envelope

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"
)

func TestMagicSpellsFormatName(t *testing.T) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], MagicNumber)
	if got := string(buf[:]); got != "FRMTRACE" {
		t.Fatalf("magic bytes = %q, want FRMTRACE", got)
	}
}

func TestBuildCarriesOffset(t *testing.T) {
	h := Build(12345)
	if h.Magic != MagicNumber {
		t.Fatalf("magic = %#x, want %#x", h.Magic, MagicNumber)
	}
	if h.RealToElapsedOffsetNanos != 12345 {
		t.Fatalf("offset = %d, want 12345", h.RealToElapsedOffsetNanos)
	}
}

func TestClockOffsetPlausible(t *testing.T) {
	// Realtime is far ahead of any monotonic clock, so the offset should be
	// large and roughly stable across two samples.
	a := ClockOffsetNanos()
	b := ClockOffsetNanos()
	if a <= 0 {
		t.Fatalf("offset = %d, want > 0", a)
	}
	if diff := b - a; diff < -int64(time.Second) || diff > int64(time.Second) {
		t.Fatalf("offset drifted %d ns between samples", diff)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	h := Build(-987654321)
	if err := WriteHeader(&buf, h); err != nil {
		t.Fatalf("write header: %v", err)
	}

	rec, err := NewReader(&buf).Next()
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if rec.Kind != KindHeader {
		t.Fatalf("kind = %v, want header", rec.Kind)
	}
	if rec.Header != h {
		t.Fatalf("header = %+v, want %+v", rec.Header, h)
	}
}

func TestStreamDecodeMultiSegment(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHeader(&buf, Build(1)); err != nil {
		t.Fatal(err)
	}
	if err := WriteEntry(&buf, []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := WriteEntry(&buf, []byte(`{"b":2}`)); err != nil {
		t.Fatal(err)
	}
	// Second segment: header with zero entries, a valid empty increment.
	if err := WriteHeader(&buf, Build(2)); err != nil {
		t.Fatal(err)
	}

	r := NewReader(&buf)
	wantKinds := []RecordKind{KindHeader, KindEntry, KindEntry, KindHeader}
	var frames []string
	for i, want := range wantKinds {
		rec, err := r.Next()
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if rec.Kind != want {
			t.Fatalf("record %d kind = %v, want %v", i, rec.Kind, want)
		}
		if rec.Kind == KindEntry {
			frames = append(frames, string(rec.Frame))
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected EOF at stream end, got %v", err)
	}
	if len(frames) != 2 || frames[0] != `{"a":1}` || frames[1] != `{"b":2}` {
		t.Fatalf("unexpected frames: %v", frames)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHeader(&buf, Header{Magic: 0xDEADBEEF}); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(&buf).Next(); err == nil {
		t.Fatal("expected bad-magic error")
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{'X'}))
	if _, err := r.Next(); err == nil {
		t.Fatal("expected unknown-tag error")
	}
}

func TestDecodeTruncatedEntry(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEntry(&buf, []byte("0123456789")); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()-3]

	r := NewReader(bytes.NewReader(truncated))
	if _, err := r.Next(); err == nil {
		t.Fatal("expected truncation error")
	}
}
