// envelope.go — Persisted trace format: header record and entry framing.
// A persisted stream is a sequence of tagged records:
//
//	'H' | magic (8 bytes LE) | realToElapsedOffsetNanos (8 bytes LE)
//	'E' | length (4 bytes LE) | length bytes of JSON entry document
//
// Every snapshot or stream-append segment starts with one header record
// followed by its entry records, so a long-lived file produced by repeated
// appends is a concatenation of self-describing segments. The tag byte lets a
// reader walk segment boundaries without guessing whether four bytes are a
// length prefix or the start of a magic number.
package envelope

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Two-part magic identifier, "FRMTRACE" when the combined value is written
// little-endian. Split low/high so readers can check halves independently.
const (
	MagicNumberL uint32 = 0x544D5246 // "FRMT"
	MagicNumberH uint32 = 0x45434152 // "RACE"
	MagicNumber         = uint64(MagicNumberH)<<32 | uint64(MagicNumberL)
)

const (
	tagHeader byte = 'H'
	tagEntry  byte = 'E'

	// maxFrameBytes bounds a single entry record on read. Writers never
	// produce frames near this; a larger length prefix means corruption.
	maxFrameBytes = 256 << 20
)

// Header is the fixed metadata record prefixed to any persisted output.
// RealToElapsedOffsetNanos is CLOCK_REALTIME minus CLOCK_MONOTONIC at build
// time; readers add it to an entry's monotonic timestamp to recover wall-clock
// time without every entry storing both.
type Header struct {
	Magic                    uint64
	RealToElapsedOffsetNanos int64
}

// Build returns a header carrying the format magic and the given clock offset.
func Build(clockOffsetNanos int64) Header {
	return Header{Magic: MagicNumber, RealToElapsedOffsetNanos: clockOffsetNanos}
}

// ClockOffsetNanos samples realtime minus monotonic time once. Sampled at
// header-build time rather than per entry.
func ClockOffsetNanos() int64 {
	return clockOffsetNanos()
}

// WriteHeader writes one header record.
func WriteHeader(w io.Writer, h Header) error {
	var buf [17]byte
	buf[0] = tagHeader
	binary.LittleEndian.PutUint64(buf[1:9], h.Magic)
	binary.LittleEndian.PutUint64(buf[9:17], uint64(h.RealToElapsedOffsetNanos))
	_, err := w.Write(buf[:])
	return err
}

// WriteEntry writes one length-prefixed entry record.
func WriteEntry(w io.Writer, frame []byte) error {
	var buf [5]byte
	buf[0] = tagEntry
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(frame)))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	_, err := w.Write(frame)
	return err
}

// RecordKind discriminates the records a Reader returns.
type RecordKind int

const (
	KindHeader RecordKind = iota
	KindEntry
)

// Record is one decoded record: a segment header or an entry frame.
type Record struct {
	Kind   RecordKind
	Header Header // set when Kind == KindHeader
	Frame  []byte // set when Kind == KindEntry
}

// Reader decodes a persisted stream record by record. Next returns io.EOF at a
// clean record boundary and io.ErrUnexpectedEOF on a truncated record.
type Reader struct {
	r io.Reader
}

// NewReader wraps an open stream for record-by-record decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next returns the next record in the stream.
func (d *Reader) Next() (Record, error) {
	var tag [1]byte
	if _, err := io.ReadFull(d.r, tag[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return Record{}, err
	}

	switch tag[0] {
	case tagHeader:
		var buf [16]byte
		if _, err := io.ReadFull(d.r, buf[:]); err != nil {
			return Record{}, fmt.Errorf("truncated header record: %w", io.ErrUnexpectedEOF)
		}
		h := Header{
			Magic:                    binary.LittleEndian.Uint64(buf[0:8]),
			RealToElapsedOffsetNanos: int64(binary.LittleEndian.Uint64(buf[8:16])),
		}
		if h.Magic != MagicNumber {
			return Record{}, fmt.Errorf("bad magic number %#x, want %#x", h.Magic, MagicNumber)
		}
		return Record{Kind: KindHeader, Header: h}, nil

	case tagEntry:
		var buf [4]byte
		if _, err := io.ReadFull(d.r, buf[:]); err != nil {
			return Record{}, fmt.Errorf("truncated entry length: %w", io.ErrUnexpectedEOF)
		}
		n := binary.LittleEndian.Uint32(buf[:])
		if n > maxFrameBytes {
			return Record{}, fmt.Errorf("entry record of %d bytes exceeds %d byte limit", n, maxFrameBytes)
		}
		frame := make([]byte, n)
		if _, err := io.ReadFull(d.r, frame); err != nil {
			return Record{}, fmt.Errorf("truncated entry record: %w", io.ErrUnexpectedEOF)
		}
		return Record{Kind: KindEntry, Frame: frame}, nil

	default:
		return Record{}, fmt.Errorf("unknown record tag %#x", tag[0])
	}
}
