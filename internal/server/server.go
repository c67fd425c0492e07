// server.go — HTTP control plane and producer surface for the trace daemon.
// The control plane toggles tracing and persists the buffer; out-of-process
// producers post composition events to /notify. In-process producers call
// trace.Tracer directly and skip this layer entirely.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/frametrace/frametrace/internal/trace"
)

const maxPostBodySize = 10 * 1024 * 1024 // 10MB

// Server exposes one Tracer over HTTP.
type Server struct {
	tracer *trace.Tracer
	outDir string
}

// New creates a server writing trace files under outDir, creating the
// directory if needed.
func New(tracer *trace.Tracer, outDir string) (*Server, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Server{tracer: tracer, outDir: outDir}, nil
}

// Routes returns the daemon's HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/trace/start", s.handleStart)
	mux.HandleFunc("/trace/stop", s.handleStop)
	mux.HandleFunc("/trace/snapshot", s.handleSnapshot)
	mux.HandleFunc("/trace/drain", s.handleDrain)
	mux.HandleFunc("/trace/flags", s.handleFlags)
	mux.HandleFunc("/trace/buffer-size", s.handleBufferSize)
	mux.HandleFunc("/trace/status", s.handleStatus)
	mux.HandleFunc("/notify", s.handleNotify)
	return mux
}

// handleStart enables tracing. started is false when tracing was already on.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		jsonResponse(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"started": s.tracer.Enable()})
}

// handleStop disables tracing, optionally writing the buffer to a file first.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		jsonResponse(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPostBodySize)
	var body struct {
		Write bool   `json:"write"`
		File  string `json:"file"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	path := s.tracePath(body.File)
	stopped, err := s.tracer.Disable(path, body.Write)
	if err != nil {
		// Tracing is already off and the buffer cleared; report the write
		// failure without pretending the stop did not happen.
		log.Printf("trace stop: write failed: %v", err)
		jsonResponse(w, http.StatusInternalServerError, map[string]any{
			"stopped": stopped,
			"error":   "Failed to write trace file",
		})
		return
	}
	resp := map[string]any{"stopped": stopped}
	if stopped && body.Write {
		resp["file"] = path
	}
	jsonResponse(w, http.StatusOK, resp)
}

// handleSnapshot writes current contents to a file without clearing the
// buffer. written is false when tracing is off — nothing to snapshot.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		jsonResponse(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPostBodySize)
	var body struct {
		File string `json:"file"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	path := s.tracePath(body.File)
	written, err := s.tracer.SnapshotToFile(path)
	if err != nil {
		log.Printf("trace snapshot: %v", err)
		jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to write trace file"})
		return
	}
	resp := map[string]any{"written": written}
	if written {
		resp["file"] = path
	}
	jsonResponse(w, http.StatusOK, resp)
}

// handleDrain streams a header plus current contents in the persisted format
// as the response body, then clears the buffer. Repeated drains into the same
// collector build one long-lived capture from a running session.
func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		jsonResponse(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if err := s.tracer.AppendToStream(w); err != nil {
		// Headers are already gone; the client sees a truncated stream.
		log.Printf("trace drain: %v", err)
	}
}

// handleFlags sets the capture flags, either as named booleans or as the raw
// bitmask. A mask wins over named fields; omitted named fields keep their
// current value.
func (s *Server) handleFlags(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		jsonResponse(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPostBodySize)
	var body struct {
		Mask                    *uint32 `json:"mask"`
		AlwaysCapture           *bool   `json:"always_capture"`
		IncludeHwcText          *bool   `json:"include_hwc_text"`
		IncludeCompositionState *bool   `json:"include_composition_state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	var flags trace.Flags
	if body.Mask != nil {
		flags = trace.FlagsFromMask(*body.Mask)
	} else {
		flags = s.tracer.Flags()
		if body.AlwaysCapture != nil {
			flags.AlwaysCapture = *body.AlwaysCapture
		}
		if body.IncludeHwcText != nil {
			flags.IncludeHwcText = *body.IncludeHwcText
		}
		if body.IncludeCompositionState != nil {
			flags.IncludeCompositionState = *body.IncludeCompositionState
		}
	}
	s.tracer.SetFlags(flags)
	jsonResponse(w, http.StatusOK, map[string]any{
		"mask":                      flags.Mask(),
		"always_capture":            flags.AlwaysCapture,
		"include_hwc_text":          flags.IncludeHwcText,
		"include_composition_state": flags.IncludeCompositionState,
	})
}

// handleBufferSize sets the byte budget applied at the next trace start.
func (s *Server) handleBufferSize(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		jsonResponse(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPostBodySize)
	var body struct {
		Bytes int64 `json:"bytes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}
	if body.Bytes <= 0 {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "bytes must be positive"})
		return
	}
	s.tracer.SetBufferSize(body.Bytes)
	jsonResponse(w, http.StatusOK, map[string]int64{"bytes": body.Bytes})
}

// handleStatus reports enabled state and buffer counters.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		jsonResponse(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	sum := s.tracer.Summarize()
	jsonResponse(w, http.StatusOK, map[string]any{
		"enabled":      s.tracer.IsEnabled(),
		"entries":      sum.Count,
		"used_bytes":   sum.UsedBytes,
		"budget_bytes": sum.BudgetBytes,
	})
}

// notifyRequest is one producer event posted by an out-of-process producer.
// Payload and display blobs travel base64-encoded.
type notifyRequest struct {
	Dirty            bool     `json:"dirty"`
	ElapsedTimeNanos int64    `json:"elapsed_time_nanos"`
	VsyncID          int64    `json:"vsync_id"`
	Payload          []byte   `json:"payload"`
	HwcText          string   `json:"hwc_text"`
	Displays         [][]byte `json:"displays"`
}

// handleNotify records one composition event.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		jsonResponse(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPostBodySize)
	var body notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	// The decoded request is the only reference to the blobs, so the swap
	// contract is trivially satisfied here.
	var displays *[][]byte
	if body.Displays != nil {
		displays = &body.Displays
	}
	s.tracer.Notify(body.Dirty, body.ElapsedTimeNanos, body.VsyncID, &body.Payload, body.HwcText, displays)
	jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// tracePath resolves a client-supplied file name under the output directory.
// Only the base name is honored, so clients cannot escape outDir.
func (s *Server) tracePath(name string) string {
	if name == "" {
		name = fmt.Sprintf("frames-%s.trace", time.Now().Format("20060102-150405"))
	}
	return filepath.Join(s.outDir, filepath.Base(name))
}

// jsonResponse is a JSON response helper
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("encode JSON response: %v", err)
	}
}
