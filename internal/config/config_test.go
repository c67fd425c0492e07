// config_test.go — Configuration loading and validation tests.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/frametrace/frametrace/internal/trace"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	// Run from an empty directory so no stray frametrace.yaml is picked up.
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Fatal(err)
		}
	})

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d := Default()
	if *cfg != d {
		t.Fatalf("config = %+v, want defaults %+v", *cfg, d)
	}
	if cfg.Trace.BufferSizeBytes != trace.DefaultBufferSizeBytes {
		t.Fatalf("default budget = %d, want %d", cfg.Trace.BufferSizeBytes, trace.DefaultBufferSizeBytes)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frametrace.yaml")
	body := `
listen: "0.0.0.0:9000"
output:
  dir: /tmp/frametrace-test
trace:
  buffer_size_bytes: 4096
  always_capture: true
  include_hwc_text: true
  include_composition_state: false
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Fatalf("listen = %q", cfg.Listen)
	}
	if cfg.Output.Dir != "/tmp/frametrace-test" {
		t.Fatalf("output dir = %q", cfg.Output.Dir)
	}
	if cfg.Trace.BufferSizeBytes != 4096 {
		t.Fatalf("budget = %d", cfg.Trace.BufferSizeBytes)
	}
	want := trace.Flags{AlwaysCapture: true, IncludeHwcText: true}
	if cfg.Flags() != want {
		t.Fatalf("flags = %+v, want %+v", cfg.Flags(), want)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for explicitly named missing file")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero budget", "trace:\n  buffer_size_bytes: 0\n"},
		{"negative budget", "trace:\n  buffer_size_bytes: -1\n"},
		{"empty listen", "listen: \"\"\n"},
		{"empty output dir", "output:\n  dir: \"\"\n"},
	}
	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "frametrace.yaml")
		if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frametrace.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("write default: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load written default: %v", err)
	}
	if *cfg != Default() {
		t.Fatalf("round-tripped config = %+v, want %+v", *cfg, Default())
	}

	if err := WriteDefault(path); err == nil {
		t.Fatal("expected refusal to overwrite existing file")
	}
}
