// main_test.go — CLI command tests.

package main

import (
	"path/filepath"
	"testing"

	"github.com/frametrace/frametrace/internal/config"
)

func TestInitConfigWritesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frametrace.yaml")
	rootCmd.SetArgs([]string{"init-config", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("init-config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if *cfg != config.Default() {
		t.Fatalf("written config = %+v, want defaults", *cfg)
	}

	// Running again must refuse to overwrite.
	rootCmd.SetArgs([]string{"init-config", path})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}

func TestVersionCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
}
