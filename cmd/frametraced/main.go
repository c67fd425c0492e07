// main.go — frametraced entry point and CLI.
// The daemon hosts one Tracer behind the HTTP control plane; producers post
// composition events to /notify or link the trace package directly.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frametrace/frametrace/internal/config"
	"github.com/frametrace/frametrace/internal/server"
	"github.com/frametrace/frametrace/internal/trace"
)

const version = "0.1.0"

var (
	configPath string
	listenAddr string
)

var rootCmd = &cobra.Command{
	Use:   "frametraced",
	Short: "Composition-event trace daemon",
	Long: `frametraced captures per-frame composition snapshots into a bounded
in-memory buffer and persists them on demand for offline inspection.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the trace daemon",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("frametraced v%s\n", version)
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a starter configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "frametrace.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: ./frametrace.yaml)")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initConfigCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	tracer := trace.New()
	tracer.SetBufferSize(cfg.Trace.BufferSizeBytes)
	tracer.SetFlags(cfg.Flags())

	srv, err := server.New(tracer, cfg.Output.Dir)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("frametraced v%s listening on %s, traces in %s", version, cfg.Listen, cfg.Output.Dir)
		errCh <- httpSrv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case s := <-sig:
		log.Printf("received %s, shutting down", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	// Persist whatever a still-running trace holds before exiting.
	if tracer.IsEnabled() {
		path := filepath.Join(cfg.Output.Dir, fmt.Sprintf("frames-shutdown-%s.trace", time.Now().Format("20060102-150405")))
		if stopped, err := tracer.Disable(path, true); err != nil {
			log.Printf("final trace write: %v", err)
		} else if stopped {
			log.Printf("wrote final trace to %s", path)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
