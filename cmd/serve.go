package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clargs/internal/server"
	"github.com/cwbudde/clargs/internal/store"
)

var (
	serveAddr    string
	serveSave    bool
	serveHistory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP extraction service",
	Long: `Serves POST /api/v1/extract, the report endpoints under /api/v1/reports
and a server-sent event stream of extractions at /api/v1/events.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().BoolVar(&serveSave, "save", false, "Save every successful extraction as a report")
	serveCmd.Flags().BoolVar(&serveHistory, "history", false, "Append every extraction to the history")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	reportStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}

	opts := server.Options{Store: reportStore, SaveReports: serveSave}
	if serveHistory {
		hw, err := store.NewHistoryWriter(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer hw.Close()
		opts.History = hw
	}

	srv := server.NewServer(serveAddr, opts)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}
