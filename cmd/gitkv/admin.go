package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one manual fetch/merge/normalize/push round",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		result := s.Sync("manual")
		if !result.Success {
			return fmt.Errorf("sync failed: %s", result.Error)
		}
		fmt.Println("sync ok")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the sync coordinator's current state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		st := s.GetStatus()
		fmt.Printf("state:      %s\n", st.State)
		fmt.Printf("in-flight:  %v\n", st.InFlight)
		if st.LastSyncAt != 0 {
			fmt.Printf("last sync:  %s\n", humanize.Time(time.UnixMilli(st.LastSyncAt)))
		} else {
			fmt.Println("last sync:  never")
		}
		if st.LastError != "" {
			fmt.Printf("last error: %s\n", st.LastError)
		}
		return nil
	},
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Force a history compaction, bypassing the usual write thresholds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		return s.Compact()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the store open with its background sync scheduler running",
	Long: `serve opens the store and blocks, letting the debounce/periodic
scheduler drive sync rounds in the background until interrupted.

Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		fmt.Println("gitkv serving, press Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()

		fmt.Println("shutting down...")
		return nil
	},
}
