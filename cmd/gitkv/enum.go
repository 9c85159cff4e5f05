package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys [pattern]",
	Short: "List live keys matching pattern (default *)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := "*"
		if len(args) == 1 {
			pattern = args[0]
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		for _, k := range s.Keys(pattern) {
			fmt.Println(k)
		}
		return nil
	},
}

var scanCount int

var scanCmd = &cobra.Command{
	Use:   "scan <cursor> [pattern]",
	Short: "Page through live keys, printing the next cursor",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var cursor int
		if _, err := fmt.Sscanf(args[0], "%d", &cursor); err != nil {
			return fmt.Errorf("invalid cursor %q: %w", args[0], err)
		}
		pattern := "*"
		if len(args) == 2 {
			pattern = args[1]
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		next, keys := s.Scan(cursor, pattern, scanCount)
		for _, k := range keys {
			fmt.Println(k)
		}
		fmt.Printf("cursor: %d\n", next)
		return nil
	},
}

func init() {
	scanCmd.Flags().IntVar(&scanCount, "count", 100, "page size")
}
