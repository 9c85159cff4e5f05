package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lpushCmd = &cobra.Command{
	Use:   "lpush <list> <value...>",
	Short: "Push values onto the head of a list",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		vs := make([]any, len(args)-1)
		for i, v := range args[1:] {
			vs[i] = v
		}
		return s.Lpush(args[0], vs...)
	},
}

var rpushCmd = &cobra.Command{
	Use:   "rpush <list> <value...>",
	Short: "Push values onto the tail of a list",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		vs := make([]any, len(args)-1)
		for i, v := range args[1:] {
			vs[i] = v
		}
		return s.Rpush(args[0], vs...)
	},
}

var lrangeCmd = &cobra.Command{
	Use:   "lrange <list> <start> <stop>",
	Short: "Print items in [start, stop] (inclusive, supports negative indices)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var start, stop int
		if _, err := fmt.Sscanf(args[1], "%d", &start); err != nil {
			return fmt.Errorf("invalid start %q: %w", args[1], err)
		}
		if _, err := fmt.Sscanf(args[2], "%d", &stop); err != nil {
			return fmt.Errorf("invalid stop %q: %w", args[2], err)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		items, err := s.Lrange(args[0], start, stop)
		if err != nil {
			return err
		}
		for _, v := range items {
			fmt.Println(v)
		}
		return nil
	},
}
