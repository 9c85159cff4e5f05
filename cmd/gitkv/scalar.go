package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value stored at key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		v, ok := s.Get(args[0])
		if !ok {
			return fmt.Errorf("key %q not found", args[0])
		}
		fmt.Println(v)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store value at key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		return s.Set(args[0], args[1])
	},
}

var delCmd = &cobra.Command{
	Use:   "del <key>",
	Short: "Delete key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		return s.Del(args[0])
	},
}

var typeCmd = &cobra.Command{
	Use:   "type <key>",
	Short: "Print key's value type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		t, ok := s.Type(args[0])
		if !ok {
			return fmt.Errorf("key %q not found", args[0])
		}
		fmt.Println(t)
		return nil
	},
}
