package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/compliance-cache/pkg/cache"
)

type valueOutput struct {
	Key   string `json:"key"`
	Found bool   `json:"found"`
	Value string `json:"value,omitempty"`
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get [KEY]",
		Short: "Print the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			value, ok := a.store.Get(ctxOrBackground(cmd), key)
			if !ok {
				if a.jsonOut {
					return a.print(cmd.OutOrStdout(), valueOutput{Key: key}, "")
				}
				return fmt.Errorf("key %q not found", key)
			}

			return a.print(cmd.OutOrStdout(), valueOutput{Key: key, Found: true, Value: string(value)}, string(value))
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "set [KEY] [VALUE]",
		Short: "Store a value under a key",
		Long: `Store a value under a key. Without --ttl the value never expires;
a new set replaces both the value and its expiry.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Set(ctxOrBackground(cmd), args[0], []byte(args[1]), cache.ExpiresIn(ttl)); err != nil {
				return fmt.Errorf("set %q: %w", args[0], err)
			}
			return a.print(cmd.OutOrStdout(), valueOutput{Key: args[0], Found: true, Value: args[1]}, "OK")
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "time to live (0 = no expiry)")
	return cmd
}

func newDelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "del [KEY]...",
		Short: "Delete keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range args {
				if err := a.store.Delete(ctxOrBackground(cmd), key); err != nil {
					return fmt.Errorf("delete %q: %w", key, err)
				}
			}
			return a.print(cmd.OutOrStdout(), map[string]int{"deleted": len(args)}, "OK")
		},
	}
}
