package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type attemptsOutput struct {
	Key      string `json:"key"`
	Attempts int64  `json:"attempts"`
}

func newAttemptsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "attempts [KEY]",
		Short: "Print the attempt count of a rate limit counter",
		Long: `Print the attempt count of a rate limit counter in its current window.

Counters written by a named limiter are stored as NAME:KEY; cache-server's
HTTP limiter uses "http:<client ip>".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.store.Attempts(ctxOrBackground(cmd), args[0])
			if err != nil {
				return fmt.Errorf("attempts %q: %w", args[0], err)
			}
			return a.print(cmd.OutOrStdout(), attemptsOutput{Key: args[0], Attempts: n}, fmt.Sprint(n))
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset [KEY]...",
		Short: "Reset rate limit counters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range args {
				if err := a.store.Reset(ctxOrBackground(cmd), key); err != nil {
					return fmt.Errorf("reset %q: %w", key, err)
				}
			}
			return a.print(cmd.OutOrStdout(), map[string]int{"reset": len(args)}, "OK")
		},
	}
}
