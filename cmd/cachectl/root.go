package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/compliance-cache/internal/retry"
	"github.com/Sternrassler/compliance-cache/pkg/cache"
	"github.com/Sternrassler/compliance-cache/pkg/logging"
)

// app holds the global flags and the store opened for one command.
type app struct {
	addr     string
	password string
	db       int
	prefix   string
	verbose  bool
	jsonOut  bool

	store cache.Store[[]byte]
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "cachectl",
		Short: "Inspect and maintain a shared cache store",
		Long: `cachectl talks directly to the Redis server behind a shared cache store.

It reads and writes the same keys as cache-server, so values and rate limit
counters set by one are visible to the other when both use the same prefix.

Examples:
  # Read a value
  cachectl get greeting

  # Store a value for ten minutes
  cachectl set greeting hello --ttl 10m

  # Show store statistics
  cachectl stats --json

  # Inspect and reset a rate limit counter
  cachectl attempts http:10.0.0.7
  cachectl reset http:10.0.0.7`,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.addr, "addr", "a", "localhost:6379", "Redis address (host:port)")
	flags.StringVar(&a.password, "password", "", "Redis password")
	flags.IntVar(&a.db, "db", 0, "Redis logical database")
	flags.StringVarP(&a.prefix, "prefix", "p", "", "key namespace shared with cache-server")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&a.jsonOut, "json", false, "output results as JSON")

	rootCmd.AddCommand(
		newGetCmd(a),
		newSetCmd(a),
		newDelCmd(a),
		newStatsCmd(a),
		newFlushCmd(a),
		newAttemptsCmd(a),
		newResetCmd(a),
	)

	return rootCmd
}

func (a *app) open(cmd *cobra.Command, args []string) error {
	level := logging.LevelWarn
	if a.verbose {
		level = logging.LevelDebug
	}
	logger := logging.Setup(logging.Config{
		Level:  level,
		Pretty: true,
		Output: cmd.ErrOrStderr(),
	}).With().Str("component", logging.ComponentCLI).Logger()

	cfg := cache.Config{
		Backend: cache.BackendRedis,
		Redis: cache.RedisConfig{
			Addr:     a.addr,
			Password: a.password,
			DB:       a.db,
		},
		Prefix: a.prefix,
		ConnectRetry: retry.Config{
			MaxAttempts:    2,
			InitialBackoff: 200 * time.Millisecond,
			Multiplier:     2,
		},
	}

	store, err := cache.Open[[]byte](ctxOrBackground(cmd), cfg, logger)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// print writes v as JSON with --json, or text otherwise.
func (a *app) print(w io.Writer, v any, text string) error {
	if a.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func ctxOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
