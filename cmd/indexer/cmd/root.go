// Package cmd provides the commands of the indexer admin CLI.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/logger"
)

type globalOptions struct {
	configPath string
	logLevel   string
	jsonOutput bool
}

// NewRootCmd creates the root command and all subcommands.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "indexer",
		Short: "Maintain the markdown tag index",
		Long: `indexer rebuilds, reconciles and inspects the tag index over the
configured document store. Run it only while no searcher holds the index. The loadtest command
is the exception: it talks to a running searcher over HTTP.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(opts.logLevel, "text")
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (defaults plus NS_* env when empty)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output as JSON")

	cmd.AddCommand(
		newReconcileCmd(opts),
		newRebuildCmd(opts),
		newQueryCmd(opts),
		newSearchCmd(opts),
		newStatsCmd(opts),
		newClearCmd(opts),
		newLoadtestCmd(opts),
	)
	return cmd
}

func Execute() error {
	return NewRootCmd().Execute()
}

// session is one opened index plus everything needed to tear it down.
type session struct {
	cfg    *config.Config
	stack  *bootstrap.Stack
	engine *indexer.Engine
}

func openSession(ctx context.Context, opts *globalOptions) (*session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	stack, err := bootstrap.Open(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}
	eng, err := stack.NewEngine(ctx, cfg)
	if err != nil {
		stack.Close()
		return nil, err
	}
	return &session{cfg: cfg, stack: stack, engine: eng}, nil
}

func (s *session) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	saveErr := s.engine.Close(ctx)
	closeErr := s.stack.Close()
	if saveErr != nil {
		return fmt.Errorf("saving index: %w", saveErr)
	}
	return closeErr
}

func withSession(opts *globalOptions, fn func(ctx context.Context, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		s, err := openSession(ctx, opts)
		if err != nil {
			return err
		}
		runErr := fn(ctx, s)
		if err := s.close(); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
