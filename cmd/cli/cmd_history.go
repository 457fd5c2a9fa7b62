package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pentestflow/pentestflow/pkg/history"
	"github.com/pentestflow/pentestflow/pkg/ui"
)

var errNoHistory = errors.New("history is disabled (no history_dir)")

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
	}

	var target string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(s *history.Store, _ []string) error {
			ui.RenderHistory(a.stdout, s.List(target, limit))
			return nil
		}),
	}
	list.Flags().StringVar(&target, "target", "", "Only runs against this target")
	list.Flags().IntVar(&limit, "limit", 20, "Maximum runs shown (0 for all)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(s *history.Store, args []string) error {
			rec, err := s.Get(args[0])
			if err != nil {
				return err
			}
			ui.RenderRecord(a.stdout, rec)
			return nil
		}),
	}

	compare := &cobra.Command{
		Use:   "compare <base-id> <compare-id>",
		Short: "Compare two runs",
		Args:  cobra.ExactArgs(2),
		RunE: a.withStore(func(s *history.Store, args []string) error {
			res, err := s.Compare(args[0], args[1])
			if err != nil {
				return err
			}
			ui.RenderComparison(a.stdout, res)
			return nil
		}),
	}

	var olderThan time.Duration
	var keep int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete old runs",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(s *history.Store, _ []string) error {
			removed := 0
			if olderThan > 0 {
				n, err := s.Prune(olderThan)
				if err != nil {
					return err
				}
				removed += n
			}
			if keep > 0 {
				n, err := s.Keep(keep)
				if err != nil {
					return err
				}
				removed += n
			}
			ui.PrintOption(a.stdout, "Removed", strconv.Itoa(removed))
			return nil
		}),
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 0, "Delete runs older than this, e.g. 720h")
	prune.Flags().IntVar(&keep, "keep", 0, "Keep only the newest N runs")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show history statistics",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(s *history.Store, _ []string) error {
			ui.RenderStats(a.stdout, s.Stats())
			return nil
		}),
	}

	cmd.AddCommand(list, show, compare, prune, stats)
	return cmd
}

// withStore opens the configured history store around fn.
func (a *app) withStore(fn func(*history.Store, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := a.flags.loadConfig(cmd)
		if err != nil {
			return a.configError(err)
		}
		a.configureColor()
		if cfg.HistoryDir == "" {
			return a.configError(errNoHistory)
		}
		s, err := history.NewStore(cfg.HistoryDir)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(s, args)
	}
}
