package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hartyporpoise/hwrt/internal/bulk"
	"github.com/hartyporpoise/hwrt/internal/selftest"
)

// parseLevels maps level names to levels. No names means every level.
func parseLevels(names []string) ([]bulk.Level, error) {
	var out []bulk.Level
	for _, name := range names {
		l, err := bulk.ParseLevel(name)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func newSelftestCmd(gf *globalFlags) *cobra.Command {
	var levelNames []string
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Check every dispatch strategy against the scalar reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, gf)
			if err != nil {
				return err
			}
			defer e.log.Sync()
			levels, err := parseLevels(levelNames)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSelftest(ctx, e, levels)
		},
	}
	cmd.Flags().StringSliceVar(&levelNames, "level", nil, "Strategies to check (scalar, vector128, vector256); default all")
	return cmd
}

func runSelftest(ctx context.Context, e *env, levels []bulk.Level) error {
	rep, err := selftest.Run(ctx, levels...)
	if err != nil {
		return fmt.Errorf("selftest interrupted: %w", err)
	}

	tbl := newTable("Strategy", "Operation", "Cases", "Result")
	for _, res := range rep.Results {
		result := mark(true)
		if res.Err != nil {
			result = mark(false)
		}
		tbl.Row(res.Level.String(), res.Op.String(), humanize.Comma(int64(res.Cases)), result)
	}
	fmt.Println(tbl.String())
	fmt.Printf("  %s cases in %s\n", humanize.Comma(int64(rep.Cases())), rep.Duration.Round(time.Microsecond))

	if err := rep.Err(); err != nil {
		e.log.Error("selftest failed", zap.Error(err))
		return err
	}
	e.log.Info("selftest passed", zap.Int("cases", rep.Cases()), zap.Duration("duration", rep.Duration))
	return nil
}
