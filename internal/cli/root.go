/**
 * @description
 * erdactl command tree.
 * Prints the latest snapshot and bucketed history straight from ocr_data to the
 * terminal, using the same aggregation and formatting as the web pages.
 *
 * @dependencies
 * - github.com/spf13/cobra
 * - github.com/bytedance/sonic (--json output)
 * - backend/internal/aggregate
 * - backend/internal/views (number and date formatting)
 */

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sol-erda/tracker/internal/aggregate"
	"github.com/sol-erda/tracker/internal/services"
	"github.com/sol-erda/tracker/internal/views"
	"github.com/spf13/cobra"
)

// Env is what the commands need from the outside world
type Env struct {
	Source   services.SnapshotSource
	Location *time.Location
}

// Opener builds the Env lazily so --help works without a database
type Opener func(cmd *cobra.Command) (*Env, error)

type options struct {
	json     bool
	timezone string
}

func NewRootCmd(open Opener) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "erdactl",
		Short: "Sol Erda fragment price tracker CLI",
		Long: `erdactl reads the OCR price snapshots and prints them to the terminal.

Examples:
  erdactl latest                       # Newest snapshot with min/max/avg
  erdactl history --unit hour          # Hourly buckets, newest first
  erdactl history --unit day --limit 7 # Last 7 days
  erdactl latest --json                # Machine readable output`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Print JSON instead of a table")
	root.PersistentFlags().StringVar(&opts.timezone, "timezone", "", "Display time zone (defaults to DISPLAY_TIMEZONE)")

	withEnv := func(run func(cmd *cobra.Command, env *Env) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			env, err := open(cmd)
			if err != nil {
				return err
			}
			if opts.timezone != "" {
				loc, err := time.LoadLocation(opts.timezone)
				if err != nil {
					return fmt.Errorf("invalid --timezone %q: %w", opts.timezone, err)
				}
				env.Location = loc
			}
			if env.Location == nil {
				env.Location = time.Local
			}
			return run(cmd, env)
		}
	}

	root.AddCommand(newLatestCmd(opts, withEnv), newHistoryCmd(opts, withEnv))
	return root
}

type envRunner = func(run func(cmd *cobra.Command, env *Env) error) func(*cobra.Command, []string) error

func newLatestCmd(opts *options, withEnv envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the newest snapshot",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, env *Env) error {
			snap, err := env.Source.FetchLatest(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if snap == nil {
				if opts.json {
					return writeJSON(out, nil)
				}
				_, err := fmt.Fprintln(out, "데이터가 없습니다.")
				return err
			}

			stats := aggregate.Compute(snap.Items)
			if opts.json {
				return writeJSON(out, map[string]interface{}{"snapshot": snap, "stats": stats})
			}

			fmt.Fprintf(out, "기록 시간: %s\n", views.DateTime(snap.CreatedAt, env.Location))
			fmt.Fprintf(out, "최저가: %s / 최고가: %s / 평균가: %s\n\n",
				views.StatText(stats, "min", true), views.StatText(stats, "max", true), views.StatText(stats, "avg", true))

			table := NewTable("번호", "가격 (메소)").AlignRight(0, 1)
			for i, price := range snap.Items {
				table.Append(fmt.Sprintf("%d번", i+1), views.Price(price))
			}
			return table.Render(out)
		}),
	}
}

func newHistoryCmd(opts *options, withEnv envRunner) *cobra.Command {
	var (
		unitFlag string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show bucketed price history, newest first",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, env *Env) error {
			unit, err := aggregate.ParseUnit(unitFlag)
			if err != nil {
				return err
			}
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}

			rows, err := env.Source.FetchHistory(cmd.Context())
			if err != nil {
				return err
			}
			buckets := aggregate.Reverse(aggregate.Window(aggregate.Group(rows, unit, env.Location), limit))

			out := cmd.OutOrStdout()
			if opts.json {
				type jsonBucket struct {
					aggregate.Bucket
					Stats aggregate.Stats `json:"stats"`
				}
				list := make([]jsonBucket, len(buckets))
				for i, b := range buckets {
					list[i] = jsonBucket{Bucket: b, Stats: b.Stats()}
				}
				return writeJSON(out, map[string]interface{}{"unit": unit, "buckets": list})
			}

			if len(buckets) == 0 {
				_, err := fmt.Fprintln(out, "히스토리 데이터가 없습니다.")
				return err
			}

			table := NewTable(unit.Label(), "건수", "최저가", "최고가", "평균가", "변동폭").AlignRight(1, 2, 3, 4, 5)
			for _, b := range buckets {
				s := b.Stats()
				table.Append(
					b.GroupKey,
					fmt.Sprint(s.Count),
					views.StatText(s, "min", false),
					views.StatText(s, "max", false),
					views.StatText(s, "avg", false),
					views.SpreadPercentText(s),
				)
			}
			return table.Render(out)
		}),
	}

	cmd.Flags().StringVarP(&unitFlag, "unit", "u", string(aggregate.Hour), "Bucket unit (minute, tenMinute, hour, day, month)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 24, "Number of most recent buckets (0 = all)")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := sonic.ConfigDefault.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
