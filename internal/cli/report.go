package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"nutrilog/internal/config"
	"nutrilog/internal/core"
	"nutrilog/internal/ports"
	"nutrilog/internal/report"
	"nutrilog/internal/storage"
)

// weeklyReportCmd prints the nutrition report for the last days.
type weeklyReportCmd struct {
	days   int
	end    string
	output string
	json   bool
	dbPath string
}

func (*weeklyReportCmd) Name() string     { return "weekly-report" }
func (*weeklyReportCmd) Synopsis() string { return "report averages and tips over the last days" }
func (*weeklyReportCmd) Usage() string {
	return `nutrictl weekly-report [-days 7] [-end <date>] [-output terminal|md|html] [-json] [-db <path>]

  Summarizes the logged meals of the last days: per-day totals, averages,
  low protein and high sugar days, target diffs and a tip. Reads the SQLite
  database directly.
`
}

func (c *weeklyReportCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", report.DefaultDays, "Number of days to cover, ending on -end.")
	f.StringVar(&c.end, "end", "", "Last day of the report (YYYY-MM-DD). Defaults to today.")
	f.StringVar(&c.output, "output", "terminal", "Output format: terminal, md or html.")
	f.BoolVar(&c.json, "json", false, "Print the report as JSON.")
	f.StringVar(&c.dbPath, "db", "", "SQLite database path. Defaults to SQLITE_DB_PATH.")
}

func (c *weeklyReportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := config.Load()
	if c.dbPath == "" {
		c.dbPath = cfg.SQLiteDBPath
	}
	if c.days < 1 {
		fmt.Fprintf(os.Stderr, "Error: -days must be at least 1\n")
		return subcommands.ExitUsageError
	}

	end := core.Today(time.Now(), cfg.Location())
	if c.end != "" {
		d, err := core.ParseDate(c.end)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -end: %v\n", err)
			return subcommands.ExitUsageError
		}
		end = d
	}

	repo, err := storage.NewSQLiteRepository(c.dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database %q: %v\n", c.dbPath, err)
		return subcommands.ExitFailure
	}
	defer repo.Close()

	targets := report.DefaultTargets
	targets.Calories = cfg.CalorieGoal

	if err := c.write(ctx, stdout, repo, end, targets); err != nil {
		fmt.Fprintf(os.Stderr, "Error building report: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *weeklyReportCmd) write(ctx context.Context, w io.Writer, store ports.MealReader, end core.Date, targets report.Targets) error {
	from, to := report.Window(end, c.days)
	entries, err := store.ListMeals(ctx, core.MealFilter{From: &from, To: &to})
	if err != nil {
		return fmt.Errorf("list meals: %w", err)
	}
	r, ok := report.Compute(from, to, entries, targets)

	if c.json || !ok {
		b, err := report.JSON(r, ok)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
		return nil
	}

	switch c.output {
	case "md", "markdown":
		fmt.Fprint(w, report.Markdown(r))
	case "html":
		html, err := report.HTML(r)
		if err != nil {
			return err
		}
		fmt.Fprint(w, html)
	case "terminal", "":
		out, err := report.Terminal(r, 100)
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
	default:
		return fmt.Errorf("unknown output format %q", c.output)
	}
	return nil
}
