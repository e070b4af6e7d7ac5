package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/robfig/cron/v3"

	"nutrilog/internal/autolog"
	"nutrilog/internal/config"
	"nutrilog/internal/log"
)

// logSupplementsCmd posts the daily supplement entries through the API.
type logSupplementsCmd struct {
	dryRun   bool
	schedule string
	omega3   string
	apiURL   string
}

func (*logSupplementsCmd) Name() string     { return "log-supplements" }
func (*logSupplementsCmd) Synopsis() string { return "log today's supplements once" }
func (*logSupplementsCmd) Usage() string {
	return `nutrictl log-supplements [-dry-run] [-schedule "<cron expr>"] [-omega3 <days>] [-api <url>]

  Logs the daily supplements for today unless a supplement entry already
  exists. Omega-3 is added on Friday, Saturday and Sunday unless -omega3
  names other days ("daily", "weekend" or a list such as "mon,thu"). With
  -schedule the command keeps running and logs on every tick of the cron
  expression.
`
}

func (c *logSupplementsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "dry-run", false, "Print the plan without posting anything.")
	f.StringVar(&c.schedule, "schedule", "", `Cron expression to run repeatedly, e.g. "0 8 * * *".`)
	f.StringVar(&c.omega3, "omega3", "", `Days to take Omega-3: "daily", "weekend" or e.g. "mon,thu".`)
	f.StringVar(&c.apiURL, "api", "", "nutrilog API base URL. Defaults to NUTRILOG_API_URL.")
}

func (c *logSupplementsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := config.Load()
	if c.apiURL == "" {
		c.apiURL = cfg.APIURL
	}
	logger := SetupLogger(cfg.LogLevel, log.ComponentAutolog)
	al := autolog.New(autolog.NewClient(c.apiURL, 0), cfg.Location())
	if c.omega3 != "" {
		if err := overrideSchedule(al, "Omega-3", c.omega3); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	if c.schedule == "" {
		if err := runOnce(ctx, al, c.dryRun, stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error logging supplements: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	scheduler := cron.New(cron.WithLocation(cfg.Location()))
	_, err := scheduler.AddFunc(c.schedule, func() {
		if err := runOnce(ctx, al, c.dryRun, stdout); err != nil {
			logger.Error("Scheduled supplement logging failed", log.FieldError, err)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing schedule %q: %v\n", c.schedule, err)
		return subcommands.ExitUsageError
	}

	ctx, stop := SignalContext(ctx)
	defer stop()

	logger.Info("Supplement scheduler started", "schedule", c.schedule, "api", c.apiURL)
	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	logger.Info("Supplement scheduler stopped")
	return subcommands.ExitSuccess
}

func overrideSchedule(al *autolog.Logger, supplement, days string) error {
	sch, err := autolog.ParseSchedule(days)
	if err != nil {
		return err
	}
	return al.SetSchedule(supplement, sch)
}

func runOnce(ctx context.Context, al *autolog.Logger, dryRun bool, w io.Writer) error {
	res, err := al.Run(ctx, dryRun)
	if err != nil {
		return err
	}
	writeResult(w, res, dryRun)
	return nil
}

func writeResult(w io.Writer, res autolog.Result, dryRun bool) {
	switch {
	case res.Skipped:
		fmt.Fprintf(w, "%s: supplements already logged\n", res.Date)
	case dryRun:
		fmt.Fprintf(w, "%s (%s): would log %d entries\n", res.Date, res.Date.Weekday(), len(res.Planned))
		for _, e := range res.Planned {
			fmt.Fprintf(w, "  - %s%s\n", e.Description, noteSuffix(e.Notes))
		}
	default:
		fmt.Fprintf(w, "%s: logged %d entries\n", res.Date, len(res.Posted))
		for _, e := range res.Posted {
			fmt.Fprintf(w, "  - #%d %s\n", e.ID, e.Description)
		}
	}
}

func noteSuffix(notes string) string {
	if strings.TrimSpace(notes) == "" {
		return ""
	}
	return " (" + notes + ")"
}
