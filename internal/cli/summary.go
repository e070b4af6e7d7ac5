package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"nutrilog/internal/autolog"
	"nutrilog/internal/config"
	"nutrilog/internal/core"
)

// summaryCmd prints a daily summary fetched from the API.
type summaryCmd struct {
	date   string
	apiURL string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the nutrient summary of a day" }
func (*summaryCmd) Usage() string {
	return `nutrictl summary [-d <date>] [-api <url>]

  Displays the totals, goals and workout adjustment of a day.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Day to summarize (YYYY-MM-DD). Defaults to today.")
	f.StringVar(&c.apiURL, "api", "", "nutrilog API base URL. Defaults to NUTRILOG_API_URL.")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := config.Load()
	if c.apiURL == "" {
		c.apiURL = cfg.APIURL
	}

	day := core.Today(time.Now(), cfg.Location())
	if c.date != "" {
		d, err := core.ParseDate(c.date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
		day = d
	}

	s, err := autolog.NewClient(c.apiURL, 0).Summary(ctx, day)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching summary: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(stdout, summaryMarkdown(s))
	return subcommands.ExitSuccess
}

func summaryMarkdown(s core.DailySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", s.Date.Weekday(), s.Date)
	fmt.Fprintf(&b, "%d meals, %g of %g kcal (%g%%)\n\n", s.MealCount, s.Totals.Calories, s.Goals.Calories, s.Progress.Calories)

	b.WriteString("| Nutrient | Total | Goal |\n|---|---:|---:|\n")
	row(&b, "Protein", s.Totals.ProteinG, s.Goals.ProteinG, "g")
	row(&b, "Carbs", s.Totals.CarbsG, s.Goals.CarbsG, "g")
	row(&b, "Fat", s.Totals.FatG, s.Goals.FatG, "g")
	row(&b, "Fiber", s.Totals.FiberG, s.Goals.FiberG, "g")
	row(&b, "Sugar", s.Totals.SugarG, 0, "g")
	row(&b, "Zinc", s.Totals.ZincMg, 0, "mg")
	row(&b, "Selenium", s.Totals.SeleniumMcg, 0, "mcg")
	row(&b, "Vitamin D", s.Totals.VitaminDIU, 0, "IU")

	if w := s.Workout; w != nil {
		fmt.Fprintf(&b, "\n## Workout\n\n%g kcal burned in %s, %g g fat and %g g carbs. Base goal %g kcal, net %g kcal.\n",
			w.KcalBurned, w.ZoneLabel, w.FatGBurned, w.CarbsGBurned, s.BaseGoal, s.NetCalories)
	}
	return b.String()
}

func row(w io.Writer, name string, total, goal float64, unit string) {
	if goal > 0 {
		fmt.Fprintf(w, "| %s | %g %s | %g %s |\n", name, total, unit, goal, unit)
		return
	}
	fmt.Fprintf(w, "| %s | %g %s | |\n", name, total, unit)
}
