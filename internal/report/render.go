package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"nutrilog/internal/core"
)

// JSON encodes r, or the no-data marker when ok is false.
func JSON(r Report, ok bool) ([]byte, error) {
	if !ok {
		return json.MarshalIndent(NoData, "", "  ")
	}
	return json.MarshalIndent(r, "", "  ")
}

// Markdown renders the report as a markdown document.
func Markdown(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Weekly nutrition report\n\n")
	fmt.Fprintf(&b, "%s to %s, %d days with data\n\n", r.PeriodStart, r.PeriodEnd, r.DaysWithData)

	b.WriteString("## Averages\n\n")
	b.WriteString("| | Average | Target | Diff |\n|---|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| Calories | %g kcal | %g kcal | %s |\n", r.AvgDailyCalories, r.Targets.Calories, signed(r.TargetDiffs.Calories))
	fmt.Fprintf(&b, "| Protein | %g g | %g g | %s |\n", r.AvgProteinG, r.Targets.ProteinG, signed(r.TargetDiffs.ProteinG))
	fmt.Fprintf(&b, "| Sugar | %g g | %g g | %s |\n", r.AvgSugarG, r.Targets.SugarG, signed(r.TargetDiffs.SugarG))
	fmt.Fprintf(&b, "| Fat | %g g | | |\n", r.AvgFatG)
	fmt.Fprintf(&b, "| Carbs | %g g | | |\n\n", r.AvgCarbsG)
	fmt.Fprintf(&b, "Total: %g kcal\n\n", r.TotalCalories)

	b.WriteString("## Days\n\n")
	b.WriteString("| Day | kcal | Protein | Fat | Carbs | Sugar | Meals |\n|---|---:|---:|---:|---:|---:|---:|\n")
	for _, d := range r.Daily {
		fmt.Fprintf(&b, "| %s %s | %g | %g | %g | %g | %g | %d |\n",
			d.Date.Weekday().String()[:3], d.Date, d.Calories, d.ProteinG, d.FatG, d.CarbsG, d.SugarG, d.MealCount)
	}
	b.WriteString("\n")

	if len(r.LowProteinDays) > 0 {
		fmt.Fprintf(&b, "**Low protein (< %d g):** %s\n\n", LowProteinG, joinDates(r.LowProteinDays))
	}
	if len(r.HighSugarDays) > 0 {
		fmt.Fprintf(&b, "**High sugar (> %g g):** %s\n\n", r.Targets.SugarG, joinDates(r.HighSugarDays))
	}

	fmt.Fprintf(&b, "## Tip\n\n%s\n", r.Tip)
	return b.String()
}

// Terminal renders the markdown report for a terminal of the given width.
func Terminal(r Report, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := renderer.Render(Markdown(r))
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Weekly nutrition report {{.Start}} to {{.End}}</title>
</head>
<body style="font-family:-apple-system,Segoe UI,sans-serif;background:#0f172a;color:#e2e8f0;padding:24px">
<div style="max-width:640px;margin:0 auto">
{{.Body}}
</div>
</body>
</html>
`))

// HTML renders the report as a self-contained HTML e-mail body.
func HTML(r Report) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(r)), &body); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}

	var out bytes.Buffer
	err := emailTemplate.Execute(&out, struct {
		Start, End string
		Body       template.HTML
	}{
		Start: r.PeriodStart.String(),
		End:   r.PeriodEnd.String(),
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return out.String(), nil
}

func joinDates(dates []core.Date) string {
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}
