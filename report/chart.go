package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"blackjack-ql/qlearn"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderTrainingChart writes an HTML page with the progress curves of a run
// and the final per-state hit preference.
func RenderTrainingChart(w io.Writer, title string, history []qlearn.Progress, q *qlearn.QTable) error {
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(progressLine(title, history), preferenceBar(q))
	return page.Render(w)
}

// WriteTrainingChart renders the chart into path, creating parent directories.
func WriteTrainingChart(path, title string, history []qlearn.Progress, q *qlearn.QTable) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderTrainingChart(f, title, history, q); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func progressLine(title string, history []qlearn.Progress) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "win and bust rate per checkpoint",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	episodes := make([]string, 0, len(history))
	wins := make([]opts.LineData, 0, len(history))
	busts := make([]opts.LineData, 0, len(history))
	for _, p := range history {
		episodes = append(episodes, fmt.Sprintf("%d", p.Episode))
		wins = append(wins, opts.LineData{Value: p.WinRate})
		busts = append(busts, opts.LineData{Value: p.BustRate})
	}
	line.SetXAxis(episodes).
		AddSeries("win rate", wins).
		AddSeries("bust rate", busts)
	return line
}

func preferenceBar(q *qlearn.QTable) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "hit preference",
			Subtitle: "Q(hit) - Q(stand) by hand total",
		}),
	)

	pref := qlearn.HitPreference(q)
	states := make([]string, 0, qlearn.MaxState)
	items := make([]opts.BarData, 0, qlearn.MaxState)
	for s := qlearn.MinState; s <= qlearn.MaxState; s++ {
		states = append(states, fmt.Sprintf("%d", s))
		items = append(items, opts.BarData{Value: pref[s]})
	}
	bar.SetXAxis(states).AddSeries("hit - stand", items)
	return bar
}
