package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Panel is one Grafana panel backed by a PromQL expression.
type Panel struct {
	Type   string
	Title  string
	Expr   string
	Legend string
	X, Y   int
}

// JourneyPanels chart the metrics exported on /metrics.
var JourneyPanels = []Panel{
	{Type: "timeseries", Title: "Records published / s", Expr: `sum by (channel) (rate(journey_records_published_total[1m]))`, Legend: "{{channel}}", X: 0, Y: 0},
	{Type: "timeseries", Title: "Publish failures / s", Expr: `sum by (channel) (rate(journey_records_failed_total[1m]))`, Legend: "{{channel}}", X: 12, Y: 0},
	{Type: "timeseries", Title: "Publish latency p95", Expr: `histogram_quantile(0.95, sum by (le, channel) (rate(journey_publish_duration_seconds_bucket[5m])))`, Legend: "{{channel}}", X: 0, Y: 8},
	{Type: "stat", Title: "Remaining distance (km)", Expr: `journey_remaining_km`, Legend: "remaining", X: 12, Y: 8},
	{Type: "timeseries", Title: "Position", Expr: `journey_latitude`, Legend: "lat", X: 0, Y: 16},
	{Type: "stat", Title: "Ticks", Expr: `journey_ticks_total`, Legend: "ticks", X: 12, Y: 16},
}

// Render writes the rendered dashboards to outDir. The Prometheus datasource
// UID is read from PROMETHEUS_DATASOURCE_UID.
func Render(outDir string) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
		"add": func(a, b int) int { return a + b },
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	names, err := templates.ReadDir("templates")
	if err != nil {
		return err
	}
	data := struct {
		Title  string
		Panels []Panel
	}{Title: "Journey simulator", Panels: JourneyPanels}

	for _, entry := range names {
		name := entry.Name()
		t, err := template.New(name).Funcs(funcMap).ParseFS(templates, "templates/"+name)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, data); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
