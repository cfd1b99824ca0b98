// ColorWriter prints human-friendly, colorized records to STDOUT.
package sim

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"journey-sim/internal/telemetry"
)

var kindColors = map[telemetry.Kind]lipgloss.Color{
	telemetry.KindVehicle: lipgloss.Color("2"),
	telemetry.KindGPS:     lipgloss.Color("4"),
	telemetry.KindWeather: lipgloss.Color("3"),
	telemetry.KindTraffic: lipgloss.Color("5"),
}

// ColorWriter prints one line per record. Colors are only used when the
// output is a terminal.
type ColorWriter struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	dim      lipgloss.Style
	kinds    map[telemetry.Kind]lipgloss.Style
}

// NewColorWriter creates a ColorWriter writing to os.Stdout.
func NewColorWriter() *ColorWriter {
	return newColorWriter(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
}

func newColorWriter(out io.Writer, colorize bool) *ColorWriter {
	w := &ColorWriter{
		out:      out,
		colorize: colorize,
		dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		kinds:    make(map[telemetry.Kind]lipgloss.Style),
	}
	for k, c := range kindColors {
		w.kinds[k] = lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return w
}

func (w *ColorWriter) paint(s lipgloss.Style, text string) string {
	if !w.colorize {
		return text
	}
	return s.Render(text)
}

// Write outputs a single record.
func (w *ColorWriter) Write(_ context.Context, channel string, rec telemetry.Record) error {
	ts := recordTime(rec).Format(time.RFC3339)
	line := fmt.Sprintf("%s %s %s %s",
		w.paint(w.dim, "["+ts+"]"),
		w.paint(w.kinds[rec.Kind()], fmt.Sprintf("%-8s", rec.Kind())),
		w.paint(w.dim, channel),
		summarize(rec),
	)
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintln(w.out, line)
	return err
}

// ObserveTick prints a progress line after every tick.
func (w *ColorWriter) ObserveTick(st Status) {
	line := fmt.Sprintf("tick %d  lat=%.5f lon=%.5f  %.1f km to go", st.Ticks, st.Position.Lat, st.Position.Lon, st.RemainingKM)
	if st.Completed {
		line += "  arrived"
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, w.paint(w.dim, line))
}
