package sim

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"journey-sim/internal/config"
	"journey-sim/internal/telemetry"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p}
	rec := telemetry.GPSRecord{ID: uuid.New(), Timestamp: time.Unix(0, 0).UTC(), Speed: 20}
	if err := w.Write(context.Background(), "gps_data", rec); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg, ok := p.msgs[0].(recordMsg)
	if !ok {
		t.Fatalf("expected recordMsg, got %T", p.msgs[0])
	}
	if msg.channel != "gps_data" || msg.kind != telemetry.KindGPS || !strings.Contains(msg.line, rec.ID.String()) {
		t.Fatalf("unexpected message %+v", msg)
	}
	w.ObserveTick(Status{Ticks: 1})
	if _, ok := p.msgs[1].(statusMsg); !ok {
		t.Fatalf("expected statusMsg, got %T", p.msgs[1])
	}
}

func TestTUIModelCountsRecords(t *testing.T) {
	m := newTUIModel(config.Default())
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = mi.(tuiModel)
	for i := 0; i < 3; i++ {
		mi, _ = m.Update(recordMsg{channel: "vehicle_data", kind: telemetry.KindVehicle, line: "vehicle line"})
		m = mi.(tuiModel)
	}
	mi, _ = m.Update(statusMsg{Status{DeviceID: "car-7", Ticks: 3, Emitted: 3, Running: true}})
	m = mi.(tuiModel)

	if m.counts[telemetry.KindVehicle] != 3 {
		t.Fatalf("vehicle count = %d, want 3", m.counts[telemetry.KindVehicle])
	}
	if got := m.table.Rows()[0]; got[0] != "vehicle" || got[1] != "vehicle_data" || got[2] != "3" {
		t.Fatalf("unexpected table row %v", got)
	}
	view := m.View()
	if !strings.Contains(view, "car-7") || !strings.Contains(view, "tick 3") {
		t.Fatalf("header missing progress: %q", view)
	}
}

func TestTUIWrapToggle(t *testing.T) {
	m := newTUIModel(config.Default())
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 30})
	m = mi.(tuiModel)
	mi, _ = m.Update(recordMsg{kind: telemetry.KindGPS, line: "one two three four five six"})
	m = mi.(tuiModel)
	if m.wrap {
		t.Fatalf("wrap should start disabled")
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	m = mi.(tuiModel)
	if !m.wrap {
		t.Fatalf("expected wrap enabled")
	}
	if !strings.Contains(m.vp.View(), "four") {
		t.Fatalf("wrapped log lost content: %q", m.vp.View())
	}
}
