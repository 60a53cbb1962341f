package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/forcelayout/declutter/pkg/layout"
)

// Dashboard cadence: how often the model ticks and how many simulation
// steps each tick advances. 25 steps at 50ms plays a 600-step run back in
// a bit over a second, slow enough to watch the energies move.
const (
	watchTickInterval = 50 * time.Millisecond
	watchStepsPerTick = 25
)

var (
	watchLabelStyle  = lipgloss.NewStyle().Foreground(colorGray).Width(14)
	watchValueStyle  = lipgloss.NewStyle().Foreground(colorWhite)
	watchNumberStyle = lipgloss.NewStyle().Foreground(colorCyan)
	watchDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

// watchTickMsg advances the simulation one slice.
type watchTickMsg time.Time

func watchTick() tea.Cmd {
	return tea.Tick(watchTickInterval, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

// statusLine receives the simulation's service messages. The simulation
// only steps inside Update, so writes and reads share the tea goroutine.
type statusLine struct {
	text string
}

// WatchModel is the bubbletea model that drives a simulation and renders
// its diagnostics live. Keys: q cancels a running simulation (the outcome
// shows as canceled), and quits once it has stopped; ctrl+c always quits.
type WatchModel struct {
	ctx    context.Context
	sim    *layout.Simulation
	status *statusLine

	latest  layout.Sample
	sampled bool
	history []float64 // total energy per sample, for the trend strip
	done    bool
}

// NewWatchModel wires a model around a simulation. Construct the simulation
// with [WatchServices] so status messages reach the dashboard.
func NewWatchModel(ctx context.Context, sim *layout.Simulation, status *statusLine) WatchModel {
	return WatchModel{ctx: ctx, sim: sim, status: status}
}

// WatchServices builds the Services implementation a watched simulation
// should be constructed with, and the status line the model reads back.
func WatchServices() (layout.Services, *statusLine) {
	status := &statusLine{}
	svc := layout.ServiceFuncs{
		Message: func(text string) { status.text = text },
	}
	return svc, status
}

func (m WatchModel) Init() tea.Cmd {
	m.sim.Init(m.ctx)
	return watchTick()
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q", "esc":
			if m.done {
				return m, tea.Quit
			}
			m.sim.Cancel(m.ctx)
		}

	case watchTickMsg:
		if m.done {
			return m, nil
		}
		for i := 0; i < watchStepsPerTick; i++ {
			if !m.sim.Step(m.ctx) {
				m.done = true
				break
			}
		}
		for _, s := range m.sim.Samples().Drain() {
			m.latest = s
			m.sampled = true
			m.history = append(m.history, s.TotalEnergy)
		}
		if m.done {
			// One last snapshot so the final state is on screen even when
			// the run stopped between sampling periods.
			m.latest = m.sim.Diagnostics()
			m.sampled = true
			return m, nil
		}
		return m, watchTick()
	}
	return m, nil
}

func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Declutter"))
	b.WriteString("\n")
	if m.done {
		b.WriteString(watchDimStyle.Render("q quit"))
	} else {
		b.WriteString(watchDimStyle.Render("q cancel  ctrl+c quit"))
	}
	b.WriteString("\n\n")

	g := m.sim.Graph()
	writeWatchRow(&b, "Graph", fmt.Sprintf("%d servers · %d clients · %d printers · %d edges",
		g.ServerCount(), g.ClientCount(), g.PrinterCount(), len(g.Edges())))
	writeWatchRow(&b, "Step", fmt.Sprintf("%d / %d", m.sim.StepCount(), m.sim.Params().MaxSteps))

	outcome := m.sim.Outcome().String()
	if m.done {
		switch m.sim.Outcome() {
		case layout.Settled:
			outcome = StyleSuccess.Render(outcome)
		default:
			outcome = StyleWarning.Render(outcome)
		}
	}
	writeWatchRow(&b, "Outcome", outcome)
	b.WriteString("\n")

	if m.sampled {
		b.WriteString(energyTable(m.latest))
		b.WriteString("\n\n")
		writeWatchRow(&b, "Mean speed", fmt.Sprintf("%.5f", m.latest.MeanSpeed))
		writeWatchRow(&b, "RMS force", fmt.Sprintf("%.5f", m.latest.RMSForce))
		writeWatchRow(&b, "Clamp hits", fmt.Sprintf("%.0f%%", m.latest.ClampFraction*100))
		writeWatchRow(&b, "Separation", fmt.Sprintf("%.3f", m.latest.MinSeparation))
		b.WriteString("\n")
		b.WriteString(watchDimStyle.Render("energy " + trendStrip(m.history)))
		b.WriteString("\n")
	} else {
		b.WriteString(watchDimStyle.Render("waiting for the first sample..."))
		b.WriteString("\n")
	}

	if m.status.text != "" {
		b.WriteString("\n")
		b.WriteString(watchDimStyle.Render(m.status.text))
		b.WriteString("\n")
	}

	return b.String()
}

func writeWatchRow(b *strings.Builder, label, value string) {
	b.WriteString(watchLabelStyle.Render(label))
	b.WriteString(" ")
	b.WriteString(watchValueStyle.Render(value))
	b.WriteString("\n")
}

// energyTable renders the pseudo-energy decomposition of one sample.
func energyTable(s layout.Sample) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Term", "Energy").
		Rows(
			[]string{"spring", fmt.Sprintf("%.4f", s.SpringEnergy)},
			[]string{"repulsion", fmt.Sprintf("%.4f", s.RepulsionEnergy)},
			[]string{"centering", fmt.Sprintf("%.4f", s.CenterEnergy)},
			[]string{"kinetic", fmt.Sprintf("%.4f", s.KineticEnergy)},
			[]string{"total", fmt.Sprintf("%.4f", s.TotalEnergy)},
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 1 {
				return watchNumberStyle
			}
			return watchValueStyle
		})

	return t.Render()
}

// trendStrip draws the sampled total energies as a coarse sparkline, capped
// to the most recent entries.
func trendStrip(history []float64) string {
	const width = 40
	if len(history) == 0 {
		return ""
	}
	if len(history) > width {
		history = history[len(history)-width:]
	}

	lo, hi := history[0], history[0]
	for _, v := range history {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	ramp := []rune("▁▂▃▄▅▆▇█")
	var b strings.Builder
	for _, v := range history {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(ramp)-1))
		}
		b.WriteRune(ramp[idx])
	}
	return b.String()
}
