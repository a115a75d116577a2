// Package tui renders a live view of a running tuning session.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/mkrv/smctune/internal/optim"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	costStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// Watch drains iteration snapshots from the optimizer and keeps drawing
// until the channel closes or the user quits. Quitting cancels the run; the
// optimizer still returns its best-so-far.
type Watch struct {
	variant string
	names   []string
	stats   <-chan optim.IterationStats
	cancel  func()

	history []float64
	latest  optim.IterationStats
	seen    bool
	done    bool
	started time.Time
	width   int
}

// NewWatch builds the monitor. names label the gain vector positions in the
// best-gains table; cancel, when non-nil, is invoked on q or ctrl+c.
func NewWatch(variant string, names []string, stats <-chan optim.IterationStats, cancel func()) Watch {
	return Watch{
		variant: variant,
		names:   names,
		stats:   stats,
		cancel:  cancel,
		started: time.Now(),
		width:   80,
	}
}

// Run blocks until the monitor exits.
func Run(w Watch) error {
	_, err := tea.NewProgram(w).Run()
	return err
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (w Watch) Init() tea.Cmd { return tick() }

func (w Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if w.cancel != nil {
				w.cancel()
			}
			return w, tea.Quit
		}
		return w, nil
	case tea.WindowSizeMsg:
		w.width = msg.Width
		return w, nil
	case tickMsg:
		w = w.drain()
		if w.done {
			return w, tea.Quit
		}
		return w, tick()
	}
	return w, nil
}

// drain consumes every snapshot already queued without blocking the UI.
func (w Watch) drain() Watch {
	for {
		select {
		case st, ok := <-w.stats:
			if !ok {
				w.done = true
				return w
			}
			w.latest = st
			w.seen = true
			w.history = append(w.history, st.BestCost)
		default:
			return w
		}
	}
}

func (w Watch) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("tuning " + w.variant))
	b.WriteString(labelStyle.Render(fmt.Sprintf("  %s", time.Since(w.started).Round(time.Second))))
	b.WriteString("\n\n")

	if !w.seen {
		b.WriteString(labelStyle.Render("  waiting for the first iteration...") + "\n")
		return b.String()
	}

	st := w.latest
	b.WriteString(fmt.Sprintf("  %s %s   %s %s   %s %s\n",
		labelStyle.Render("iteration"), valueStyle.Render(fmt.Sprintf("%d", st.Iteration)),
		labelStyle.Render("evals"), valueStyle.Render(fmt.Sprintf("%d", st.Evaluations)),
		labelStyle.Render("best cost"), costStyle.Render(fmt.Sprintf("%.6g", st.BestCost))))
	b.WriteString(fmt.Sprintf("  %s %s\n\n",
		labelStyle.Render("mean cost"), valueStyle.Render(fmt.Sprintf("%.6g", st.MeanCost))))

	if len(w.history) >= 2 {
		graphWidth := w.width - 12
		if graphWidth > 80 {
			graphWidth = 80
		}
		if graphWidth < 20 {
			graphWidth = 20
		}
		b.WriteString(asciigraph.Plot(w.history,
			asciigraph.Height(10),
			asciigraph.Width(graphWidth),
			asciigraph.Caption("best cost"),
		))
		b.WriteString("\n\n")
	}

	if len(st.BestPos) > 0 {
		b.WriteString(labelStyle.Render("  best gains") + "\n")
		for i, g := range st.BestPos {
			name := fmt.Sprintf("g%d", i)
			if i < len(w.names) {
				name = w.names[i]
			}
			b.WriteString(fmt.Sprintf("    %s %s\n",
				labelStyle.Render(fmt.Sprintf("%-10s", name)),
				valueStyle.Render(fmt.Sprintf("%10.4f", g))))
		}
		b.WriteString("\n")
	}

	if w.done {
		b.WriteString(costStyle.Render("  finished") + "\n")
	} else {
		b.WriteString(labelStyle.Render("  q to stop and keep the best so far") + "\n")
	}
	return b.String()
}
