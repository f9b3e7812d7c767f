package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/overlay/scheduler"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// renderInterval is how often the chart is redrawn. Markers are placed by
// the overlay goroutines between frames, so the UI repaints on a timer
// rather than on every overlay mutation.
const renderInterval = 200 * time.Millisecond

// headerLines is the vertical space reserved above the chart.
const headerLines = 4

// footerLines is the vertical space reserved below the chart.
const footerLines = 3

// Model is the dashboard's bubbletea model. The overlay engine runs its own
// goroutines; the model only reads the chart and relays user input.
type Model struct {
	chart  *Chart
	engine *scheduler.Engine

	symbols     []string
	intervals   []string
	symbolIdx   int
	intervalIdx int

	status      types.BotStatus
	haveStatus  bool
	engineState scheduler.State

	hoverIdx int
	hovering bool

	spinner spinner.Model
	width   int
	height  int
	lastErr string
}

// NewModel builds the dashboard model around a running chart and engine.
// symbols is the cycle order for the tab key; the bootstrap selection must
// be present in it.
func NewModel(chart *Chart, engine *scheduler.Engine, symbols []string) Model {
	intervals := types.SupportedIntervals()
	selection := engine.Selection()

	model := Model{
		chart:     chart,
		engine:    engine,
		symbols:   symbols,
		intervals: intervals,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}

	for i, symbol := range symbols {
		if symbol == selection.Symbol {
			model.symbolIdx = i
		}
	}

	for i, interval := range intervals {
		if interval == selection.Interval {
			model.intervalIdx = i
		}
	}

	return model
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(renderTick(), m.spinner.Tick)
}

// renderTick schedules the next chart repaint.
func renderTick() tea.Cmd {
	return tea.Tick(renderInterval, func(t time.Time) tea.Msg {
		return renderTickMsg{At: t}
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.SetSize(msg.Width, msg.Height-headerLines-footerLines)

		return m, nil

	case botStatusMsg:
		m.status = msg.Status
		m.haveStatus = true

		return m, nil

	case engineStateMsg:
		m.engineState = msg.State

		return m, nil

	case selectionFailedMsg:
		m.lastErr = msg.Err.Error()

		return m, nil

	case renderTickMsg:
		return m, renderTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

// handleKey routes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.engine.Stop()

		return m, tea.Quit

	case "left":
		m.chart.Pan(-5)

	case "right":
		m.chart.Pan(5)

	case "-":
		m.chart.Zoom(10)

	case "+", "=":
		m.chart.Zoom(-10)

	case "tab":
		m.symbolIdx = (m.symbolIdx + 1) % len(m.symbols)
		m = m.applySelection()

	case "shift+tab":
		m.symbolIdx = (m.symbolIdx - 1 + len(m.symbols)) % len(m.symbols)
		m = m.applySelection()

	case "i":
		m.intervalIdx = (m.intervalIdx + 1) % len(m.intervals)
		m = m.applySelection()

	case "m":
		if _, ok := m.chart.HoverMarker(m.hoverIdx); ok {
			m.hovering = true
			m.hoverIdx++
			m.lastErr = ""
		}

	case "esc":
		if m.hovering {
			m.chart.LeaveAll()
			m.hovering = false
			m.hoverIdx = 0
		}
	}

	return m, nil
}

// applySelection pushes the currently cycled symbol/interval to the engine.
func (m Model) applySelection() Model {
	selection := types.Selection{
		Symbol:   m.symbols[m.symbolIdx],
		Interval: m.intervals[m.intervalIdx],
	}

	if err := m.engine.SetSelection(selection); err != nil {
		m.lastErr = err.Error()

		return m
	}

	m.lastErr = ""
	m.hovering = false
	m.hoverIdx = 0

	return m
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	selection := m.engine.Selection()

	b.WriteString(titleStyle.Render("Binance Trading Bot"))
	b.WriteString("  ")
	b.WriteString(statusStyle.Render(selection.String()))
	b.WriteString("  ")
	b.WriteString(statusStyle.Render(m.engineState.String()))

	if m.engineState == scheduler.StateLoading {
		b.WriteString(" ")
		b.WriteString(m.spinner.View())
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")
	b.WriteString(m.chart.Render())
	b.WriteString("\n")

	if m.lastErr != "" {
		b.WriteString(errorStyle.Render(m.lastErr))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("←/→ pan  +/- zoom  tab symbol  i interval  m hover  esc dismiss  q quit"))

	return b.String()
}

// statusLine summarizes the latest bot status poll.
func (m Model) statusLine() string {
	if !m.haveStatus {
		return statusStyle.Render("waiting for bot status...")
	}

	running := "stopped"
	if m.status.IsRunning {
		running = "running"
	}

	line := fmt.Sprintf("bot %s  mode %s  balance %s USDT  positions %d  daily ",
		running,
		m.status.Mode,
		m.status.Account.TotalWalletBalance.StringFixed(2),
		len(m.status.Positions),
	)

	return statusStyle.Render(line) + formatPnL(m.status.PnL.Daily, "%")
}
