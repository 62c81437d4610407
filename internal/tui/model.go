package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/handoff/internal/config"
	"github.com/Iron-Ham/handoff/internal/dispatch"
	"github.com/Iron-Ham/handoff/internal/errors"
	"github.com/Iron-Ham/handoff/internal/logging"
	"github.com/Iron-Ham/handoff/internal/owner"
	"github.com/Iron-Ham/handoff/internal/task"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type rowState int

const (
	stateRunning rowState = iota
	stateSucceeded
	stateFailed
	stateAbandoned
)

func (s rowState) String() string {
	switch s {
	case stateRunning:
		return "running"
	case stateSucceeded:
		return "done"
	case stateFailed:
		return "failed"
	case stateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// taskKind selects how a demo task ends.
type taskKind int

const (
	kindSucceed taskKind = iota
	kindFail
	kindPanic
)

// progressSteps is how many progress reports a demo task makes.
const progressSteps = 4

// row is one task on screen. Listeners update it on the delivery context.
type row struct {
	id       task.ID
	screen   string
	kind     taskKind
	state    rowState
	progress int
	detail   string
	started  time.Time
}

// Model is the bubbletea model of the demo. Each screen is a child scope of
// the program scope; closing a screen deactivates its scope, which discards
// the screen's pending tasks.
type Model struct {
	d      *dispatch.Dispatcher
	root   *owner.Scope
	screen *owner.Scope
	logger *logging.Logger

	screens int
	rows    []*row
	delay   time.Duration
	maxRows int

	spinner spinner.Model
	width   int
	height  int
	status  string
}

// NewModel creates the demo model. root is the program-wide scope; the
// first screen is created as its child.
func NewModel(d *dispatch.Dispatcher, root *owner.Scope, cfg *config.Config, logger *logging.Logger) Model {
	if logger == nil {
		logger = logging.NopLogger()
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = stateStyles[stateRunning]

	m := Model{
		d:       d,
		root:    root,
		logger:  logger.WithPhase("tui"),
		delay:   cfg.TUI.TaskDelay(),
		maxRows: cfg.TUI.MaxRows,
		spinner: s,
	}
	m.openScreen()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case deliveryMsg:
		m.d.Deliver(msg.msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case configChangedMsg:
		m.reloadConfig(msg.path)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "n":
		m.spawn(kindSucceed)
	case "f":
		m.spawn(kindFail)
	case "p":
		m.spawn(kindPanic)
	case "c":
		m.closeScreen()
	case "q", "ctrl+c":
		m.root.Deactivate()
		return m, tea.Quit
	}
	return m, nil
}

// openScreen makes a new child scope the current owner.
func (m *Model) openScreen() {
	m.screens++
	m.screen = m.root.NewChild(fmt.Sprintf("screen-%d", m.screens))
}

// closeScreen deactivates the current screen. Its running tasks are marked
// abandoned; an outcome already queued ahead of the stop may still arrive
// and is ignored.
func (m *Model) closeScreen() {
	closed := m.screen
	closed.Deactivate()

	abandoned := 0
	for _, r := range m.rows {
		if r.screen == closed.Name() && r.state == stateRunning {
			r.state = stateAbandoned
			r.detail = "owner closed"
			abandoned++
		}
	}
	m.logger.Info("screen closed", "screen", closed.Name(), "abandoned", abandoned)

	m.openScreen()
	m.status = fmt.Sprintf("closed %s, %d task(s) abandoned", closed.Name(), abandoned)
}

func (m *Model) spawn(kind taskKind) {
	r := &row{
		screen:  m.screen.Name(),
		kind:    kind,
		state:   stateRunning,
		started: time.Now(),
	}

	h := m.d.Register(m.screen, demoWork(kind, m.delay)).
		OnProgress(func(p any) {
			if pct, ok := p.(int); ok && r.state == stateRunning {
				r.progress = pct
			}
		}).
		OnSuccess(func(v any) {
			if r.state == stateAbandoned {
				return
			}
			r.state = stateSucceeded
			r.progress = 100
			r.detail = fmt.Sprint(v)
		}).
		OnFailure(func(err error) {
			if r.state == stateAbandoned {
				return
			}
			r.state = stateFailed
			if errors.Is(err, errors.ErrWorkPanicked) {
				r.detail = "panicked"
			} else {
				r.detail = err.Error()
			}
		})
	r.id = h.ID()

	if err := h.Submit(); err != nil {
		m.status = err.Error()
		return
	}

	m.rows = append(m.rows, r)
	if m.maxRows > 0 && len(m.rows) > m.maxRows {
		m.rows = m.rows[len(m.rows)-m.maxRows:]
	}
}

// reloadConfig applies the settings that can change while running.
func (m *Model) reloadConfig(path string) {
	cfg, err := config.Load()
	if err != nil {
		m.status = "config reload failed: " + err.Error()
		m.logger.Warn("config reload failed", "path", path, "error", err)
		return
	}
	m.logger.SetLevel(cfg.Logging.Level)
	m.delay = cfg.TUI.TaskDelay()
	m.maxRows = cfg.TUI.MaxRows
	m.status = "config reloaded"
	m.logger.Info("config reloaded", "path", path, "level", cfg.Logging.Level)
}

// demoWork sleeps through progressSteps steps, reporting a percentage after
// each, and then ends the way kind asks.
func demoWork(kind taskKind, delay time.Duration) task.Work {
	return func(ctx context.Context) (any, error) {
		step := delay / progressSteps
		for i := 1; i < progressSteps; i++ {
			time.Sleep(step)
			dispatch.Report(ctx, i*100/progressSteps)
		}
		time.Sleep(step)

		id, _ := dispatch.TaskID(ctx)
		switch kind {
		case kindFail:
			return nil, fmt.Errorf("task %s gave up", id)
		case kindPanic:
			panic(fmt.Sprintf("task %s blew up", id))
		default:
			return fmt.Sprintf("task %s finished", id), nil
		}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("handoff"))
	b.WriteString("\n")

	stats := m.d.Stats()
	b.WriteString(headerStyle.Render(fmt.Sprintf(
		"owner %s  pending %d  ok %d  failed %d  dropped %d  discarded %d",
		m.screen.Name(), stats.Pending, stats.Succeeded, stats.Failed, stats.Dropped, stats.Discarded,
	)))
	b.WriteString("\n\n")

	box := boxStyle
	if m.width > 0 {
		box = box.MaxWidth(m.width)
	}
	b.WriteString(box.Render(m.renderRows()))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("n: task  f: failing task  p: panicking task  c: close screen  q: quit"))
	return b.String()
}

func (m Model) renderRows() string {
	if len(m.rows) == 0 {
		return headerStyle.Render("no tasks yet")
	}

	lines := make([]string, 0, len(m.rows))
	for _, r := range m.rows {
		marker := " "
		if r.state == stateRunning {
			marker = m.spinner.View()
		}
		line := fmt.Sprintf("%s #%-4s %-10s %-9s %3d%%  %s",
			marker, r.id, r.screen, r.state, r.progress, r.detail)
		lines = append(lines, stateStyles[r.state].Render(line))
	}
	return strings.Join(lines, "\n")
}
