// Package tui renders the terminal task board. It is a thin front end over
// the same store and control service the web surface uses.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ralphloop/ralph/internal/config"
	"github.com/ralphloop/ralph/internal/control"
	"github.com/ralphloop/ralph/internal/dispatch"
	"github.com/ralphloop/ralph/internal/task"
)

const refreshEvery = 2 * time.Second

type tickMsg time.Time

// Model is the Bubble Tea model for the board.
type Model struct {
	cfg   config.Config
	store *task.Store
	ctrl  *control.Service

	tasks    []task.Task
	status   dispatch.Status
	cursor   int
	expanded bool

	adding bool
	input  textinput.Model

	width  int
	height int
	err    error
}

// Run starts the board over the given store and blocks until the user quits.
func Run(cfg config.Config, store *task.Store) error {
	p := tea.NewProgram(NewModel(cfg, store), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// NewModel builds the initial board model.
func NewModel(cfg config.Config, store *task.Store) Model {
	ti := textinput.New()
	ti.Placeholder = "Describe the task..."
	ti.CharLimit = 500
	ti.Width = 60

	m := Model{
		cfg:   cfg,
		store: store,
		ctrl:  control.NewService(store, cfg.Workspace),
		input: ti,
	}
	m.reload()
	return m
}

func (m *Model) reload() {
	list, err := m.store.Load()
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.tasks = list.Tasks
	m.status = dispatch.ReadStatus(dispatch.StatusFile(m.cfg.TasksFile))
	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.reload()
		return m, tick()

	case tea.KeyMsg:
		if m.adding {
			return m.updateAdding(msg)
		}
		return m.updateBoard(msg)
	}
	return m, nil
}

func (m Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.adding = false
		m.input.Reset()
		return m, nil
	case "enter":
		if _, err := m.ctrl.Add(m.input.Value(), task.PriorityMedium); err != nil && err != control.ErrEmptyPrompt {
			m.err = err
		}
		m.adding = false
		m.input.Reset()
		m.reload()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
	case "enter":
		m.expanded = !m.expanded
	case "n":
		m.adding = true
		m.input.Focus()
		return m, textinput.Blink
	case "a":
		m.act(m.ctrl.Approve)
	case "x":
		m.actReject()
	case "c":
		m.act(m.ctrl.Cancel)
	case "r":
		m.act(m.ctrl.Retry)
	case "d":
		m.act(m.ctrl.Delete)
	case "p":
		m.act(m.ctrl.ApprovePush)
	case "s":
		m.act(m.ctrl.RejectPush)
	}
	return m, nil
}

func (m *Model) act(op func(int) error) {
	if m.cursor >= len(m.tasks) {
		return
	}
	if err := op(m.tasks[m.cursor].ID); err != nil {
		m.err = err
	}
	m.reload()
}

func (m *Model) actReject() {
	if m.cursor >= len(m.tasks) {
		return
	}
	if err := m.ctrl.Reject(m.tasks[m.cursor].ID, ""); err != nil {
		m.err = err
	}
	m.reload()
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := TitleStyle.Render(fmt.Sprintf("Task Board — dispatcher %s", m.status.State))
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(ErrorStyle.Render("error: "+m.err.Error()) + "\n\n")
	}

	if m.adding {
		b.WriteString("New task (Enter to add, Esc to cancel):\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		return b.String()
	}

	if len(m.tasks) == 0 {
		b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, "No tasks yet."))
		b.WriteString("\n")
		b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center,
			SubtleStyle.Render("Press 'n' to add one.")))
	} else {
		for i, t := range m.tasks {
			b.WriteString(m.formatTaskLine(i, t))
			b.WriteString("\n")
			if m.expanded && i == m.cursor {
				b.WriteString(m.formatDetail(t))
			}
		}
	}

	body := b.String()
	lines := strings.Count(body, "\n") + 1
	padding := m.height - lines - 1
	if padding < 0 {
		padding = 0
	}

	statusItems := []string{"↑↓ Navigate", "Enter Detail", "n New", "a Approve", "x Reject", "r Retry", "c Cancel", "d Delete", "q Quit"}
	return body + strings.Repeat("\n", padding) + m.renderStatusBar(statusItems)
}

func (m Model) formatTaskLine(index int, t task.Task) string {
	indicator := "○"
	if index == m.cursor {
		indicator = "●"
	}

	priority := t.Priority
	if priority == "" {
		priority = task.PriorityMedium
	}

	line := fmt.Sprintf("%s #%-4d %-14s %-6s %s", indicator, t.ID, t.Status, priority, excerpt(t.Prompt, 60))
	if t.Parent != nil {
		line += SubtleStyle.Render(fmt.Sprintf("  (sub of #%d)", *t.Parent))
	}

	switch {
	case index == m.cursor:
		return SelectedStyle.Render(line)
	case t.Status == task.StatusDone:
		return SuccessStyle.Render(line)
	case t.Status == task.StatusFailed:
		return ErrorStyle.Render(line)
	case t.Status == task.StatusPlanReview || t.Status == task.StatusPushReview:
		return ReviewStyle.Render(line)
	default:
		return line
	}
}

func (m Model) formatDetail(t task.Task) string {
	var b strings.Builder
	if t.Plan != "" {
		b.WriteString(SubtleStyle.Render("  plan: "+excerpt(t.Plan, 200)) + "\n")
	}
	if t.Summary != "" {
		b.WriteString(SubtleStyle.Render("  summary: "+excerpt(t.Summary, 200)) + "\n")
	}
	for _, s := range t.Sessions {
		b.WriteString(SubtleStyle.Render(fmt.Sprintf("  session: %s %ds exit=%d", s.Mode, s.DurationS, s.ExitCode)) + "\n")
	}
	return b.String()
}

func (m Model) renderStatusBar(items []string) string {
	bar := StatusBarStyle.Render(strings.Join(items, "  |  "))
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, bar)
}

func excerpt(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
