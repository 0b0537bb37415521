// Package tui provides the Bubble Tea live-progress view for the run
// command: one row per task showing its current orchestrator state, a
// spinner for in-flight tasks, and a
// running PASS/FAIL tally. It is pure presentation over the state-change
// events the orchestrator already publishes; it has no opinion about how
// a task is actually executed.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/erayyap/scriptbench/orchestrator"
)

// StateMsg is a tea.Msg wrapping one orchestrator state transition. The
// run command's Observer forwards every transition into the running
// tea.Program via this message type.
type StateMsg orchestrator.StateChange

// ResultMsg reports one finished task's outcome for the running
// PASS/FAIL tally in the footer.
type ResultMsg struct {
	TaskID string
	Passed bool
}

// DoneMsg signals that every task has finished and the program should
// exit after rendering its final frame.
type DoneMsg struct{}

type taskRow struct {
	id    string
	state orchestrator.State
}

// ProgressModel is the bubbletea model driving the run command's live
// view. Construct with NewProgressModel and feed it StateMsg/DoneMsg
// values via its own tea.Program.Send.
type ProgressModel struct {
	spinner spinner.Model
	rows    map[string]*taskRow
	order   []string
	passed  int
	failed  int
	done    bool
}

func NewProgressModel(taskIDs []string) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	rows := make(map[string]*taskRow, len(taskIDs))
	order := make([]string, 0, len(taskIDs))
	for _, id := range taskIDs {
		rows[id] = &taskRow{id: id, state: orchestrator.StateInit}
		order = append(order, id)
	}
	sort.Strings(order)
	return ProgressModel{spinner: s, rows: rows, order: order}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		if row, ok := m.rows[msg.TaskID]; ok {
			row.state = msg.State
		}
		return m, nil
	case ResultMsg:
		if msg.Passed {
			m.passed++
		} else {
			m.failed++
		}
		return m, nil
	case DoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("scriptbench run"))
	b.WriteString("\n")
	for _, id := range m.order {
		row := m.rows[id]
		marker := m.spinner.View()
		style := StateStyle(string(row.state))
		if row.state == orchestrator.StateDone {
			marker = "✓"
		}
		fmt.Fprintf(&b, "%s %-24s %s\n", marker, id, style.Render(string(row.state)))
	}
	b.WriteString(HelpStyle.Render(fmt.Sprintf("passed=%d failed=%d total=%d", m.passed, m.failed, len(m.order))))
	return b.String()
}
