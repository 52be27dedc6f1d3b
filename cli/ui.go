package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/bsmithyman/galoshes/dispatch"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"
)

// runWithStatusUI runs the dispatch in the background while a terminal
// status view owns the screen. Subprocess output is captured per target
// instead of being streamed to stdout.
func runWithStatusUI(d *dispatch.Dispatcher, executor *dispatch.ShellExecutor, names []string) error {
	statusMgr := d.StatusManager()
	executor.Lines = statusMgr.AppendLog
	d.SetOutput(io.Discard)

	var dispatchErr error
	done := make(chan struct{})
	go func() {
		dispatchErr = d.Dispatch(names...)
		close(done)
	}()

	p := tea.NewProgram(newStatusModel(statusMgr))
	go func() {
		<-done
		// Leave the final states on screen for a beat before quitting.
		time.Sleep(500 * time.Millisecond)
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	<-done
	return dispatchErr
}

type statusModel struct {
	viewport      viewport.Model
	statusMgr     dispatch.StatusManager
	done          bool
	selectedIdx   int
	logView       viewport.Model
	showingLogs   bool
	logAutoscroll bool
}

func newStatusModel(statusMgr dispatch.StatusManager) *statusModel {
	return &statusModel{
		viewport:      viewport.New(160, 40),
		statusMgr:     statusMgr,
		selectedIdx:   0,
		logView:       viewport.New(160, 20),
		logAutoscroll: true,
	}
}

func (m *statusModel) Init() tea.Cmd {
	return tickCmd()
}

func (m *statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.done = true
			return m, tea.Quit
		case "up", "k":
			if !m.showingLogs {
				if count := len(m.targetNames()); count > 0 {
					m.selectedIdx = (m.selectedIdx - 1 + count) % count
				}
			} else {
				m.logAutoscroll = false
				m.logView, cmd = m.logView.Update(msg)
				cmds = append(cmds, cmd)
			}
		case "down", "j":
			if !m.showingLogs {
				if count := len(m.targetNames()); count > 0 {
					m.selectedIdx = (m.selectedIdx + 1) % count
				}
			} else {
				m.logView, cmd = m.logView.Update(msg)
				cmds = append(cmds, cmd)
			}
		case "enter", " ":
			m.showingLogs = !m.showingLogs
			if m.showingLogs {
				m.logAutoscroll = true
				m.updateLogView()
			}
		case "esc":
			m.showingLogs = false
		}
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 1
		m.logView.Width = msg.Width
		m.logView.Height = msg.Height / 2
		return m, nil
	case tickMsg:
		if !m.done {
			cmds = append(cmds, tickCmd())
		}
	}

	if !m.showingLogs {
		m.viewport.SetContent(m.statusView())
	} else if m.logAutoscroll {
		m.updateLogView()
	}
	return m, tea.Batch(cmds...)
}

func (m *statusModel) View() string {
	if m.done {
		return "Exiting...\n"
	}
	var sb strings.Builder
	sb.WriteString(m.viewport.View())
	if m.showingLogs {
		sb.WriteString("\n\nOutput:\n")
		sb.WriteString(m.logView.View())
	}
	sb.WriteString("\n\033[1mPress q to quit, enter/space to toggle logs, up/down or j/k to navigate\033[0m")
	return sb.String()
}

func (m *statusModel) targetNames() []string {
	snapshot := m.statusMgr.Snapshot()
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *statusModel) statusView() string {
	var sb strings.Builder
	sb.WriteString("Galoshes Status Report\n\n")

	snapshot := m.statusMgr.Snapshot()
	names := m.targetNames()

	for i, name := range names {
		status := snapshot[name]

		var duration time.Duration
		if !status.EndTime.IsZero() {
			duration = status.EndTime.Sub(status.StartTime)
		} else if !status.StartTime.IsZero() {
			duration = time.Since(status.StartTime)
		}

		statusColor := lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
		switch status.Status {
		case dispatch.StatusCompleted:
			statusColor = statusColor.Foreground(lipgloss.Color("82"))
		case dispatch.StatusFailed:
			statusColor = statusColor.Foreground(lipgloss.Color("160"))
		case dispatch.StatusSkipped:
			statusColor = statusColor.Foreground(lipgloss.Color("243"))
		}

		label := string(status.Status)
		if status.UpToDate {
			label += " [up to date]"
		}

		prefix := "  "
		if i == m.selectedIdx {
			prefix = "> "
		}

		sb.WriteString(fmt.Sprintf(
			"%s%-20s | %-24s | %-10s\n",
			prefix,
			name,
			statusColor.Render(label),
			duration.Round(time.Millisecond),
		))
	}

	return sb.String()
}

func (m *statusModel) updateLogView() {
	names := m.targetNames()
	if m.selectedIdx >= len(names) {
		return
	}

	status, ok := m.statusMgr.Get(names[m.selectedIdx])
	if !ok {
		return
	}

	logContent := strings.Join(status.LogLines, "\n")
	if logContent == "" {
		m.logView.SetContent("This target has not produced output yet")
	} else {
		m.logView.SetContent(logContent)
	}
	if m.logAutoscroll {
		m.logView.GotoBottom()
	}
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
