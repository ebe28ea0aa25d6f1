package command

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"indexchan/internal/core/indexer"
)

var (
	dashboardTitleStyle = lipgloss.NewStyle().
				MarginLeft(2).
				Foreground(lipgloss.Color("#3B82F6")).
				Bold(true).
				Render

	dashboardDocStyle = lipgloss.NewStyle().Margin(1, 2)

	dashboardOKStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#10B981")).
				Bold(true)

	dashboardWarnStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FBBF24")).
				Bold(true)

	dashboardErrStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F87171")).
				Bold(true)

	dashboardStatusStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#64748B")).
				Italic(true)
)

type deadItem struct {
	name, desc string
}

func (i deadItem) Title() string       { return i.name }
func (i deadItem) Description() string { return i.desc }
func (i deadItem) FilterValue() string { return i.name + i.desc }

type watchRescanMsg struct {
	result indexer.ScanResult
	err    error
}

type watchModel struct {
	deadList   list.Model
	fileCount  int
	refCount   int
	lastUpdate time.Time
	lastErr    error
	scans      int
}

func newWatchModel() watchModel {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Dead entities"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	return watchModel{deadList: l}
}

func (m watchModel) Init() tea.Cmd { return nil }

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := dashboardDocStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 6
		if height < 5 {
			height = 5
		}
		m.deadList.SetSize(width, height)
	case watchRescanMsg:
		m.scans++
		m.lastUpdate = time.Now()
		m.lastErr = msg.err
		if msg.err == nil {
			m.fileCount = len(msg.result.Files)
			m.refCount = msg.result.Refresh.References
			items := make([]list.Item, 0, len(msg.result.Analysis.Dead))
			for _, d := range msg.result.Analysis.Dead {
				items = append(items, deadItem{
					name: fmt.Sprintf("[%s] %s", d.Tier, d.Entity.FullName),
					desc: fmt.Sprintf("%s:%d  %s", d.Entity.File, d.Entity.Location.Line, d.Reason),
				})
			}
			m.deadList.SetItems(items)
		}
	}

	var cmd tea.Cmd
	m.deadList, cmd = m.deadList.Update(msg)
	return m, cmd
}

func (m watchModel) View() string {
	status := dashboardStatusStyle.Render(fmt.Sprintf(
		"scans: %d | last: %s | files: %d | refs: %d",
		m.scans, formatScanTime(m.lastUpdate), m.fileCount, m.refCount,
	))

	var summary string
	switch {
	case m.lastErr != nil:
		summary = dashboardErrStyle.Render("scan failed: " + m.lastErr.Error())
	case m.deadList.Items() == nil || len(m.deadList.Items()) == 0:
		summary = dashboardOKStyle.Render("no dead code detected")
	default:
		summary = dashboardWarnStyle.Render(fmt.Sprintf("%d dead entities", len(m.deadList.Items())))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", dashboardTitleStyle("indexchan watch"), status, summary)
	help := dashboardStatusStyle.Render("tab/j/k: navigate  /: filter  q: quit")

	return dashboardDocStyle.Render(header + "\n" + help + "\n\n" + m.deadList.View())
}

func formatScanTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("15:04:05")
}

// runWatchDashboard drives eng.Watch in the background and renders each
// rescan as a live bubbletea dashboard, stopping the watcher when the user
// quits the TUI.
func runWatchDashboard(eng *indexer.Engine) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := tea.NewProgram(newWatchModel(), tea.WithAltScreen())

	go func() {
		_ = eng.Watch(ctx, func(res indexer.ScanResult, err error) {
			p.Send(watchRescanMsg{result: res, err: err})
		})
	}()

	_, err := p.Run()
	stop()
	return err
}
