package expirywatch

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trubax/trubax-core/internal/service"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	expiredStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

type tickMsg time.Time

type confirmMsg struct {
	expired bool
	err     error
}

// model renders a live countdown to the anonymous-session deadline. The
// countdown is presentation only; expiry is declared when the server
// confirms it.
type model struct {
	ctx       context.Context
	accountID string
	advisor   *service.ExpiryAdvisor

	remaining  time.Duration
	confirming bool
	expired    bool
	lastErr    error
}

func newModel(ctx context.Context, accountID string, advisor *service.ExpiryAdvisor) model {
	return model{
		ctx:       ctx,
		accountID: accountID,
		advisor:   advisor,
		remaining: advisor.Remaining(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		m.remaining = m.advisor.Remaining()
		if m.remaining == 0 && !m.confirming && !m.expired {
			m.confirming = true
			return m, tea.Batch(tick(), m.confirm())
		}
		return m, tick()
	case confirmMsg:
		m.confirming = false
		m.lastErr = msg.err
		if msg.err == nil && msg.expired {
			m.expired = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) confirm() tea.Cmd {
	return func() tea.Msg {
		expired, err := m.advisor.Confirm(m.ctx)
		return confirmMsg{expired: expired, err: err}
	}
}

func (m model) View() string {
	title := titleStyle.Render("session expiry for " + m.accountID)

	var status string
	switch {
	case m.expired:
		status = expiredStyle.Render("expired (confirmed by server)")
	case m.remaining == 0:
		status = warnStyle.Render("deadline passed, awaiting server confirmation")
	default:
		status = valueStyle.Render(formatCountdown(m.remaining))
	}

	out := fmt.Sprintf("%s\n\n  deadline  %s\n  remaining %s\n",
		title,
		valueStyle.Render(m.advisor.Deadline().Format(time.RFC3339)),
		status,
	)
	if m.lastErr != nil {
		out += "\n  " + warnStyle.Render("last confirmation failed: "+m.lastErr.Error()) + "\n"
	}
	out += "\n" + helpStyle.Render("q to quit")
	return out
}

func formatCountdown(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
