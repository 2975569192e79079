package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/genie/internal/formatter"
	"github.com/desertthunder/genie/internal/realtime"
)

// View renders the UI based on the current tab and view state.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.tab == MealPlansTab {
		b.WriteString(m.renderPlans())
	} else {
		b.WriteString(m.renderChat())
	}

	if len(m.notices) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderNotices())
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	} else if m.status != "" {
		b.WriteString("\n")
		b.WriteString(styles.help.Render(m.status))
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.helpKeys()))
	return b.String()
}

func (m *Model) renderHeader() string {
	tabs := make([]string, 0, 2)
	for _, t := range []Tab{MealPlansTab, ChatTab} {
		if t == m.tab {
			tabs = append(tabs, styles.activeTab.Render(t.String()))
		} else {
			tabs = append(tabs, styles.tab.Render(t.String()))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	if m.tab == MealPlansTab {
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, "   ", renderIndicator(m.connState))
	}
	return header
}

// renderIndicator draws the connection status dot and label.
func renderIndicator(s realtime.State) string {
	return styles.stateStyle(s).Render("●") + " " + s.Label()
}

func (m *Model) renderPlans() string {
	if m.planView == DetailView && m.selected != nil {
		return m.planDetail.View()
	}
	if len(m.planList.Items()) == 0 {
		return styles.help.Render("No meal plans yet. Create one with `genie plans create`.")
	}
	return m.planList.View()
}

func (m *Model) renderPlanDetail() {
	if m.selected == nil {
		return
	}
	data, err := formatter.ExportToText(*m.selected)
	if err != nil {
		m.planDetail.SetContent(styles.err.Render(err.Error()))
		return
	}

	body := string(data)
	if lines := strings.SplitN(body, "\n", 2); len(lines) == 2 {
		body = styles.title.Render(lines[0]) + "\n" + lines[1]
	}
	m.planDetail.SetContent(body)
	m.planDetail.GotoTop()
}

func (m *Model) renderChat() string {
	if m.chatView == DetailView && m.chat != nil {
		title := m.chat.Title
		if title == "" {
			title = "New chat"
		}
		prompt := m.input.View()
		if m.sending {
			prompt = m.spinner.View() + " " + styles.help.Render("Genie is thinking...")
		}
		return fmt.Sprintf("%s\n%s\n\n%s", styles.title.Render(title), m.thread.View(), prompt)
	}
	if m.chatsReady && len(m.chatList.Items()) == 0 {
		return styles.help.Render("No chats yet. Press n to start one.")
	}
	return m.chatList.View()
}

func (m *Model) renderThread() {
	if m.chat == nil {
		return
	}
	var b strings.Builder
	for i, msg := range m.chat.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		author := styles.assistant.Render(msg.Author())
		if msg.IsUser {
			author = styles.user.Render(msg.Author())
		}
		content := msg.Content
		if m.thread.Width > 0 {
			content = lipgloss.NewStyle().Width(m.thread.Width).Render(content)
		}
		b.WriteString(author + "\n" + content)
	}
	if len(m.chat.Messages) == 0 {
		b.WriteString(styles.help.Render("Say hello to Genie."))
	}
	m.thread.SetContent(b.String())
	m.thread.GotoBottom()
}

func (m *Model) renderNotices() string {
	lines := make([]string, len(m.notices))
	for i, n := range m.notices {
		style := styles.notice.BorderForeground(styles.ok.GetForeground())
		if n.failed {
			style = styles.notice.BorderForeground(styles.err.GetForeground())
		}
		lines[i] = style.Render(n.text)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) helpKeys() []key.Binding {
	switch {
	case m.tab == MealPlansTab && m.planView == DetailView:
		return []key.Binding{m.keys.up, m.keys.down, m.keys.back, m.keys.tab, m.keys.quit}
	case m.tab == MealPlansTab:
		return []key.Binding{m.keys.enter, m.keys.refresh, m.keys.tab, m.keys.quit}
	case m.chatView == DetailView:
		return []key.Binding{m.keys.send, m.keys.back, m.keys.tab}
	default:
		return []key.Binding{m.keys.enter, m.keys.newChat, m.keys.delete, m.keys.refresh, m.keys.tab, m.keys.quit}
	}
}
