package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/realtime"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style

	tab       lipgloss.Style
	activeTab lipgloss.Style
	notice    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),

		tab:       NewStyle(h).Padding(0, 2),
		activeTab: NewBold(t).Padding(0, 2).Underline(true),
		notice:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		user:      NewBold(t),
		assistant: NewBold(s),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// stateStyle colors the indicator dot: green connected, yellow connecting, red disconnected.
func (p *Palette) stateStyle(s realtime.State) lipgloss.Style {
	switch s {
	case realtime.Connected:
		return p.ok
	case realtime.Connecting:
		return p.warn
	default:
		return p.err
	}
}

// statusBadge renders a plan status with its color.
func (p *Palette) statusBadge(s models.MealPlanStatus) string {
	switch s {
	case models.StatusCompleted:
		return p.ok.Render("✓ completed")
	case models.StatusError:
		return p.err.Render("✗ error")
	default:
		return p.warn.Render("… " + s.String())
	}
}
