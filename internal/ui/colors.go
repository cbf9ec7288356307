package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/modlingo/modlingo/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

// Status picks the style for a task status: green for completed, red for
// failed, dim for expired, amber for anything still in flight.
func (p *Palette) Status(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.StatusCompleted:
		return p.ok
	case models.StatusFailed:
		return p.err
	case models.StatusExpired:
		return p.help
	default:
		return p.warn
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
