package status

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/activity-ledger/internal/application"
	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now time.Time
}

func renderView(sessions []application.LiveSession, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Live Activities"),
		s.header.Render(fmt.Sprintf("presentations: %d", len(sessions))),
	}

	if len(sessions) == 0 {
		lines = append(lines, s.empty.Render("No live presentations."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, session := range sessions {
		lines = append(lines, s.section.Render(renderSession(session, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(session application.LiveSession, opts RenderOptions, s styles) string {
	if session.Err != nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			s.detail.Render(fmt.Sprintf("presentation %s", session.PresentationID)),
			s.warning.Render(missingLabel(session.Err)),
		)
	}

	attrs := session.Attributes
	theme := attrs.Theme
	card := lipgloss.NewStyle().
		Background(hexColor(blend(theme.BackgroundColor, theme.BackgroundOpacity))).
		Foreground(hexColor(theme.TextColor)).
		Padding(0, paddingCells(theme.Padding))
	button := lipgloss.NewStyle().
		Bold(true).
		Foreground(hexColor(theme.TextColor)).
		Background(hexColor(theme.ButtonColor)).
		Padding(0, 1)

	title := card.Bold(true).Render(sanitize(attrs.ActivityName))
	timer := card.Render(formatElapsed(attrs, opts.Now))

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, title, " ", timer, " ", button.Render("Stop")),
		s.meta.Render(fmt.Sprintf("activity %s · presentation %s", sanitize(string(attrs.ActivityID)), attrs.PresentationID)),
	)
}

func missingLabel(err error) string {
	var missing *domain.MissingAttributesError
	if errors.As(err, &missing) {
		return fmt.Sprintf("[attributes missing: %s]", strings.Join(missing.Fields, ", "))
	}

	return fmt.Sprintf("[attributes unavailable: %v]", err)
}

// formatElapsed mirrors the lock screen timer: minutes and seconds, with
// hours only once the session passes the hour.
func formatElapsed(attrs domain.SessionAttributes, now time.Time) string {
	if now.IsZero() {
		return "started " + attrs.StartedAt().UTC().Format("15:04")
	}

	elapsed := attrs.Elapsed(now).Truncate(time.Second)
	hours := int(elapsed / time.Hour)
	minutes := int(elapsed%time.Hour) / int(time.Minute)
	seconds := int(elapsed%time.Minute) / int(time.Second)
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}

	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// blend applies the opacity over a black terminal background.
func blend(c domain.Color, opacity float64) domain.Color {
	factor := clampUnit(c.Alpha) * clampUnit(opacity)
	return domain.Color{Red: c.Red * factor, Green: c.Green * factor, Blue: c.Blue * factor, Alpha: 1}
}

func hexColor(c domain.Color) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", channel(c.Red), channel(c.Green), channel(c.Blue)))
}

func channel(v float64) int {
	return int(math.Round(clampUnit(v) * 255))
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// paddingCells converts points to terminal cells, roughly one cell per 8pt.
func paddingCells(points float64) int {
	cells := int(math.Round(points / 8))
	if cells < 0 {
		return 0
	}
	if cells > 4 {
		return 4
	}
	return cells
}

func sanitize(value string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, value)
}
