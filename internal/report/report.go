// internal/report/report.go
// Package report renders timing reports and journal listings for the terminal.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ColonelBlimp/cwlistener/internal/cw"
	"github.com/ColonelBlimp/cwlistener/internal/journal"
)

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Padding(0, 1)
)

const textPreview = 40

// Timing renders the per-category timing statistics. When styled is false
// the output is the plain "name: Mean: x || Observations: n" form.
func Timing(lines []cw.StatLine, styled bool) string {
	if !styled {
		return cw.FormatTimingReport(lines)
	}

	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{l.Category.String(), formatMean(l), strconv.Itoa(l.Count)})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("category", "mean (units)", "observations").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(lines) && !lines[row].HasMean:
				return mutedStyle
			default:
				return cellStyle
			}
		})
	return t.String() + "\n"
}

// Sessions renders a journal listing, one row per session.
func Sessions(sessions []journal.Session, styled bool) string {
	if !styled {
		var b strings.Builder
		for _, s := range sessions {
			fmt.Fprintf(&b, "%d\t%s\t%s\t%.1f wpm\t%s\t%d unknown\t%q\n",
				s.ID,
				s.StartedAt.Local().Format(time.DateTime),
				s.Duration().Round(time.Second),
				s.WPM,
				s.Source,
				s.Unknown,
				preview(s.Text),
			)
		}
		return b.String()
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.StartedAt.Local().Format(time.DateTime),
			s.Duration().Round(time.Second).String(),
			strconv.FormatFloat(s.WPM, 'f', 1, 64),
			s.Source,
			strconv.Itoa(s.Unknown),
			preview(s.Text),
		})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("id", "started", "duration", "wpm", "source", "unknown", "text").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String() + "\n"
}

func formatMean(l cw.StatLine) string {
	if !l.HasMean {
		return "None"
	}
	return fmt.Sprintf("%.3f", l.Mean)
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) <= textPreview {
		return text
	}
	return string(r[:textPreview-1]) + "…"
}
