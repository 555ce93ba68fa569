// Package report renders run summaries and stream listings for the console.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"bili-tree/internal/pipeline"
	"bili-tree/internal/streams"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(16)
	valueStyle = lipgloss.NewStyle().Bold(true)
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Summary renders the counters of a pipeline run.
func Summary(stats pipeline.Stats) string {
	rows := []struct {
		label string
		value int64
		warn  bool
	}{
		{"candidates", int64(stats.Candidates), false},
		{"read failures", stats.ReadFailures, stats.ReadFailures > 0},
		{"parse failures", stats.ParseFailures, stats.ParseFailures > 0},
		{"parsed", int64(stats.Parsed), stats.Parsed == 0},
		{"collections", int64(stats.Collections), false},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("scan summary"))
	for _, r := range rows {
		style := valueStyle
		if r.warn {
			style = warnStyle
		}
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(r.label))
		b.WriteString(style.Render(strconv.FormatInt(r.value, 10)))
	}
	return b.String()
}

// Streams renders a table of the streams found for one episode.
func Streams(cid string, list []streams.Stream) string {
	if len(list) == 0 {
		return warnStyle.Render(fmt.Sprintf("no streams found for %s", cid))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("name", "kind", "container", "codec", "size", "duration").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, s := range list {
		duration := ""
		if s.DurationSeconds != nil {
			duration = formatDuration(*s.DurationSeconds)
		}
		t.Row(s.Name, string(s.Kind), s.Container, s.Codec, formatSize(s.Size), duration)
	}
	return titleStyle.Render(cid) + "\n" + t.String()
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	total := int64(seconds + 0.5)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
