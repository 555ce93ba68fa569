package report

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"bili-tree/internal/models"
)

var (
	branchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	groupStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	tabStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Tree renders collections as collection -> title -> tab -> item, one item
// per line as "[p] title m:ss size #cid".
func Tree(collections []models.CollectionNode) string {
	if len(collections) == 0 {
		return warnStyle.Render("tree is empty")
	}

	root := tree.New().
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(branchStyle)

	for _, c := range collections {
		ct := tree.Root(groupStyle.Render(fmt.Sprintf("%s (%dP)", c.Name, countItems(c)))).
			Enumerator(tree.RoundedEnumerator).
			EnumeratorStyle(branchStyle)
		for _, title := range c.Titles {
			tt := tree.Root(titleLabel(title)).
				Enumerator(tree.RoundedEnumerator).
				EnumeratorStyle(branchStyle)
			for _, tab := range title.Tabs {
				tb := tree.Root(tabStyle.Render(tab.Name)).
					Enumerator(tree.RoundedEnumerator).
					EnumeratorStyle(branchStyle)
				for _, item := range tab.Items {
					tb.Child(itemLabel(item))
				}
				tt.Child(tb)
			}
			ct.Child(tt)
		}
		root.Child(ct)
	}
	return root.String()
}

func countItems(c models.CollectionNode) int {
	n := 0
	for _, title := range c.Titles {
		for _, tab := range title.Tabs {
			n += len(tab.Items)
		}
	}
	return n
}

func titleLabel(t models.TitleNode) string {
	if t.EpisodeNumber == nil {
		return valueStyle.Render(t.Name)
	}
	return valueStyle.Render(t.Name) + dimStyle.Render(fmt.Sprintf(" ep %d", *t.EpisodeNumber))
}

func itemLabel(r models.Record) string {
	size := r.LoadedSize
	if size > math.MaxInt64 {
		size = math.MaxInt64
	}
	return fmt.Sprintf("[%d] %s  %s  %s  %s",
		r.Position, r.Title, formatClock(r.Duration), formatSize(int64(size)),
		dimStyle.Render(fmt.Sprintf("#%d", r.ContentID)))
}

// formatClock renders seconds as m:ss, or h:mm:ss past the hour.
func formatClock(seconds uint32) string {
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
