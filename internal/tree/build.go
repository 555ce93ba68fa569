package tree

import (
	"cmp"
	"slices"

	"bili-tree/internal/models"
)

// Build converts a Grouping into the output tree. Collections are sorted by
// name, titles by resolved episode number (unnumbered last, then by name)
// and tabs by the position of their first record.
func Build(groups Grouping) []models.CollectionNode {
	collections := make([]models.CollectionNode, 0, len(groups))
	for name, titleMap := range groups {
		titles := make([]models.TitleNode, 0, len(titleMap))
		for key, tabMap := range titleMap {
			titles = append(titles, models.TitleNode{
				Name:          key.Name,
				EpisodeNumber: key.EpisodeNumber(),
				Tabs:          buildTabs(tabMap),
			})
		}
		slices.SortFunc(titles, compareTitles)
		collections = append(collections, models.CollectionNode{Name: name, Titles: titles})
	}

	slices.SortFunc(collections, func(a, b models.CollectionNode) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return collections
}

func buildTabs(tabMap map[string][]models.Record) []models.TabNode {
	tabs := make([]models.TabNode, 0, len(tabMap))
	for name, items := range tabMap {
		tabs = append(tabs, models.TabNode{Name: name, Items: items})
	}
	slices.SortFunc(tabs, func(a, b models.TabNode) int {
		return cmp.Or(
			cmp.Compare(firstPosition(a), firstPosition(b)),
			cmp.Compare(a.Name, b.Name),
		)
	})
	return tabs
}

func firstPosition(tab models.TabNode) uint32 {
	if len(tab.Items) == 0 {
		return 0
	}
	return tab.Items[0].Position
}

func compareTitles(a, b models.TitleNode) int {
	switch {
	case a.EpisodeNumber != nil && b.EpisodeNumber != nil:
		return cmp.Or(
			cmp.Compare(*a.EpisodeNumber, *b.EpisodeNumber),
			cmp.Compare(a.Name, b.Name),
		)
	case a.EpisodeNumber != nil:
		return -1
	case b.EpisodeNumber != nil:
		return 1
	default:
		return cmp.Compare(a.Name, b.Name)
	}
}
