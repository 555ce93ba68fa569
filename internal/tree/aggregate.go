// Package tree groups parsed records into collections, titles and tabs and
// turns the grouping into the sorted output tree.
package tree

import (
	"bili-tree/internal/metadata"
	"bili-tree/internal/models"
)

// TitleKey identifies a title bucket inside a collection. Two titles with the
// same name but different resolved episode numbers are different buckets.
type TitleKey struct {
	Name     string
	Episode  uint32
	Numbered bool
}

// EpisodeNumber returns the resolved number, or nil when there is none.
func (k TitleKey) EpisodeNumber() *uint32 {
	if !k.Numbered {
		return nil
	}
	n := k.Episode
	return &n
}

// Grouping is collection -> title -> tab -> records.
type Grouping map[string]map[TitleKey]map[string][]models.Record

type pairKey struct {
	collection string
	title      string
}

// Aggregate groups entries in the order given. The episode number of each
// (collection, title) pair is taken from the first entry carrying that pair;
// later entries do not override it. Every entry is kept, duplicates included.
func Aggregate(entries []metadata.Entry) Grouping {
	resolved := make(map[pairKey]*uint32)
	for _, e := range entries {
		key := pairKey{collection: e.Record.CollectionTitle, title: e.Record.Title}
		if _, ok := resolved[key]; !ok {
			resolved[key] = e.Episode
		}
	}

	groups := make(Grouping)
	for _, e := range entries {
		rec := e.Record

		tk := TitleKey{Name: rec.Title}
		if n := resolved[pairKey{collection: rec.CollectionTitle, title: rec.Title}]; n != nil {
			tk.Episode, tk.Numbered = *n, true
		}

		titles, ok := groups[rec.CollectionTitle]
		if !ok {
			titles = make(map[TitleKey]map[string][]models.Record)
			groups[rec.CollectionTitle] = titles
		}
		tabs, ok := titles[tk]
		if !ok {
			tabs = make(map[string][]models.Record)
			titles[tk] = tabs
		}
		tabs[rec.TabName] = append(tabs[rec.TabName], rec)
	}
	return groups
}
