package metadata

import (
	"errors"
	"fmt"
	"os"

	"bili-tree/internal/models"
)

// FileName is the metadata file written next to every downloaded episode.
const FileName = "videoInfo.json"

var (
	// ErrRead marks a metadata file that could not be read.
	ErrRead = errors.New("read metadata")
	// ErrParse marks a metadata file whose contents are not valid JSON.
	ErrParse = errors.New("parse metadata")
)

// Entry is one parsed file together with the episode number it proposes
// for its (collection, title) pair.
type Entry struct {
	Path    string
	Record  models.Record
	Episode *uint32
}

// ParseFile reads and parses the metadata file at path.
func ParseFile(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("%w %s: %w", ErrRead, path, err)
	}

	entry, err := Parse(data)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", path, err)
	}
	entry.Path = path
	return entry, nil
}

// Parse extracts an Entry from the raw contents of a metadata file.
// Fields found in the embedded epInfo object take precedence over the outer
// ones, except for tabName and the numeric fields.
func Parse(data []byte) (Entry, error) {
	doc, err := Decode(data)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	epInfo, hasEpInfo := doc.Object("epInfo")
	var ep *Document
	if hasEpInfo {
		ep = &epInfo
	}

	position, _ := doc.Uint32("p")
	duration, _ := doc.Uint32("duration")
	loaded, _ := doc.Uint64("loadedSize")
	cid, _ := doc.Uint64("cid")

	tab, ok := doc.String("tabName")
	if !ok {
		tab = models.Unknown
	}

	record := models.Record{
		Position:        position,
		Title:           preferEpisode(doc, ep, "title"),
		Duration:        duration,
		LoadedSize:      loaded,
		ExternalID:      preferEpisode(doc, ep, "bvid"),
		ContentID:       cid,
		CollectionTitle: preferEpisode(doc, ep, "groupTitle"),
		TabName:         tab,
	}

	episode := position
	if ep != nil {
		if p, ok := ep.Uint32("p"); ok {
			episode = p
		}
	}

	return Entry{Record: record, Episode: &episode}, nil
}

func preferEpisode(doc Document, ep *Document, key string) string {
	if ep != nil {
		if v, ok := ep.String(key); ok {
			return v
		}
	}
	if v, ok := doc.String(key); ok {
		return v
	}
	return models.Unknown
}
