package models

// Unknown is the placeholder for any string field missing from a metadata file.
const Unknown = "<unknown>"

// Record is the normalized form of a single videoInfo.json file.
type Record struct {
	Position        uint32 `json:"position" yaml:"position"`
	Title           string `json:"title" yaml:"title"`
	Duration        uint32 `json:"duration" yaml:"duration"`
	LoadedSize      uint64 `json:"loaded_size" yaml:"loaded_size"`
	ExternalID      string `json:"external_id" yaml:"external_id"`
	ContentID       uint64 `json:"content_id" yaml:"content_id"`
	CollectionTitle string `json:"collection_title" yaml:"collection_title"`
	TabName         string `json:"tab_name" yaml:"tab_name"`
}

// TabNode groups the records of one title that share a tab name.
type TabNode struct {
	Name  string   `json:"name" yaml:"name"`
	Items []Record `json:"items" yaml:"items"`
}

// TitleNode groups tabs under a title. EpisodeNumber is nil when no
// ordering number could be resolved.
type TitleNode struct {
	Name          string    `json:"name" yaml:"name"`
	EpisodeNumber *uint32   `json:"episode_number" yaml:"episode_number"`
	Tabs          []TabNode `json:"tabs" yaml:"tabs"`
}

// CollectionNode is the top level of the tree.
type CollectionNode struct {
	Name   string      `json:"name" yaml:"name"`
	Titles []TitleNode `json:"titles" yaml:"titles"`
}
