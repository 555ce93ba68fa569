package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"bili-tree/internal/models"
)

func sampleTree() []models.CollectionNode {
	seven := uint32(7)
	return []models.CollectionNode{{
		Name: "G & friends",
		Titles: []models.TitleNode{
			{
				Name:          "T",
				EpisodeNumber: &seven,
				Tabs: []models.TabNode{{
					Name: "tab1",
					Items: []models.Record{{
						Position:        1,
						Title:           "T",
						Duration:        60,
						LoadedSize:      1024,
						ExternalID:      "BV1",
						ContentID:       42,
						CollectionTitle: "G & friends",
						TabName:         "tab1",
					}},
				}},
			},
			{Name: "U", Tabs: []models.TabNode{}},
		},
	}}
}

var recordFields = []string{
	"position", "title", "duration", "loaded_size",
	"external_id", "content_id", "collection_title", "tab_name",
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "tree.json")
	if err := Write(path, JSON, sampleTree()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), `"G & friends"`) {
		t.Fatalf("expected HTML characters to be written verbatim:\n%s", data)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	titles := raw[0]["titles"].([]any)
	first := titles[0].(map[string]any)
	if first["episode_number"].(float64) != 7 {
		t.Fatalf("unexpected episode number: %v", first["episode_number"])
	}
	second := titles[1].(map[string]any)
	if v, ok := second["episode_number"]; !ok || v != nil {
		t.Fatalf("expected explicit null episode number, got %v (present=%t)", v, ok)
	}

	item := first["tabs"].([]any)[0].(map[string]any)["items"].([]any)[0].(map[string]any)
	for _, field := range recordFields {
		if _, ok := item[field]; !ok {
			t.Fatalf("record field %q missing from JSON: %v", field, item)
		}
	}
	if len(item) != len(recordFields) {
		t.Fatalf("unexpected extra record fields: %v", item)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}
}

func TestWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.yaml")
	if err := Write(path, YAML, sampleTree()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	item := raw[0]["titles"].([]any)[0].(map[string]any)["tabs"].([]any)[0].(map[string]any)["items"].([]any)[0].(map[string]any)
	for _, field := range recordFields {
		if _, ok := item[field]; !ok {
			t.Fatalf("record field %q missing from YAML: %v", field, item)
		}
	}
}

func TestWriteEmptyTreeIsList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := Write(path, JSON, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("expected an empty list, got %q", data)
	}
}

func TestWriteReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if err := Write(path, JSON, sampleTree()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "stale") {
		t.Fatalf("expected the old content to be replaced")
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		name, path string
		want       Format
	}{
		{"", "tree.json", JSON},
		{"", "tree.YAML", YAML},
		{"", "tree.yml", YAML},
		{"", "tree", JSON},
		{"yaml", "tree.json", YAML},
		{" JSON ", "tree.yaml", JSON},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.name, tc.path)
		if err != nil {
			t.Fatalf("ParseFormat(%q, %q): %v", tc.name, tc.path, err)
		}
		if got != tc.want {
			t.Fatalf("ParseFormat(%q, %q) = %s, want %s", tc.name, tc.path, got, tc.want)
		}
	}
	if _, err := ParseFormat("xml", "tree.json"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestReadWrittenTree(t *testing.T) {
	dir := t.TempDir()
	for _, format := range []Format{JSON, YAML} {
		path := filepath.Join(dir, "tree."+string(format))
		if err := Write(path, format, sampleTree()); err != nil {
			t.Fatalf("Write %s: %v", format, err)
		}

		tree, err := Read(path, format)
		if err != nil {
			t.Fatalf("Read %s: %v", format, err)
		}
		if len(tree) != 1 || len(tree[0].Titles) != 2 {
			t.Fatalf("%s: unexpected tree %+v", format, tree)
		}
		titles := tree[0].Titles
		if titles[0].EpisodeNumber == nil || *titles[0].EpisodeNumber != 7 || titles[1].EpisodeNumber != nil {
			t.Fatalf("%s: episode numbers did not survive: %+v", format, titles)
		}
		if titles[0].Tabs[0].Items[0].ContentID != 42 {
			t.Fatalf("%s: unexpected item %+v", format, titles[0].Tabs[0].Items[0])
		}
	}

	if _, err := Read(filepath.Join(dir, "missing.json"), JSON); err == nil {
		t.Fatalf("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"name":`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(bad, JSON); err == nil {
		t.Fatalf("expected error for malformed file")
	}
}
