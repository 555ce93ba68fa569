package report

import (
	"strings"
	"testing"

	"bili-tree/internal/models"
	"bili-tree/internal/pipeline"
	"bili-tree/internal/streams"
)

func TestSummaryListsCounters(t *testing.T) {
	out := Summary(pipeline.Stats{Candidates: 12, ReadFailures: 1, ParseFailures: 2, Parsed: 9, Collections: 3})
	for _, want := range []string{"candidates", "12", "read failures", "parse failures", "parsed", "9", "collections", "3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected summary to contain %q:\n%s", want, out)
		}
	}
}

func TestStreamsTable(t *testing.T) {
	dur := 65.2
	out := Streams("123", []streams.Stream{
		{Name: "a.m4s", Kind: streams.Audio, Container: "MP4", Codec: "mp4a", Size: 2048},
		{Name: "b.mp3", Kind: streams.Audio, Size: 10, DurationSeconds: &dur},
	})
	for _, want := range []string{"123", "a.m4s", "mp4a", "2.0 KiB", "b.mp3", "10 B", "00:01:05"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, out)
		}
	}

	if empty := Streams("9", nil); !strings.Contains(empty, "no streams found for 9") {
		t.Fatalf("unexpected empty rendering: %s", empty)
	}
}

func TestFormatDuration(t *testing.T) {
	if formatDuration(0) != "" {
		t.Fatalf("expected empty string for zero duration")
	}
	if got := formatDuration(3725.4); got != "01:02:05" {
		t.Fatalf("unexpected duration %q", got)
	}
}

func TestTreeRendersAllLevels(t *testing.T) {
	seven := uint32(7)
	out := Tree([]models.CollectionNode{{
		Name: "G",
		Titles: []models.TitleNode{
			{
				Name:          "T",
				EpisodeNumber: &seven,
				Tabs: []models.TabNode{{
					Name: "tab1",
					Items: []models.Record{
						{Position: 1, Title: "first", Duration: 125, LoadedSize: 2048, ContentID: 42},
						{Position: 2, Title: "second", Duration: 3725, LoadedSize: 10, ContentID: 43},
					},
				}},
			},
			{Name: "U", Tabs: []models.TabNode{}},
		},
	}})

	for _, want := range []string{"G (2P)", "T", "ep 7", "tab1", "[1] first", "2:05", "2.0 KiB", "#42", "[2] second", "1:02:05", "10 B", "#43", "U"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected tree to contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "U ep") {
		t.Fatalf("expected no episode number for U:\n%s", out)
	}
	if !strings.Contains(Tree(nil), "tree is empty") {
		t.Fatalf("unexpected empty rendering")
	}
}

func TestFormatClock(t *testing.T) {
	for seconds, want := range map[uint32]string{0: "0:00", 59: "0:59", 61: "1:01", 3600: "1:00:00"} {
		if got := formatClock(seconds); got != want {
			t.Fatalf("formatClock(%d) = %q, want %q", seconds, got, want)
		}
	}
}
