package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"bili-tree/internal/models"
	"bili-tree/internal/pipeline"
	"bili-tree/internal/streams"
)

type fakeLibrary struct {
	tree  []models.CollectionNode
	stats pipeline.Stats
	root  string
}

func (f *fakeLibrary) Tree() []models.CollectionNode { return f.tree }
func (f *fakeLibrary) Stats() pipeline.Stats         { return f.stats }
func (f *fakeLibrary) Root() string                  { return f.root }

func newTestHandler(lib *fakeLibrary) http.Handler {
	return New(lib, log.New(io.Discard))
}

func serve(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := serve(t, newTestHandler(&fakeLibrary{}), http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected status payload: %v", body)
	}
}

func TestEndpointsRejectNonGET(t *testing.T) {
	handler := newTestHandler(&fakeLibrary{root: t.TempDir()})
	for _, path := range []string{"/health", "/tree", "/stats", "/streams/1"} {
		rec := serve(t, handler, http.MethodPost, path)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405 for POST %s, got %d", path, rec.Code)
		}
	}
}

func TestTreeEndpoint(t *testing.T) {
	ep := uint32(3)
	lib := &fakeLibrary{tree: []models.CollectionNode{{
		Name: "G",
		Titles: []models.TitleNode{{
			Name:          "T",
			EpisodeNumber: &ep,
			Tabs: []models.TabNode{{
				Name:  "tab",
				Items: []models.Record{{Position: 3, Title: "T", CollectionTitle: "G", TabName: "tab", ContentID: 42}},
			}},
		}},
	}}}

	rec := serve(t, newTestHandler(lib), http.MethodGet, "/tree")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var got []models.CollectionNode
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].Titles[0].EpisodeNumber == nil || *got[0].Titles[0].EpisodeNumber != 3 {
		t.Fatalf("unexpected tree: %+v", got)
	}
	if got[0].Titles[0].Tabs[0].Items[0].ContentID != 42 {
		t.Fatalf("expected record to round-trip, got %+v", got[0].Titles[0].Tabs[0].Items[0])
	}
}

func TestTreeEndpointEmptyIsList(t *testing.T) {
	rec := serve(t, newTestHandler(&fakeLibrary{}), http.MethodGet, "/tree")
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty list, got %q", body)
	}
}

func TestStatsEndpoint(t *testing.T) {
	lib := &fakeLibrary{stats: pipeline.Stats{Candidates: 4, ParseFailures: 1, Parsed: 3, Collections: 2}}
	rec := serve(t, newTestHandler(lib), http.MethodGet, "/stats")

	var got pipeline.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != lib.stats {
		t.Fatalf("expected %+v, got %+v", lib.stats, got)
	}
}

func TestStreamsEndpoint(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "283912456")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "283912456_nb2-1-30280.m4s"), []byte("not an mp4"), 0o644); err != nil {
		t.Fatalf("write stream: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "videoInfo.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write info: %v", err)
	}

	handler := newTestHandler(&fakeLibrary{root: root})
	rec := serve(t, handler, http.MethodGet, "/streams/283912456")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got []streams.Stream
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].Name != "283912456_nb2-1-30280.m4s" || got[0].Kind != streams.Unknown {
		t.Fatalf("unexpected streams: %+v", got)
	}

	rec = serve(t, handler, http.MethodGet, "/streams/999")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing episode, got %d", rec.Code)
	}
}
