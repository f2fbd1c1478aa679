package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/bunsho/internal/config"
	"github.com/hyperjump/bunsho/internal/models"
	"github.com/hyperjump/bunsho/internal/service"
	"go.uber.org/zap"
)

// newTestServer builds a server over a real engine with a temp documents
// root. Collaborator services point at an unreachable port, so search
// degrades to the local scorer and remote deletes fail best-effort.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Server:    config.ServerConfig{Host: "localhost", Port: 0},
		Documents: config.DocumentsConfig{Root: t.TempDir()},
		Services: config.ServicesConfig{
			SearchURL:      "http://127.0.0.1:1",
			GraphURL:       "http://127.0.0.1:1",
			OCRURL:         "http://127.0.0.1:1",
			OllamaURL:      "http://127.0.0.1:1",
			OllamaModel:    "test",
			TimeoutSeconds: 1,
		},
		Watch: config.WatchConfig{DebounceMS: 50},
	}
	engine, err := service.New(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(engine, &cfg.Server, zap.NewNop())
}

func seedDocument(t *testing.T, srv *Server, name string, tags ...string) *models.DocumentRecord {
	t.Helper()
	rec := &models.DocumentRecord{
		ID:   "doc-" + name,
		Name: name,
		Path: "/docs/" + name,
		Type: "pdf",
		Tags: tags,
	}
	srv.engine.Store().Upsert(rec)
	return rec
}

// withURLParam injects a chi route parameter for direct handler invocation.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHandleSearch(t *testing.T) {
	srv := newTestServer(t)
	seedDocument(t, srv, "Invoice_2024.pdf")
	seedDocument(t, srv, "Contract.pdf")

	body, _ := json.Marshal(map[string]string{"query": "invoice"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleSearch(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Results []models.SearchResult `json:"results"`
		Total   int                   `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 || out.Results[0].Document.Name != "Invoice_2024.pdf" {
		t.Errorf("results: got %+v", out)
	}
}

func TestHandleSearch_EmptyQuery(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"query": ""})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleSearch(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleSearch_InvalidBody(t *testing.T) {
	srv := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	srv.handleSearch(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleGetDocument(t *testing.T) {
	srv := newTestServer(t)
	rec := seedDocument(t, srv, "Report.pdf")

	r := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+rec.ID, nil), "id", rec.ID)
	w := httptest.NewRecorder()
	srv.handleGetDocument(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out models.DocumentRecord
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.ID != rec.ID || out.Name != "Report.pdf" {
		t.Errorf("document: got %+v", out)
	}
}

func TestHandleGetDocument_NotFound(t *testing.T) {
	srv := newTestServer(t)
	r := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/documents/nope", nil), "id", "nope")
	w := httptest.NewRecorder()
	srv.handleGetDocument(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	srv := newTestServer(t)
	rec := seedDocument(t, srv, "Doomed.pdf")

	// Remote index delete fails (service unreachable) but local removal
	// still succeeds.
	r := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+rec.ID, nil), "id", rec.ID)
	w := httptest.NewRecorder()
	srv.handleDeleteDocument(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	if srv.engine.DocumentCount() != 0 {
		t.Errorf("document count: got %d, want 0", srv.engine.DocumentCount())
	}
}

func TestHandleDeleteDocument_NotFound(t *testing.T) {
	srv := newTestServer(t)
	r := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/documents/nope", nil), "id", "nope")
	w := httptest.NewRecorder()
	srv.handleDeleteDocument(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleAddTag(t *testing.T) {
	srv := newTestServer(t)
	rec := seedDocument(t, srv, "Invoice.pdf")

	body, _ := json.Marshal(map[string]string{"tag": "steuer"})
	r := withURLParam(httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+rec.ID+"/tags", bytes.NewReader(body)), "id", rec.ID)
	w := httptest.NewRecorder()
	srv.handleAddTag(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	got, _ := srv.engine.Store().GetByID(rec.ID)
	if !got.HasTag("steuer") {
		t.Errorf("tags after add: %v", got.Tags)
	}
}

func TestHandleAddTag_UnknownID(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"tag": "steuer"})
	r := withURLParam(httptest.NewRequest(http.MethodPost, "/api/v1/documents/nope/tags", bytes.NewReader(body)), "id", "nope")
	w := httptest.NewRecorder()
	srv.handleAddTag(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleRemoveTag(t *testing.T) {
	srv := newTestServer(t)
	rec := seedDocument(t, srv, "Invoice.pdf", "steuer")

	r := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+rec.ID+"/tags/steuer", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", rec.ID)
	rctx.URLParams.Add("tag", "steuer")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()
	srv.handleRemoveTag(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	got, _ := srv.engine.Store().GetByID(rec.ID)
	if got.HasTag("steuer") {
		t.Errorf("tags after remove: %v", got.Tags)
	}
}

func TestHandleRenameTag(t *testing.T) {
	srv := newTestServer(t)
	seedDocument(t, srv, "A.pdf", "rechnung")
	seedDocument(t, srv, "B.pdf", "rechnung")
	seedDocument(t, srv, "C.pdf", "vertrag")

	body, _ := json.Marshal(map[string]string{"old": "rechnung", "new": "invoice"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/tags/rename", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleRenameTag(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out map[string]int
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["affected"] != 2 {
		t.Errorf("affected: got %d, want 2", out["affected"])
	}
}

func TestHandleDeleteTag(t *testing.T) {
	srv := newTestServer(t)
	seedDocument(t, srv, "A.pdf", "alt")
	seedDocument(t, srv, "B.pdf", "alt")

	r := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/tags/alt", nil), "tag", "alt")
	w := httptest.NewRecorder()
	srv.handleDeleteTag(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out map[string]int
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["affected"] != 2 {
		t.Errorf("affected: got %d, want 2", out["affected"])
	}
}

func TestHandleRecentDocuments_LimitParam(t *testing.T) {
	srv := newTestServer(t)
	seedDocument(t, srv, "A.pdf")
	seedDocument(t, srv, "B.pdf")
	seedDocument(t, srv, "C.pdf")

	r := httptest.NewRequest(http.MethodGet, "/api/v1/documents/recent?limit=2", nil)
	w := httptest.NewRecorder()
	srv.handleRecentDocuments(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out []models.DocumentRecord
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Errorf("recent: got %d documents, want 2", len(out))
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t)
	seedDocument(t, srv, "A.pdf")

	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.handleStatus(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Documents int `json:"documents"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Documents != 1 {
		t.Errorf("documents: got %d, want 1", out.Documents)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleChat_EmptyPrompt(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"prompt": ""})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleChat(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}
