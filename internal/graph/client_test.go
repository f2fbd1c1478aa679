package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperjump/bunsho/internal/dmserr"
)

func TestQuery_BareRows(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/query" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"value": "Telekom GmbH", "type": "organization"},
				{"value": "Max Mustermann", "type": "person"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	rows, err := c.Query(context.Background(), "SELECT * FROM entity", map[string]any{"type": "organization"})
	if err != nil {
		t.Fatal(err)
	}
	if gotBody["query"] != "SELECT * FROM entity" {
		t.Errorf("query = %v", gotBody["query"])
	}
	params, _ := gotBody["params"].(map[string]any)
	if params["type"] != "organization" {
		t.Errorf("params = %v", gotBody["params"])
	}
	if len(rows) != 2 || rows[0]["value"] != "Telekom GmbH" {
		t.Errorf("rows = %v", rows)
	}
}

func TestQuery_StatementEnvelopes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"status": "OK", "result": []map[string]any{
					{"value": "Telekom GmbH", "type": "organization"},
				}},
				{"status": "OK", "result": []map[string]any{
					{"value": "2024-03-01", "type": "date"},
				}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	rows, err := c.Query(context.Background(), "SELECT * FROM entity", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 flattened from envelopes", len(rows))
	}
	if rows[0]["value"] != "Telekom GmbH" || rows[1]["type"] != "date" {
		t.Errorf("rows = %v", rows)
	}
}

func TestQuery_NilParamsSentAsEmptyObject(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		json.NewEncoder(w).Encode(map[string]any{"result": []map[string]any{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Query(context.Background(), "SELECT 1", nil); err != nil {
		t.Fatal(err)
	}
	if string(raw["params"]) != "{}" {
		t.Errorf("params = %s, want {}", raw["params"])
	}
}

func TestDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graph/doc-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"document": map[string]any{"id": "doc-1"},
			"entities": []map[string]any{{"value": "Telekom GmbH"}},
			"relationships": []map[string]any{
				{"from": "doc-1", "to": "Telekom GmbH", "kind": "mentions"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	g, err := c.Document(context.Background(), "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Entities) != 1 || len(g.Relationships) != 1 {
		t.Errorf("graph = %+v", g)
	}
}

func TestEntitiesByType(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		json.NewEncoder(w).Encode(map[string]any{
			"entities": []map[string]any{{"value": "Telekom GmbH"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	rows, err := c.EntitiesByType(context.Background(), "organization", 10)
	if err != nil {
		t.Fatal(err)
	}
	if gotURL != "/entities/organization?limit=10" {
		t.Errorf("url = %s", gotURL)
	}
	if len(rows) != 1 {
		t.Errorf("rows = %v", rows)
	}
}

func TestQuery_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Query(context.Background(), "SELECT 1", nil)
	if !errors.Is(err, dmserr.ErrServiceUnavailable) {
		t.Errorf("err = %v, want ErrServiceUnavailable", err)
	}
}

func TestQuery_TransportErrorIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Query(context.Background(), "SELECT 1", nil)
	if !errors.Is(err, dmserr.ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
}

func TestFlattenRows(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"empty", "", 0},
		{"null", "null", 0},
		{"bare rows", `[{"value":"a"},{"value":"b"}]`, 2},
		{"envelopes", `[{"status":"OK","result":[{"value":"a"}]}]`, 1},
		{"not rows", `"oops"`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flattenRows(json.RawMessage(tt.raw))
			if len(got) != tt.want {
				t.Errorf("flattenRows(%q) = %d rows, want %d", tt.raw, len(got), tt.want)
			}
		})
	}
}
