package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/bunsho/internal/index"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/docs/a.pdf", true},
		{"/docs/a.PDF", true},
		{"/docs/a.jpeg", true},
		{"/docs/a.md", true},
		{"/docs/a.exe", false},
		{"/docs/a", false},
		{"/docs/.hidden", false},
	}
	for _, tt := range tests {
		if got := Supported(tt.path); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestScan_DiscoversSupportedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"))
	writeFile(t, filepath.Join(root, "sub", "b.txt"))
	writeFile(t, filepath.Join(root, "sub", "ignored.exe"))

	store := index.NewStore(index.DefaultIndexPath(root))
	stats, err := Scan(context.Background(), root, store, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Added != 2 {
		t.Errorf("Added = %d, want 2", stats.Added)
	}
	if store.Count() != 2 {
		t.Errorf("Count() = %d, want 2", store.Count())
	}
}

func TestScan_ReusesExistingRecords(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.pdf")
	writeFile(t, path)

	store := index.NewStore(index.DefaultIndexPath(root))
	if _, err := Scan(context.Background(), root, store, nil); err != nil {
		t.Fatal(err)
	}
	abs, _ := filepath.Abs(path)
	first, _ := store.Get(abs)

	stats, err := Scan(context.Background(), root, store, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Added != 0 || stats.Kept != 1 {
		t.Errorf("stats = %+v, want 0 added / 1 kept", stats)
	}
	second, _ := store.Get(abs)
	if second.ID != first.ID {
		t.Error("rescan replaced an existing record")
	}
}

func TestScan_SkipsIndexDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"))

	store := index.NewStore(index.DefaultIndexPath(root))
	if _, err := Scan(context.Background(), root, store, nil); err != nil {
		t.Fatal(err)
	}
	// The persisted index lives under the root but must not be scanned in.
	stats, err := Scan(context.Background(), root, store, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Added != 0 {
		t.Errorf("rescan added %d records (index dir leaked in?)", stats.Added)
	}
}

func TestScan_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := index.NewStore(index.DefaultIndexPath(root))
	if _, err := Scan(ctx, root, store, nil); err == nil {
		t.Error("cancelled scan should return the context error")
	}
}

func TestNewRecord(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "Invoice_2024.PDF")
	writeFile(t, path)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	rec := NewRecord(path, info)
	if rec.ID == "" {
		t.Error("record has no id")
	}
	if rec.Name != "Invoice_2024.PDF" {
		t.Errorf("Name = %q", rec.Name)
	}
	if rec.Type != "pdf" {
		t.Errorf("Type = %q, want extension without dot, lowercased", rec.Type)
	}
	if rec.Tags == nil || len(rec.Tags) != 0 {
		t.Errorf("Tags = %v, want empty set", rec.Tags)
	}
	if !rec.ModifiedAt.Equal(info.ModTime()) {
		t.Errorf("ModifiedAt = %v", rec.ModifiedAt)
	}
}
