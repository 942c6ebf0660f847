package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "reports"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx := context.Background()
	if err := store.Save(ctx, "engineering_analysis_Product_Design.txt", strings.NewReader("## Report")); err != nil {
		t.Fatalf("save: %v", err)
	}
	rc, err := store.Open(ctx, "engineering_analysis_Product_Design.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "## Report" {
		t.Fatalf("content = %q", data)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "reports"))
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestSaveStaysInsideBaseDir(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)

	if err := store.Save(context.Background(), "../escape.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); err != nil {
		t.Fatalf("expected file inside base dir: %v", err)
	}
	if err := store.Save(context.Background(), "", strings.NewReader("x")); err == nil {
		t.Fatalf("expected error for empty name")
	}
}
