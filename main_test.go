package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunUnknownCommand(t *testing.T) {
	err := run([]string{"frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "frobnicate") {
		t.Fatalf("got %v", err)
	}
}

func TestReadIdea(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "idea.json")
	if err := os.WriteFile(good, []byte(`{"quote":"Time heals nothing.","visual_search_term":"rain window night","language":"English","caption":"c","hashtags":"#rain"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := readIdea(good)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quote != "Time heals nothing." || got.VisualSearchTerm != "rain window night" {
		t.Fatalf("idea = %+v", got)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"quote":"no search"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readIdea(bad); err == nil {
		t.Fatal("idea without a search term should be rejected")
	}
}

func TestRenderRejectsConflictingFlags(t *testing.T) {
	err := runRender([]string{"--idea", "x.json", "--quote", "hello"})
	if err == nil || !strings.Contains(err.Error(), "not both") {
		t.Fatalf("got %v", err)
	}
}
