package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if !c.HasCampaign("Camp Lejeune") {
		t.Fatal("expected Camp Lejeune campaign")
	}
	if !c.HasIssueType("Other") {
		t.Fatal("expected Other issue type")
	}
	if c.HasCampaign("camp lejeune") {
		t.Fatal("campaign lookup must be exact")
	}
	if got := c.Campaigns[0].DisplayLabel(); got != "Camp Lejeune" {
		t.Fatalf("label fallback: got %q", got)
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte("campaigns:\n  - value: A\n  - value: A\nissue_types:\n  - value: X\n"))
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestParseRejectsEmptySections(t *testing.T) {
	if _, err := Parse([]byte("campaigns: []\nissue_types:\n  - value: X\n")); err == nil {
		t.Fatal("expected error for empty campaigns")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("campaigns:\n  - value: Pilot\nissue_types:\n  - value: Other\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Campaigns) != 1 || c.Campaigns[0].Value != "Pilot" {
		t.Fatalf("unexpected campaigns %+v", c.Campaigns)
	}
}
