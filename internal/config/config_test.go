package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "ci.json")
	contents := `{
		"jobs": [
			{"name": "build", "script": ["go build ./..."]},
			{"name": "test", "script": ["go test ./..."], "env_needs": ["TOKEN"]}
		],
		"constraints": [
			{"blocker": "build", "blocked": "test"}
		],
		"env": "TOKEN=abc"
	}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	payload, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(payload.Jobs))
	}
	if payload.Jobs[1].Name != "test" || len(payload.Jobs[1].EnvNeeds) != 1 {
		t.Fatalf("unexpected second job: %+v", payload.Jobs[1])
	}
	if len(payload.Constraints) != 1 || payload.Constraints[0].Blocker != "build" {
		t.Fatalf("unexpected constraints: %+v", payload.Constraints)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load("/path/does/not/exist.json"); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "ci.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for invalid JSON")
	}
}
