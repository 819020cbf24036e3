package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roman-kulish/linkmap/internal/storage"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "logs", "monday.csv"), driveLog)
	writeFile(t, filepath.Join(root, "logs", "tuesday", "drive.csv"), driveLog)
	writeFile(t, filepath.Join(root, "logs", "notes.txt"), "not a survey")

	config := &Config{
		Settings: Settings{LogLevel: "info"},
		Storage: StorageConfig{
			DataDirectory: root,
			MaxBatchSize:  defaultMaxBatchSize,
		},
		// the file is also found by walking the directory
		Inputs:  []string{filepath.Join(root, "logs"), filepath.Join(root, "logs", "monday.csv")},
		Workers: 2,
	}

	if err := Run(ctx, config, testLogger()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(root, "linkmap_*.sqlite"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("Expected one database in the data directory, got %v, %v", matches, err)
	}

	store := storage.NewSqliteStore(matches[0])
	defer store.Close()

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(sessions))
	}
}

func TestRun_DatabaseFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.csv"), driveLog)

	config := &Config{
		Storage: StorageConfig{
			DatabaseFile: filepath.Join(root, "survey.db"),
			MaxBatchSize: defaultMaxBatchSize,
		},
		Inputs:  []string{filepath.Join(root, "a.csv")},
		Workers: 1,
	}

	// a second run appends to the same database
	for range 2 {
		if err := Run(context.Background(), config, testLogger()); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	store := storage.NewSqliteStore(config.Storage.DatabaseFile)
	defer store.Close()

	sessions, err := store.Sessions(context.Background())
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(sessions))
	}
}

func TestRun_Errors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.txt"), "")

	tests := []struct {
		name    string
		config  Config
		message string
	}{
		{
			name:    "missing input",
			config:  Config{Inputs: []string{filepath.Join(root, "missing")}, Storage: StorageConfig{DataDirectory: root}},
			message: "missing",
		},
		{
			name:    "no csv files",
			config:  Config{Inputs: []string{root}, Storage: StorageConfig{DataDirectory: root}},
			message: "no CSV files",
		},
		{
			name:    "missing data directory",
			config:  Config{Inputs: []string{filepath.Join(root, "notes.txt")}, Storage: StorageConfig{DataDirectory: filepath.Join(root, "data")}},
			message: "does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Run(context.Background(), &tt.config, testLogger())
			if err == nil || !strings.Contains(err.Error(), tt.message) {
				t.Errorf("Expected error containing %q, got %v", tt.message, err)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(root, "data")); !os.IsNotExist(err) {
		t.Error("Expected no data directory to be created")
	}
}
