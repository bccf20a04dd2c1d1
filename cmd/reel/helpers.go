package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// dataDir returns ~/.reel/, creating it if needed.
func dataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".reel")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// eventLogPath returns the path to reel.events.jsonl under dir.
func eventLogPath(dir string) string {
	return filepath.Join(dir, "reel.events.jsonl")
}
