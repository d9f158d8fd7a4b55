package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// GeneratePath creates a timestamped report filename inside dir.
func GeneratePath(dir, target string) string {
	base := filepath.Base(target)
	name := strings.ReplaceAll(strings.TrimSuffix(base, filepath.Ext(base)), " ", "_")
	if name == "" || name == "." {
		name = "mosaic"
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.yaml", name, timestamp))
}

// FindLatest finds the most recent report in dir.
func FindLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read reports directory: %w", err)
	}

	var latestFile string
	var latestTime time.Time

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yaml.zst")) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latestFile == "" || info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, name)
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no reports found in %s", dir)
	}

	return latestFile, nil
}
