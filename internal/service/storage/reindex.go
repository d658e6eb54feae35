package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"safestep/internal/logger"
	"safestep/internal/model"
	"safestep/internal/repository"
	"safestep/internal/repository/sqlite"
)

// ParseSnapshotName extracts the capture time and camera from a name built by
// AddImage. Camera names containing '_' cannot be told apart from labels, so
// only the first segment is returned.
func ParseSnapshotName(filename string) (time.Time, string, error) {
	if filepath.Ext(filename) != ".jpg" {
		return time.Time{}, "", fmt.Errorf("not a snapshot: %s", filename)
	}
	base := strings.TrimSuffix(filename, ".jpg")

	if len(base) < len(timestampLayout)+2 || base[len(timestampLayout)] != '_' {
		return time.Time{}, "", fmt.Errorf("invalid snapshot name: %s", filename)
	}

	ts, err := time.Parse(timestampLayout, base[:len(timestampLayout)])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid timestamp in %s: %w", filename, err)
	}

	camera, _, _ := strings.Cut(base[len(timestampLayout)+1:], "_")
	if camera == "" {
		return time.Time{}, "", fmt.Errorf("missing camera in %s", filename)
	}
	return ts, camera, nil
}

// Reindex records snapshot files in dir that the repository does not know
// about yet. It returns how many were added and how many files were skipped.
func Reindex(dir string, images repository.ImageRepository, logger *logger.Logger) (int, int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read images directory: %w", err)
	}

	added, skipped := 0, 0
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
			continue
		}

		ts, camera, err := ParseSnapshotName(file.Name())
		if err != nil {
			logger.Warning("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		if _, err := images.GetByFilename(file.Name()); err == nil {
			continue
		} else if !errors.Is(err, sqlite.ErrNotFound) {
			return added, skipped, err
		}

		info, err := file.Info()
		if err != nil {
			logger.Warning("Failed to get info for %s: %v", file.Name(), err)
			skipped++
			continue
		}

		if _, err := images.Insert(&model.Image{
			Filename:  file.Name(),
			Camera:    camera,
			Timestamp: ts,
			FilePath:  filepath.Join(dir, file.Name()),
			FileSize:  info.Size(),
		}); err != nil {
			return added, skipped, fmt.Errorf("failed to insert %s: %w", file.Name(), err)
		}
		added++
	}

	return added, skipped, nil
}
