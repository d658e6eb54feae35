package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"safestep/internal/config"
	"safestep/internal/dto"
	"safestep/internal/logger"
	"safestep/internal/model"
	"safestep/internal/repository"
)

const timestampLayout = "2006-01-02_15-04-05.000"

// BufferService buffers snapshots in memory and periodically flushes them to disk.
type BufferService struct {
	imagesDir     string
	bufferLimit   int
	flushInterval time.Duration
	images        []dto.BufferedImage
	mu            sync.Mutex
	logger        *logger.Logger
	imageRepo     repository.ImageRepository
	now           func() time.Time
}

// NewBufferService creates a BufferService. imageRepo may be nil.
func NewBufferService(config *config.Config, logger *logger.Logger, imageRepo repository.ImageRepository) *BufferService {
	return &BufferService{
		imagesDir:     config.ImageDirectory,
		bufferLimit:   config.SnapshotBufferLimit,
		flushInterval: time.Duration(config.SnapshotFlushInterval) * time.Second,
		images:        make([]dto.BufferedImage, 0),
		logger:        logger,
		imageRepo:     imageRepo,
		now:           time.Now,
	}
}

// Run flushes the buffer on every tick and once more when ctx is done.
func (s *BufferService) Run(ctx context.Context) {
	interval := s.flushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.FlushImages()
		case <-ctx.Done():
			s.FlushImages()
			return
		}
	}
}

// AddImage queues a snapshot and returns the filename it will be written to,
// or "" when the buffer is full.
func (s *BufferService) AddImage(imageData []byte, camera string, detections []model.Detection) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) >= s.bufferLimit {
		s.logger.Warning("Snapshot buffer full (%d), dropping image from %s", s.bufferLimit, camera)
		return ""
	}

	timestamp := s.now().UTC().Format(timestampLayout)
	image := dto.BufferedImage{
		Filename:   snapshotName(timestamp, camera, detections),
		Timestamp:  timestamp,
		Camera:     camera,
		Detections: detections,
		Data:       imageData,
	}
	s.images = append(s.images, image)
	s.logger.Debug("Snapshot buffer size: %d/%d", len(s.images), s.bufferLimit)

	return image.Filename
}

func snapshotName(timestamp, camera string, detections []model.Detection) string {
	seen := make(map[string]bool)
	var labels []string
	for _, det := range detections {
		if !seen[det.Label] {
			seen[det.Label] = true
			labels = append(labels, det.Label)
		}
	}

	name := timestamp + "_" + camera
	if len(labels) > 0 {
		name += "_" + strings.Join(labels, "_")
	}
	return name + ".jpg"
}

// Pending returns the number of buffered snapshots.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// FlushImages writes buffered snapshots to disk, records them in the
// repository and clears the buffer.
func (s *BufferService) FlushImages() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		return
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return
	}

	savedCount := 0
	for _, image := range s.images {
		fullpath := filepath.Join(s.imagesDir, image.Filename)

		if err := os.WriteFile(fullpath, image.Data, 0644); err != nil {
			s.logger.Error("Error saving image %s: %v", image.Filename, err)
			continue
		}

		if s.imageRepo != nil {
			ts, err := time.Parse(timestampLayout, image.Timestamp)
			if err != nil {
				ts = s.now().UTC()
			}

			if _, err := s.imageRepo.Insert(&model.Image{
				Filename:  image.Filename,
				Camera:    image.Camera,
				Timestamp: ts,
				FilePath:  fullpath,
				FileSize:  int64(len(image.Data)),
			}); err != nil {
				s.logger.Error("Error saving image to database %s: %v", image.Filename, err)
			}
		}

		savedCount++
	}

	s.logger.Info("Flushed %d images to disk", savedCount)
	s.images = s.images[:0]
}

// Path returns the on-disk location of a snapshot, rejecting names that
// would escape the image directory.
func (s *BufferService) Path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("invalid snapshot name %q", filename)
	}
	return filepath.Join(s.imagesDir, filename), nil
}
