package yolo

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Labels maps class indices to names.
type Labels []string

// ParseLabels trims names and drops empty entries.
func ParseLabels(names []string) Labels {
	labels := make(Labels, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			labels = append(labels, name)
		}
	}
	return labels
}

// LoadLabels reads one class name per line. Blank lines and lines starting
// with '#' are skipped.
func LoadLabels(path string) (Labels, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer file.Close()

	var labels Labels
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}

	return labels, nil
}

// Name returns the label for classID, or class_<id> when it is unknown.
func (l Labels) Name(classID int) string {
	if classID >= 0 && classID < len(l) {
		return l[classID]
	}
	return fmt.Sprintf("class_%d", classID)
}
