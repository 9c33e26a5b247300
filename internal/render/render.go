package render

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteDigestToFile writes the provided content to a file in the specified
// directory and returns the full path.
func WriteDigestToFile(content, outputDir, filename string) (string, error) {
	if outputDir == "" {
		outputDir = "digests"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filePath := filepath.Join(outputDir, filename)

	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write digest file %s: %w", filePath, err)
	}

	return filePath, nil
}

// DigestFilename derives the dated HTML filename for a digest.
func DigestFilename(date time.Time) string {
	return fmt.Sprintf("digest_%s.html", date.UTC().Format("2006-01-02"))
}
