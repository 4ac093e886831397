package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/entrhq/sms-e2e/pkg/storagestate"
	"github.com/goccy/go-json"
)

// SummaryFile is the run summary written under the artifacts directory.
const SummaryFile = "bootstrap-summary.json"

// Attempt records one strategy in the run summary.
type Attempt struct {
	Strategy string `json:"strategy"`
	Result   string `json:"result"`
	Error    string `json:"error,omitempty"`
}

// Attempt results
const (
	ResultSucceeded = "succeeded"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

// Summary is the machine-readable record of a bootstrap run.
type Summary struct {
	RunID      string               `json:"run_id"`
	StartTime  time.Time            `json:"start_time"`
	EndTime    time.Time            `json:"end_time"`
	Duration   string               `json:"duration"`
	Outcome    *Outcome             `json:"outcome"`
	Attempts   []Attempt            `json:"attempts"`
	Inspection *storagestate.Report `json:"inspection,omitempty"`
}

// ArtifactWriter handles writing run artifacts
type ArtifactWriter struct {
	outputDir string
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
	}
}

// WriteSummary writes the run summary as JSON and returns its path.
func (w *ArtifactWriter) WriteSummary(summary *Summary) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.outputDir, SummaryFile)

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal bootstrap summary: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return "", fmt.Errorf("failed to write bootstrap summary: %w", writeErr)
	}

	return path, nil
}
