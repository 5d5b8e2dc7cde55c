package reportjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fraudgraph/internal/logger"
	"fraudgraph/pkg/models"
)

// Writer outputs investigation envelopes to a JSON lines file.
type Writer struct {
	file    *os.File
	encoder *json.Encoder
	written int
	mu      sync.Mutex
}

// NewWriter creates a JSONL writer for investigation reports.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	logger.Infof("Report JSON writer initialized: %s", path)
	return &Writer{
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

// WriteInvestigations writes a batch of investigation envelopes.
func (w *Writer) WriteInvestigations(reports []*models.Investigation) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, report := range reports {
		if err := w.encoder.Encode(report); err != nil {
			return fmt.Errorf("failed to encode investigation for case %s: %w", report.CaseID, err)
		}
		w.written++
	}
	logger.Debugf("Wrote batch of %d investigation reports (%d total)", len(reports), w.written)
	return nil
}

// Close closes the output file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	logger.Infof("Report JSON writer closed: %d investigations written", w.written)
	return w.file.Close()
}
