// Package sink persists task outcomes: dated CSV and JSONL result logs, a
// per-task JSON snapshot, screenshots, and a SQLite history store.
package sink

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/pricescout/types"
)

// Sink records finished tasks.
type Sink interface {
	Persist(task *types.Task) error
}

var csvHeader = []string{
	"task_id", "timestamp", "product_name", "price", "currency", "store",
	"availability", "size", "source_url", "screenshot", "meets_criteria", "method",
}

// FileSink writes results under a data directory:
//
//	results-YYYY-MM-DD.csv    one row per extraction result
//	results-YYYY-MM-DD.jsonl  one record per extraction result
//	tasks/<task-id>.json      full task snapshot
//	screenshots/<name>.png    captured screenshots
//
// Appends are serialized by a mutex and use O_APPEND, so concurrent tasks
// never interleave partial lines.
type FileSink struct {
	dir    string
	logger *zap.Logger

	mu sync.Mutex
}

// NewFileSink creates the sink and its directory layout.
func NewFileSink(dir string, logger *zap.Logger) (*FileSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, sub := range []string{"", "tasks", "screenshots"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create sink dir: %w", err)
		}
	}
	return &FileSink{dir: dir, logger: logger.With(zap.String("component", "sink"))}, nil
}

// Persist implements Sink.
func (s *FileSink) Persist(task *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := time.Now().UTC().Format("2006-01-02")
	if err := s.appendCSV(day, task); err != nil {
		return err
	}
	if err := s.appendJSONL(day, task); err != nil {
		return err
	}
	if err := s.writeSnapshot(task); err != nil {
		return err
	}
	s.logger.Debug("task persisted",
		zap.String("task_id", task.ID), zap.Int("results", len(task.Results)))
	return nil
}

func (s *FileSink) appendCSV(day string, task *types.Task) error {
	if len(task.Results) == 0 {
		return nil
	}
	path := filepath.Join(s.dir, "results-"+day+".csv")
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	for _, r := range task.Results {
		row := []string{
			task.ID,
			r.Timestamp.Format(time.RFC3339),
			r.ProductName,
			strconv.FormatFloat(r.CurrentPrice, 'f', 2, 64),
			r.Currency,
			r.StoreName,
			string(r.Availability),
			deref(r.SelectedSize),
			r.SourceURL,
			deref(r.ScreenshotPath),
			strconv.FormatBool(r.MeetsCriteria),
			string(r.Method),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (s *FileSink) appendJSONL(day string, task *types.Task) error {
	if len(task.Results) == 0 {
		return nil
	}
	path := filepath.Join(s.dir, "results-"+day+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open jsonl: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range task.Results {
		record := struct {
			TaskID string `json:"task_id"`
			types.ExtractionResult
		}{TaskID: task.ID, ExtractionResult: r}
		if err := enc.Encode(record); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSink) writeSnapshot(task *types.Task) error {
	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, "tasks", task.ID+".json")
	return os.WriteFile(path, data, 0o644)
}

// Save persists a screenshot and returns its path, satisfying the agents'
// screenshot saver contract.
func (s *FileSink) Save(name string, png []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := fmt.Sprintf("%s-%s.png", time.Now().UTC().Format("20060102-150405.000"), name)
	path := filepath.Join(s.dir, "screenshots", file)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("save screenshot: %w", err)
	}
	return path, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
