package questions

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/soyeahso/twin/internal/domain"
	"github.com/soyeahso/twin/internal/logging"
)

var csvHeader = []string{"timestamp", "question"}

// CSVLog appends questions to a CSV file with a "timestamp,question" header.
// The file is opened per append so external edits and rotation are safe.
type CSVLog struct {
	mu   sync.Mutex
	path string
	log  *logging.Logger
}

// NewCSVLog creates a CSV-backed question log at path.
func NewCSVLog(path string, log *logging.Logger) *CSVLog {
	return &CSVLog{path: path, log: log.Sub("questions")}
}

// Path returns the file the log writes to.
func (c *CSVLog) Path() string { return c.path }

// Append writes one row, preceded by the header when the file is new.
func (c *CSVLog) Append(_ context.Context, q domain.UnknownQuestion) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating question log directory: %w", err)
		}
	}

	_, statErr := os.Stat(c.path)
	isNew := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening question log: %w", err)
	}

	w := csv.NewWriter(f)
	if isNew {
		w.Write(csvHeader)
	}
	w.Write([]string{q.Timestamp.Format(time.RFC3339Nano), q.Question})
	w.Flush()

	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("writing question log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing question log: %w", err)
	}

	c.log.Info().Str("question", q.Question).Msg("unknown question recorded")
	return nil
}

// List reads every row after the header. A missing file yields no rows.
func (c *CSVLog) List(_ context.Context) ([]domain.UnknownQuestion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening question log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []domain.UnknownQuestion
	for line := 0; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading question log: %w", err)
		}
		if line == 0 && len(rec) == 2 && rec[0] == csvHeader[0] && rec[1] == csvHeader[1] {
			continue
		}
		if len(rec) < 2 {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, rec[0])
		if err != nil {
			c.log.Debug().Str("timestamp", rec[0]).Msg("unparseable timestamp in question log")
		}
		out = append(out, domain.UnknownQuestion{Timestamp: ts, Question: rec[1]})
	}
	return out, nil
}

// Close is a no-op; the file is closed after every append.
func (c *CSVLog) Close() error { return nil }
