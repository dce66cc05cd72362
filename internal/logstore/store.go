// Package logstore implements the append-only local activity log. It is the
// source of truth for observed events until a batch is confirmed uploaded.
package logstore

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bramburn/timetracker/internal/models"

	"go.uber.org/zap"
)

const (
	delimiter      = " - "
	timeLayout     = "2006-01-02 15:04:05.000"
	timeLayoutSecs = "2006-01-02 15:04:05"
)

// Store is a line-oriented, append-only record log. Producers append from
// input hooks, samplers, and the annotation flow; the upload cycle consumes
// via Snapshot followed by Truncate. A single mutex serializes appends
// against the snapshot/truncate pair so records appended during an upload
// round-trip are never lost.
type Store struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// Snapshot is one consistent view of the store: the parsed records plus the
// exact number of bytes they were read from. Truncate removes only that
// prefix, leaving anything appended afterwards in place.
type Snapshot struct {
	Records []models.ActivityRecord
	size    int64
}

// New creates a store backed by the given file path. The file is created
// lazily on first append.
func New(path string, logger *zap.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Append serializes one record and appends it to the log. Failures are
// non-fatal: the record is dropped with a warning so producers (which may
// run on the input hook delivery context) are never blocked.
func (s *Store) Append(record models.ActivityRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Warn("Failed to open activity log, dropping record",
			zap.String("path", s.path),
			zap.String("event_type", string(record.EventType)),
			zap.Error(err),
		)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(record) + "\n"); err != nil {
		s.logger.Warn("Failed to append activity record",
			zap.String("path", s.path),
			zap.Error(err),
		)
	}
}

// ReadAll parses every well-formed line into a record. Malformed lines are
// skipped without aborting the read. A missing file yields an empty slice.
func (s *Store) ReadAll() ([]models.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, _, err := s.read()
	return records, err
}

// TakeSnapshot reads the current store contents as one batch. The returned
// snapshot remembers how many bytes it covers so Truncate can remove exactly
// those records later.
func (s *Store) TakeSnapshot() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, size, err := s.read()
	if err != nil {
		return nil, err
	}
	return &Snapshot{Records: records, size: size}, nil
}

// Truncate removes the snapshotted prefix from the log, preserving any bytes
// appended after the snapshot was taken. Called only after the batch has
// been confirmed delivered.
func (s *Store) Truncate(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read activity log: %w", err)
	}

	if snap.size >= int64(len(data)) {
		if err := os.WriteFile(s.path, nil, 0o644); err != nil {
			return fmt.Errorf("failed to truncate activity log: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(s.path, data[snap.size:], 0o644); err != nil {
		return fmt.Errorf("failed to rewrite activity log: %w", err)
	}
	return nil
}

// Clear empties the log unconditionally.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.path, nil, 0o644); err != nil {
		return fmt.Errorf("failed to clear activity log: %w", err)
	}
	return nil
}

func (s *Store) read() ([]models.ActivityRecord, int64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to read activity log: %w", err)
	}

	var records []models.ActivityRecord
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		record, ok := parseLine(line)
		if !ok {
			s.logger.Debug("Skipping malformed activity log line",
				zap.String("line", line),
			)
			continue
		}
		records = append(records, record)
	}

	return records, int64(len(data)), nil
}

// FormatTimestamp renders a record timestamp the way the log file does.
// The upload payload reuses this form so server-side timestamps match the
// local log exactly.
func FormatTimestamp(t time.Time) string {
	return t.Format(timeLayout)
}

// formatLine renders "YYYY-MM-DD HH:MM:SS.mmm - EVENTTYPE - details".
func formatLine(record models.ActivityRecord) string {
	return record.Timestamp.Format(timeLayout) + delimiter + string(record.EventType) + delimiter + record.Details
}

// parseLine parses one log line. The details segment may itself contain the
// delimiter, so only the first two splits are structural; the remainder is
// rejoined. Timestamps with and without milliseconds are both accepted.
func parseLine(line string) (models.ActivityRecord, bool) {
	parts := strings.SplitN(line, delimiter, 3)
	if len(parts) < 3 {
		return models.ActivityRecord{}, false
	}

	ts, err := time.ParseInLocation(timeLayout, parts[0], time.Local)
	if err != nil {
		ts, err = time.ParseInLocation(timeLayoutSecs, parts[0], time.Local)
		if err != nil {
			return models.ActivityRecord{}, false
		}
	}

	return models.ActivityRecord{
		Timestamp: ts,
		EventType: models.EventType(parts[1]),
		Details:   parts[2],
	}, true
}
