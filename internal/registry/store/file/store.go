// Package file persists registry records as one JSON document that is
// replaced atomically on every append.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"kycgate/internal/platform/metrics"
	"kycgate/internal/registry/models"
	"kycgate/pkg/platform/sentinel"
)

// document is the on-disk shape.
type document struct {
	Dimension int             `json:"dimension"`
	Records   []models.Record `json:"records"`
}

// Store keeps the full collection in memory and rewrites the file through a
// temp file, fsync and rename, so a crash leaves either the old or the new
// collection on disk.
type Store struct {
	path    string
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	records []models.Record
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// Open loads path. A missing file yields an empty collection. An unreadable
// or malformed file also yields an empty collection; it is logged, counted,
// and moved aside to path+".corrupt".
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}

	records, err := readDocument(path)
	switch {
	case err == nil:
		s.records = records
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("registry file not found, starting empty", "path", path)
	default:
		s.recover(err)
	}
	return s, nil
}

func (s *Store) recover(cause error) {
	s.metrics.IncrementRegistryRecoveries()
	aside := s.path + ".corrupt"
	if err := os.Rename(s.path, aside); err != nil {
		s.logger.Warn("registry file unreadable, starting empty",
			"path", s.path,
			"error", cause,
			"move_error", err,
		)
		return
	}
	s.logger.Warn("registry file unreadable, starting empty",
		"path", s.path,
		"moved_to", aside,
		"error", cause,
	)
}

func readDocument(path string) ([]models.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrCorrupt, err)
	}
	if err := validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrCorrupt, err)
	}
	return doc.Records, nil
}

func validate(doc document) error {
	if len(doc.Records) == 0 {
		return nil
	}
	if doc.Dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", doc.Dimension)
	}
	for i, rec := range doc.Records {
		if rec.ID == "" {
			return fmt.Errorf("record %d has no id", i)
		}
		if len(rec.Vector) != doc.Dimension {
			return fmt.Errorf("record %d has %d components, want %d", i, len(rec.Vector), doc.Dimension)
		}
	}
	return nil
}

// Append writes the collection with rec added. The in-memory collection only
// changes after the rename succeeds.
func (s *Store) Append(_ context.Context, rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Record, len(s.records), len(s.records)+1)
	copy(next, s.records)
	next = append(next, rec)
	if err := s.write(next); err != nil {
		return err
	}
	s.records = next
	return nil
}

// ScanAll returns a copy of the collection in append order.
func (s *Store) ScanAll(_ context.Context) ([]models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(nil); err != nil {
		return err
	}
	s.records = nil
	return nil
}

func (s *Store) write(records []models.Record) error {
	doc := document{Records: records}
	if doc.Records == nil {
		doc.Records = []models.Record{}
	}
	if len(records) > 0 {
		doc.Dimension = len(records[0].Vector)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp registry file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp registry file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp registry file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace registry file: %w", err)
	}
	tmpName = ""
	syncDir(filepath.Dir(s.path))
	return nil
}

// syncDir flushes the rename. Not every platform supports fsync on a
// directory, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
