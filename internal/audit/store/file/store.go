// Package file keeps the attempt log as JSON Lines, one attempt per line.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"kycgate/internal/audit/models"
)

const maxLineBytes = 1 << 20

// Store appends with O_APPEND under a mutex so lines never interleave.
type Store struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
	f  *os.File
}

func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create attempt log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open attempt log: %w", err)
	}
	return &Store{path: path, logger: logger, f: f}, nil
}

func (s *Store) Append(_ context.Context, attempt models.Attempt) error {
	line, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(line); err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync attempt log: %w", err)
	}
	return nil
}

// List reads every line in order. Lines that do not decode are skipped.
func (s *Store) List(ctx context.Context) ([]models.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Attempt{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open attempt log: %w", err)
	}
	defer f.Close()

	attempts := []models.Attempt{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var a models.Attempt
		if err := json.Unmarshal(raw, &a); err != nil {
			s.logger.WarnContext(ctx, "skipping unreadable attempt log line",
				"path", s.path,
				"line", lineNo,
				"error", err,
			)
			continue
		}
		attempts = append(attempts, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read attempt log: %w", err)
	}
	return attempts, nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.f.Truncate(0); err != nil {
		return fmt.Errorf("clear attempt log: %w", err)
	}
	return s.f.Sync()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
