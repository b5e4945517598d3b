package sinks

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/selflog"
)

// FileSink appends events to a file as CLEF lines. Output is buffered until
// Flush or Close.
type FileSink struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *bufio.Writer
}

// NewFileSink opens path for appending, creating parent directories.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: file path is empty", core.ErrInvalidArgument)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &FileSink{path: path, file: f, writer: bufio.NewWriter(f)}, nil
}

// Path returns the file path.
func (s *FileSink) Path() string {
	return s.path
}

// Emit writes one line per event. Events that cannot be encoded are
// skipped and reported to selflog.
func (s *FileSink) Emit(_ context.Context, events []*core.LogEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrSinkClosed
	}
	for _, e := range events {
		line, err := FormatCLEF(e)
		if err != nil {
			selflog.Printf("[file] encode event %q: %v", e.TemplateText(), err)
			continue
		}
		s.writer.Write(line)
		if err := s.writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write %s: %w", s.path, err)
		}
	}
	return nil
}

// Flush writes buffered lines and syncs the file.
func (s *FileSink) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", s.path, err)
	}
	return s.file.Sync()
}

// Close flushes and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	flushErr := s.writer.Flush()
	closeErr := s.file.Close()
	s.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
