// Package historystore persists step records as JSON lines, one record per line,
// and loads them back for replay.
package historystore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
)

// maxLineSize bounds one record; screenshots are never stored, so records stay small.
const maxLineSize = 16 << 20

var ErrRunNotFound = errors.New("run not found in history file")

var _ output.HistorySink = (*JSONLSink)(nil)

type line struct {
	RunID  string            `json:"run_id"`
	Task   string            `json:"task,omitempty"`
	Record entity.StepRecord `json:"record"`
}

// JSONLSink appends records to a file. Several runs may share one file.
type JSONLSink struct {
	mu     sync.Mutex
	file   *os.File
	enc    *json.Encoder
	task   string
	closed bool
}

// OpenSink opens path for appending, creating parent directories as needed. task is
// stored with every line so a loaded history knows what it was for.
func OpenSink(path, task string) (*JSONLSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	return &JSONLSink{file: f, enc: json.NewEncoder(f), task: task}, nil
}

func (s *JSONLSink) Write(ctx context.Context, runID string, record entity.StepRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return os.ErrClosed
	}
	if err := s.enc.Encode(line{RunID: runID, Task: s.task, Record: record}); err != nil {
		return fmt.Errorf("write history record %d: %w", record.StepNumber, err)
	}
	return nil
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// Load reads the history of runID from path. An empty runID selects the last run
// written to the file. A truncated final line, left by a crash mid-write, is ignored.
func Load(path, runID string) (*entity.History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	runs := map[string]*entity.History{}
	var last string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	var pending error
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		if pending != nil {
			return nil, pending
		}
		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			pending = fmt.Errorf("history line %d: %w", lineNo, err)
			continue
		}
		h, ok := runs[l.RunID]
		if !ok {
			h = &entity.History{RunID: l.RunID, Task: l.Task}
			runs[l.RunID] = h
		}
		h.Records = append(h.Records, l.Record)
		last = l.RunID
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}

	if runID == "" {
		runID = last
	}
	h, ok := runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	return h, nil
}
