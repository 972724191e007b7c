// Package history keeps the append-only step log of a run.
package history

import (
	"context"
	"sync"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
)

// Recorder appends step records in order. Once a record ending in a done result is
// appended the history is sealed.
type Recorder struct {
	mu      sync.RWMutex
	history *entity.History
	sink    output.HistorySink
	logger  output.LoggerPort
}

// NewRecorder starts an empty history. sink may be nil.
func NewRecorder(runID, task string, sink output.HistorySink, logger output.LoggerPort) *Recorder {
	return &Recorder{
		history: &entity.History{RunID: runID, Task: task},
		sink:    sink,
		logger:  logger,
	}
}

// Append copies record into the history and streams it to the sink. Sink failures
// are logged; the in-memory history stays authoritative.
func (r *Recorder) Append(ctx context.Context, record entity.StepRecord) error {
	r.mu.Lock()
	if r.history.IsDone() {
		r.mu.Unlock()
		return entity.ErrHistorySealed
	}
	stored := cloneRecord(record)
	r.history.Records = append(r.history.Records, stored)
	runID := r.history.RunID
	r.mu.Unlock()

	if r.sink != nil {
		if err := r.sink.Write(ctx, runID, stored); err != nil {
			r.logger.Warn("history sink write failed", "step", stored.StepNumber, "error", err)
		}
	}
	return nil
}

// History returns a copy of the records appended so far.
func (r *Recorder) History() *entity.History {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &entity.History{RunID: r.history.RunID, Task: r.history.Task}
	out.Records = make([]entity.StepRecord, len(r.history.Records))
	for i, rec := range r.history.Records {
		out.Records[i] = cloneRecord(rec)
	}
	return out
}

func (r *Recorder) IsDone() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.IsDone()
}

func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.history.Records)
}

func (r *Recorder) Close() error {
	if r.sink == nil {
		return nil
	}
	return r.sink.Close()
}

func cloneRecord(rec entity.StepRecord) entity.StepRecord {
	out := rec
	if rec.Brain != nil {
		b := *rec.Brain
		out.Brain = &b
	}
	out.ProposedActions = make([]entity.ActionIntent, len(rec.ProposedActions))
	for i, a := range rec.ProposedActions {
		out.ProposedActions[i] = entity.ActionIntent{Name: a.Name, Params: cloneParams(a.Params)}
	}
	out.Results = append([]entity.ActionResult(nil), rec.Results...)
	out.State.Tabs = append([]entity.TabInfo(nil), rec.State.Tabs...)
	out.State.InteractedElements = append([]*entity.ElementSnapshot(nil), rec.State.InteractedElements...)
	return out
}

func cloneParams(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
