package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"webpilot/internal/application/port/input"
	"webpilot/internal/domain/entity"
	"webpilot/internal/usecase/actions"
)

const (
	defaultReplayRetries = 3
	defaultReplayDelay   = 2 * time.Second
)

// Replay re-executes the actions of a recorded history against the current page.
// Indexed actions are re-addressed by the path hash of the element they targeted when
// recorded, so the replay survives changed highlight indices.
func (c *Controller) Replay(ctx context.Context, h *entity.History, opts input.ReplayOptions) ([]entity.ActionResult, error) {
	if c.deps.Page == nil || c.deps.Capturer == nil {
		return nil, entity.ErrNoPage
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultReplayRetries
	}
	if opts.DelayBetween <= 0 {
		opts.DelayBetween = defaultReplayDelay
	}
	if h == nil {
		return nil, nil
	}

	logger := c.logger.WithField("replay_of", h.RunID)
	var results []entity.ActionResult
	for _, rec := range h.Records {
		if len(rec.ProposedActions) == 0 {
			logger.Debug("skipping step without actions", "step", rec.StepNumber)
			continue
		}
		if rec.Brain != nil && rec.Brain.NextGoal != "" {
			logger.Info("replaying step", "step", rec.StepNumber, "goal", rec.Brain.NextGoal)
		}

		var (
			res []entity.ActionResult
			err error
		)
		for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
			res, err = c.replayStep(ctx, rec)
			if err == nil || errors.Is(err, context.Canceled) {
				break
			}
			logger.Warn("replay step failed", "step", rec.StepNumber, "attempt", attempt, "max", opts.MaxRetries, "error", err)
			if attempt < opts.MaxRetries {
				if sleepErr := c.sleep(ctx, opts.DelayBetween); sleepErr != nil {
					return results, sleepErr
				}
			}
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || !opts.SkipFailures {
				return append(results, res...), fmt.Errorf("replay step %d: %w", rec.StepNumber, err)
			}
			results = append(results, res...)
			results = append(results, entity.ErrorResult(err.Error()))
			continue
		}
		results = append(results, res...)

		if err := c.sleep(ctx, opts.DelayBetween); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (c *Controller) replayStep(ctx context.Context, rec entity.StepRecord) ([]entity.ActionResult, error) {
	state, err := c.deps.Capturer.Capture(ctx, -1)
	if err != nil {
		return nil, err
	}

	intents := make([]entity.ActionIntent, 0, len(rec.ProposedActions))
	for i, in := range rec.ProposedActions {
		idx, ok := actions.IntentTargetIndex(in)
		if !ok {
			intents = append(intents, in)
			continue
		}
		var snap *entity.ElementSnapshot
		if i < len(rec.State.InteractedElements) {
			snap = rec.State.InteractedElements[i]
		}
		if snap == nil {
			return nil, fmt.Errorf("%w: no recorded element for %s at index %d", entity.ErrElementNotFound, in.Name, idx)
		}
		desc, found := state.SelectorMap.FindByPathHash(snap.PathHash)
		if !found {
			return nil, fmt.Errorf("%w: element %d (%s) is not on the current page", entity.ErrElementNotFound, idx, snap.Tag)
		}
		intents = append(intents, withIndex(in, desc.HighlightIndex()))
	}

	results := make([]entity.ActionResult, 0, len(intents))
	for _, in := range intents {
		res, err := c.deps.Executor.Execute(ctx, in, state)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if res.IsDone || res.Failed() {
			break
		}
	}
	return results, nil
}

func withIndex(in entity.ActionIntent, index int) entity.ActionIntent {
	params := make(map[string]any, len(in.Params)+1)
	for k, v := range in.Params {
		params[k] = v
	}
	params["index"] = index
	return entity.ActionIntent{Name: in.Name, Params: params}
}
