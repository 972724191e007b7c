// Package controller runs the capture, decide, execute and record loop.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"webpilot/internal/application/port/input"
	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
	"webpilot/internal/usecase/actions"
	"webpilot/internal/usecase/addressing"
	"webpilot/internal/usecase/capture"
	"webpilot/internal/usecase/decision"
	"webpilot/internal/usecase/history"

	"github.com/google/uuid"
)

var _ input.AgentRunner = (*Controller)(nil)

const (
	maxErrorLength = 400

	cancelledAfterDecision = "Run was stopped before the proposed actions were executed; actions may need to be repeated"
)

type Settings struct {
	MaxSteps           int
	MaxFailures        int
	MaxNetworkFailures int
	RetryDelay         time.Duration
	MaxActionsPerStep  int
	WaitBetweenActions time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		MaxSteps:           100,
		MaxFailures:        3,
		MaxNetworkFailures: 3,
		RetryDelay:         10 * time.Second,
		MaxActionsPerStep:  10,
		WaitBetweenActions: 500 * time.Millisecond,
	}
}

// ControlState is the mutable bookkeeping of one run. It is created when Run starts,
// written only by the loop and dropped when Run returns.
type ControlState struct {
	StepCount           int
	ConsecutiveFailures int
	NetworkFailureCount int
	Stopped             bool
	Paused              bool
}

// Hooks are optional step callbacks.
type Hooks struct {
	OnNewStep  func(state *entity.PageState, decision *entity.Decision, step int)
	OnDone     func(history *entity.History)
	ShouldStop func() bool
}

type Deps struct {
	Page         output.PagePort
	Capturer     *capture.Capturer
	Engine       output.DecisionEngine
	Executor     *actions.Executor
	Counter      output.TokenCounter
	Sink         output.HistorySink
	Logger       output.LoggerPort
	SystemPrompt string
	Messages     decision.ManagerSettings
}

type Controller struct {
	deps     Deps
	settings Settings
	hooks    Hooks
	logger   output.LoggerPort

	stopRequested  atomic.Bool
	pauseRequested atomic.Bool

	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	newRunID func() string
}

func New(deps Deps, settings Settings, hooks Hooks) *Controller {
	defaults := DefaultSettings()
	if settings.MaxSteps <= 0 {
		settings.MaxSteps = defaults.MaxSteps
	}
	if settings.MaxFailures <= 0 {
		settings.MaxFailures = defaults.MaxFailures
	}
	if settings.MaxNetworkFailures <= 0 {
		settings.MaxNetworkFailures = defaults.MaxNetworkFailures
	}
	if settings.MaxActionsPerStep <= 0 {
		settings.MaxActionsPerStep = defaults.MaxActionsPerStep
	}
	return &Controller{
		deps:     deps,
		settings: settings,
		hooks:    hooks,
		logger:   deps.Logger,
		sleep:    sleepCtx,
		now:      time.Now,
		newRunID: func() string { return uuid.NewString() },
	}
}

// Stop asks the loop to exit at its next checkpoint. A stop requested before Run
// ends that run before its first step; the request is cleared when the run exits.
func (c *Controller) Stop() {
	c.stopRequested.Store(true)
}

// Pause asks the loop to exit at its next checkpoint, keeping the history.
func (c *Controller) Pause() {
	c.pauseRequested.Store(true)
}

// Resume clears a pause request so a later Run can proceed.
func (c *Controller) Resume() {
	c.pauseRequested.Store(false)
}

// run is everything scoped to a single Run call.
type run struct {
	id          string
	control     *ControlState
	recorder    *history.Recorder
	messages    *decision.Manager
	maxSteps    int
	lastResults []entity.ActionResult
	logger      output.LoggerPort
}

// Run drives the loop until the task is done, a failure threshold is breached, the
// step budget is spent or the run is cancelled. Only a missing page or a
// programming error in an action handler is returned as an error.
func (c *Controller) Run(ctx context.Context, opts input.RunOptions) (*entity.History, error) {
	if c.deps.Page == nil || c.deps.Capturer == nil {
		return nil, entity.ErrNoPage
	}
	defer c.stopRequested.Store(false)

	r := &run{
		id:       c.newRunID(),
		control:  &ControlState{},
		maxSteps: opts.MaxSteps,
	}
	if r.maxSteps <= 0 {
		r.maxSteps = c.settings.MaxSteps
	}
	r.logger = c.logger.WithField("run_id", r.id)
	r.recorder = history.NewRecorder(r.id, opts.Task, c.deps.Sink, r.logger)
	r.messages = decision.NewManager(c.deps.SystemPrompt, opts.Task, c.deps.Counter, c.deps.Messages)

	r.logger.Info("run started", "task", opts.Task, "max_steps", r.maxSteps, "max_input_tokens", r.messages.MaxInputTokens())

	if err := c.runInitialActions(ctx, r, opts); err != nil {
		return r.recorder.History(), err
	}

	reason := "step budget exhausted"
	for step := 1; step <= r.maxSteps; step++ {
		if r.control.ConsecutiveFailures >= c.settings.MaxFailures {
			reason = fmt.Sprintf("stopping due to %d consecutive failures", r.control.ConsecutiveFailures)
			break
		}
		if r.control.NetworkFailureCount >= c.settings.MaxNetworkFailures {
			reason = fmt.Sprintf("stopping due to %d network failures", r.control.NetworkFailureCount)
			break
		}
		if c.cancelled(ctx, r) {
			reason = "run stopped"
			break
		}

		r.control.StepCount = step
		outcome, err := c.step(ctx, r, step)
		if err != nil {
			r.logger.Error("run aborted", "step", step, "error", err)
			return r.recorder.History(), err
		}
		if outcome == stepDone {
			reason = "task finished"
			break
		}
		if outcome == stepCancelled {
			reason = "run stopped"
			break
		}
		// network breaker trips immediately, not at the top of the next iteration
		if r.control.NetworkFailureCount >= c.settings.MaxNetworkFailures {
			reason = fmt.Sprintf("stopping due to %d network failures", r.control.NetworkFailureCount)
			break
		}
	}

	h := r.recorder.History()
	r.logger.Info("run finished", "reason", reason, "steps", h.NumberOfSteps(), "done", h.IsDone())
	if c.hooks.OnDone != nil {
		c.hooks.OnDone(h)
	}
	return h, nil
}

// runInitialActions navigates to the initial URL and executes the initial actions.
// Their results are fed into the first prompt; they are not recorded as a step.
func (c *Controller) runInitialActions(ctx context.Context, r *run, opts input.RunOptions) error {
	intents := make([]entity.ActionIntent, 0, len(opts.InitialActions)+1)
	if opts.InitialURL != "" {
		intents = append(intents, entity.ActionIntent{Name: actions.NameGoToURL, Params: map[string]any{"url": opts.InitialURL}})
	}
	intents = append(intents, opts.InitialActions...)
	if len(intents) == 0 {
		return nil
	}

	var state *entity.PageState
	if needsState(intents) {
		s, err := c.deps.Capturer.Capture(ctx, -1)
		if err != nil {
			r.logger.Warn("initial state capture failed", "error", err)
		}
		state = s
	}
	results, err := c.executeBatch(ctx, r, intents, state)
	r.lastResults = results
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type stepOutcome int

const (
	stepContinue stepOutcome = iota
	stepDone
	stepCancelled
)

// step runs one capture, decide, execute cycle and always records it, except when
// cancellation is observed before anything happened.
func (c *Controller) step(ctx context.Context, r *run, step int) (stepOutcome, error) {
	start := c.now()
	logger := r.logger.WithField("step", step)
	logger.Info("step started")

	var (
		state       *entity.PageState
		intents     []entity.ActionIntent
		brain       *entity.Brain
		results     []entity.ActionResult
		inputTokens int
		billed      int
		outcome     = stepContinue
	)

	record := func() {
		summary := state.Summary()
		if state != nil {
			summary.InteractedElements = interactedElements(intents, state.SelectorMap)
		}
		rec := entity.StepRecord{
			StepNumber:      step,
			Brain:           brain,
			ProposedActions: intents,
			Results:         results,
			State:           summary,
			Metadata: entity.StepMetadata{
				StartTime:         start,
				EndTime:           c.now(),
				InputTokens:       inputTokens,
				BilledInputTokens: billed,
			},
		}
		if err := r.recorder.Append(ctx, rec); err != nil {
			logger.Warn("step not recorded", "error", err)
		}
		r.lastResults = results
	}

	err := func() error {
		var err error
		state, err = c.deps.Capturer.Capture(ctx, -1)
		if err != nil {
			return err
		}

		r.messages.AddStateMessage(state, r.lastResults, decision.StepInfo{Number: step, MaxSteps: r.maxSteps})
		inputTokens = r.messages.TokenCount()

		d, err := c.deps.Engine.Decide(ctx, r.messages.Messages())
		r.messages.RemoveLastStateMessage()
		if err != nil {
			return err
		}
		if u, ok := c.deps.Engine.(output.UsageReporter); ok {
			billed = u.LastInputTokens()
		}
		if d == nil {
			d = &entity.Decision{}
		}
		r.messages.AddModelOutput(d)
		b := d.Brain
		brain = &b

		intents = d.Actions
		if len(intents) > c.settings.MaxActionsPerStep {
			intents = intents[:c.settings.MaxActionsPerStep]
		}
		if step >= r.maxSteps {
			intents = forceDone(intents)
		}
		d.Actions = intents

		if c.hooks.OnNewStep != nil {
			c.hooks.OnNewStep(state, d, step)
		}

		if c.cancelled(ctx, r) {
			results = []entity.ActionResult{entity.ErrorResult(cancelledAfterDecision)}
			outcome = stepCancelled
			return nil
		}

		results, err = c.executeBatch(ctx, r, intents, state)
		return err
	}()

	if err != nil {
		if errors.Is(err, actions.ErrUnexpectedHandlerResult) {
			results = append(results, entity.ErrorResult(err.Error()))
			record()
			return stepContinue, err
		}
		if classify(err) == classCancelled {
			results = append(results, entity.ErrorResult(cancelledAfterDecision))
			record()
			return stepCancelled, nil
		}
		results = append(results, c.handleError(ctx, r, logger, err))
		record()
		return stepContinue, nil
	}

	r.control.ConsecutiveFailures = 0
	r.control.NetworkFailureCount = 0
	record()

	if last := results[len(results)-1]; last.IsDone {
		logger.Info("task done", "success", last.Success)
		outcome = stepDone
	}
	return outcome, nil
}

// handleError updates the failure counters and turns err into a recorded result.
func (c *Controller) handleError(ctx context.Context, r *run, logger output.LoggerPort, err error) entity.ActionResult {
	msg := err.Error()
	if len([]rune(msg)) > maxErrorLength {
		rs := []rune(msg)
		msg = string(rs[len(rs)-maxErrorLength:])
	}

	switch classify(err) {
	case classContextOverflow:
		budget := r.messages.ShrinkBudget()
		logger.Warn("context length exceeded, shrinking input budget", "max_input_tokens", budget)
	case classParse:
		r.messages.AddNote(ParseGuidance)
		msg += "\n" + ParseGuidance
		logger.Warn("could not parse decision", "error", err)
	case classRateLimit:
		logger.Warn("rate limited, waiting", "delay", c.settings.RetryDelay)
		if sleepErr := c.sleep(ctx, c.settings.RetryDelay); sleepErr != nil {
			logger.Debug("retry delay interrupted", "error", sleepErr)
		}
	default:
		logger.Error("step failed", "error", err)
	}
	r.control.ConsecutiveFailures++

	if isNetwork(err) {
		r.control.NetworkFailureCount++
		logger.Warn("network failure", "count", r.control.NetworkFailureCount, "max", c.settings.MaxNetworkFailures)
	} else {
		r.control.NetworkFailureCount = 0
	}
	return entity.ErrorResult(msg)
}

// executeBatch runs intents in order against the selector map of planned. Before
// each indexed action after the first the page is re-captured; if new interactive
// elements appeared the rest of the batch is dropped.
func (c *Controller) executeBatch(ctx context.Context, r *run, intents []entity.ActionIntent, planned *entity.PageState) ([]entity.ActionResult, error) {
	if len(intents) == 0 {
		return []entity.ActionResult{{Success: true}}, nil
	}

	results := make([]entity.ActionResult, 0, len(intents))
	for i, intent := range intents {
		if _, indexed := actions.IntentTargetIndex(intent); i > 0 && indexed && planned != nil {
			fresh, err := c.deps.Capturer.Capture(ctx, -1)
			if err != nil {
				return results, err
			}
			if addressing.IsStale(fresh.SelectorMap, planned.SelectorMap) {
				added := addressing.NewElements(fresh.SelectorMap.PathHashes(), planned.SelectorMap.PathHashes())
				msg := fmt.Sprintf("Something new appeared after action %d / %d", i, len(intents))
				r.logger.Info("page changed, aborting batch", "executed", i, "planned", len(intents), "new_elements", len(added))
				results = append(results, entity.ActionResult{Error: msg, IncludeInMemory: true})
				break
			}
		}

		res, err := c.deps.Executor.Execute(ctx, intent, planned)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		r.logger.Debug("action executed", "action", intent.Name, "success", res.Success, "error", res.Error)

		if res.IsDone || res.Error != "" || i == len(intents)-1 {
			break
		}
		if c.settings.WaitBetweenActions > 0 {
			if err := c.sleep(ctx, c.settings.WaitBetweenActions); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

// cancelled evaluates the cooperative stop signals.
func (c *Controller) cancelled(ctx context.Context, r *run) bool {
	switch {
	case c.stopRequested.Load():
		r.control.Stopped = true
	case c.pauseRequested.Load():
		r.control.Paused = true
	case c.hooks.ShouldStop != nil && c.hooks.ShouldStop():
		r.control.Stopped = true
	case ctx.Err() != nil:
		r.control.Stopped = true
	}
	return r.control.Stopped || r.control.Paused
}

// forceDone keeps only the first proposed done action, or synthesizes a failed one.
func forceDone(intents []entity.ActionIntent) []entity.ActionIntent {
	for _, in := range intents {
		if in.Name == actions.NameDone {
			return []entity.ActionIntent{in}
		}
	}
	return []entity.ActionIntent{{
		Name:   actions.NameDone,
		Params: map[string]any{"text": "Task not completed within the step budget", "success": false},
	}}
}

func needsState(intents []entity.ActionIntent) bool {
	for _, in := range intents {
		if _, ok := actions.IntentTargetIndex(in); ok {
			return true
		}
	}
	return false
}

// interactedElements aligns with intents: entry i is the element action i targets.
func interactedElements(intents []entity.ActionIntent, m entity.SelectorMap) []*entity.ElementSnapshot {
	if len(intents) == 0 {
		return nil
	}
	out := make([]*entity.ElementSnapshot, len(intents))
	found := false
	for i, in := range intents {
		idx, ok := actions.IntentTargetIndex(in)
		if !ok {
			continue
		}
		if desc, ok := m[idx]; ok && desc != nil {
			snap := desc.Snapshot()
			out[i] = &snap
			found = true
		}
	}
	if !found {
		return nil
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
