package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
	"webpilot/internal/usecase/addressing"
	"webpilot/internal/usecase/policy"
)

// ErrUnexpectedHandlerResult is returned when a handler produces something other
// than a string, an ActionResult or nil. It is a programming error and is not
// recorded as an ordinary failed action.
var ErrUnexpectedHandlerResult = errors.New("action handler returned unsupported result type")

const (
	defaultScroll = 600
	loadTimeout   = 5 * time.Second
	maxWait       = 60 * time.Second
	maxExtract    = 20000
)

// Executor runs one action against the active page.
type Executor struct {
	page     output.PagePort
	resolver *addressing.Resolver
	registry output.ActionRegistry
	allow    *policy.AllowList
	logger   output.LoggerPort

	sleep func(ctx context.Context, d time.Duration) error
}

func NewExecutor(page output.PagePort, resolver *addressing.Resolver, registry output.ActionRegistry, allow *policy.AllowList, logger output.LoggerPort) *Executor {
	return &Executor{
		page:     page,
		resolver: resolver,
		registry: registry,
		allow:    allow,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Execute runs intent. Elements are looked up in state, the selector map the step
// was planned on. Handler failures and panics come back as failed results; the
// error return is reserved for ErrUnexpectedHandlerResult and cancellation.
func (e *Executor) Execute(ctx context.Context, intent entity.ActionIntent, state *entity.PageState) (result entity.ActionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("action panicked", "action", intent.Name, "panic", r)
			result, err = entity.ErrorResult(fmt.Sprintf("%s: %v", intent.Name, r)), nil
		}
	}()

	action, err := ParseIntent(intent)
	if err != nil {
		return entity.ErrorResult(fmt.Sprintf("invalid %s action: %v", intent.Name, err)), nil
	}

	e.logger.Debug("executing action", "action", action.Name(), "params", intent.Params)

	var out any
	switch a := action.(type) {
	case Custom:
		out, err = e.runCustom(ctx, a, state)
	default:
		out, err = e.runBuiltin(ctx, a, state)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return entity.ActionResult{}, err
		}
		return entity.ErrorResult(err.Error()), nil
	}
	return normalize(out)
}

func normalize(out any) (entity.ActionResult, error) {
	switch r := out.(type) {
	case nil:
		return entity.ActionResult{Success: true}, nil
	case string:
		return entity.ActionResult{Success: true, ExtractedContent: r, IncludeInMemory: true}, nil
	case entity.ActionResult:
		return r, nil
	case *entity.ActionResult:
		if r == nil {
			return entity.ActionResult{Success: true}, nil
		}
		return *r, nil
	default:
		return entity.ActionResult{}, fmt.Errorf("%w: %T", ErrUnexpectedHandlerResult, out)
	}
}

func (e *Executor) runCustom(ctx context.Context, a Custom, state *entity.PageState) (any, error) {
	if e.registry == nil {
		return nil, fmt.Errorf("unknown action %q", a.ActionName)
	}
	handler, ok := e.registry.Get(a.ActionName)
	if !ok {
		return nil, fmt.Errorf("unknown action %q", a.ActionName)
	}

	actx := output.ActionContext{Page: e.page, State: state}
	if index, ok := TargetIndex(a); ok {
		desc, el, err := e.resolve(ctx, index, state)
		if err != nil {
			return nil, err
		}
		defer el.Dispose()
		actx.Element, actx.Descriptor = el, desc
	}
	return handler.Execute(ctx, a.Params, actx)
}

func (e *Executor) runBuiltin(ctx context.Context, action Action, state *entity.PageState) (any, error) {
	switch a := action.(type) {
	case ClickElement:
		return e.click(ctx, a, state)
	case InputText:
		return e.inputText(ctx, a, state)
	case GoToURL:
		return e.navigate(ctx, a.URL)
	case GoBack:
		if err := e.page.GoBack(ctx); err != nil {
			return nil, fmt.Errorf("go back: %w", err)
		}
		e.waitLoad(ctx)
		return "Navigated back", nil
	case ScrollDown:
		return e.scroll(ctx, a.Amount, 1)
	case ScrollUp:
		return e.scroll(ctx, a.Amount, -1)
	case SendKeys:
		if err := e.page.PressKeys(ctx, a.Keys); err != nil {
			return nil, fmt.Errorf("send keys %q: %w", a.Keys, err)
		}
		return fmt.Sprintf("Sent keys: %s", a.Keys), nil
	case Wait:
		d := time.Duration(a.Seconds) * time.Second
		if d > maxWait {
			d = maxWait
		}
		if err := e.sleep(ctx, d); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Waited for %d seconds", int(d/time.Second)), nil
	case ExtractContent:
		return e.extract(ctx, a)
	case OpenTab:
		if !e.allow.IsAllowed(a.URL) {
			return nil, &entity.DisallowedNavigationError{URL: a.URL}
		}
		if err := e.page.OpenTab(ctx, a.URL); err != nil {
			return nil, fmt.Errorf("open tab: %w", err)
		}
		e.waitLoad(ctx)
		return fmt.Sprintf("Opened new tab with %s", a.URL), nil
	case SwitchTab:
		if err := e.page.SwitchTab(ctx, a.PageID); err != nil {
			return nil, fmt.Errorf("switch tab: %w", err)
		}
		e.waitLoad(ctx)
		return fmt.Sprintf("Switched to tab %d", a.PageID), nil
	case Done:
		return entity.ActionResult{IsDone: true, Success: a.Success, ExtractedContent: a.Text, IncludeInMemory: true}, nil
	default:
		return nil, fmt.Errorf("unhandled action %q", action.Name())
	}
}

func (e *Executor) resolve(ctx context.Context, index int, state *entity.PageState) (*entity.ElementDescriptor, output.ElementPort, error) {
	if state == nil {
		return nil, nil, fmt.Errorf("element with index %d does not exist - retry or use alternative actions", index)
	}
	desc, ok := state.SelectorMap[index]
	if !ok || desc == nil {
		return nil, nil, fmt.Errorf("element with index %d does not exist - retry or use alternative actions", index)
	}
	el, err := e.resolver.Resolve(ctx, e.page, desc)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("element with index %d could not be located: %w", index, err)
	}
	return desc, el, nil
}

func (e *Executor) click(ctx context.Context, a ClickElement, state *entity.PageState) (any, error) {
	desc, el, err := e.resolve(ctx, a.Index, state)
	if err != nil {
		return nil, err
	}
	defer el.Dispose()

	before, _ := e.page.Tabs(ctx)
	if err := el.Click(ctx); err != nil {
		return nil, fmt.Errorf("click element with index %d: %w", a.Index, err)
	}
	msg := fmt.Sprintf("Clicked element with index %d: %s", a.Index, label(desc))

	after, err := e.page.Tabs(ctx)
	if err == nil && len(after) > len(before) {
		newest := after[len(after)-1]
		if err := e.page.SwitchTab(ctx, newest.PageID); err != nil {
			e.logger.Warn("switch to new tab failed", "page_id", newest.PageID, "error", err)
		} else {
			msg += fmt.Sprintf(" - new tab opened, switched to tab %d", newest.PageID)
		}
	}
	e.waitLoad(ctx)
	return msg, nil
}

func (e *Executor) inputText(ctx context.Context, a InputText, state *entity.PageState) (any, error) {
	_, el, err := e.resolve(ctx, a.Index, state)
	if err != nil {
		return nil, err
	}
	defer el.Dispose()

	if err := el.Fill(ctx, a.Text); err != nil {
		return nil, fmt.Errorf("input text into index %d: %w", a.Index, err)
	}
	return fmt.Sprintf("Input %q into index %d", a.Text, a.Index), nil
}

func (e *Executor) navigate(ctx context.Context, url string) (any, error) {
	if !e.allow.IsAllowed(url) {
		return nil, &entity.DisallowedNavigationError{URL: url}
	}
	if err := e.page.Goto(ctx, url); err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", url, err)
	}
	e.waitLoad(ctx)
	return fmt.Sprintf("Navigated to %s", url), nil
}

func (e *Executor) scroll(ctx context.Context, amount, direction int) (any, error) {
	if amount <= 0 {
		var height int
		if err := e.page.Evaluate(ctx, `() => window.innerHeight`, &height); err != nil || height <= 0 {
			height = defaultScroll
		}
		amount = height
	}
	if err := e.page.ScrollBy(ctx, direction*amount); err != nil {
		return nil, fmt.Errorf("scroll: %w", err)
	}
	if direction > 0 {
		return fmt.Sprintf("Scrolled down the page by %d pixels", amount), nil
	}
	return fmt.Sprintf("Scrolled up the page by %d pixels", amount), nil
}

func (e *Executor) extract(ctx context.Context, a ExtractContent) (any, error) {
	content, err := e.page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	if r := []rune(content); len(r) > maxExtract {
		content = string(r[:maxExtract]) + "\n[truncated]"
	}
	if a.Goal == "" {
		return entity.ContentResult("Page content:\n" + content), nil
	}
	return entity.ContentResult(fmt.Sprintf("Page content for goal %q:\n%s", a.Goal, content)), nil
}

// waitLoad is a non-critical wait; expiry is ignored.
func (e *Executor) waitLoad(ctx context.Context) {
	if err := e.page.WaitForLoadState(ctx, loadTimeout); err != nil {
		e.logger.Debug("load state wait ended", "error", err)
	}
}

func label(desc *entity.ElementDescriptor) string {
	text := strings.Join(strings.Fields(desc.Text), " ")
	if text == "" {
		return "<" + desc.Tag + ">"
	}
	if r := []rune(text); len(r) > 60 {
		text = string(r[:60]) + "..."
	}
	return text
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
