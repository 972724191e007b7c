package rod

import (
	"context"
	"fmt"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

var (
	_ output.FramePort   = (*frameAdapter)(nil)
	_ output.ElementPort = (*elementAdapter)(nil)
)

// frameAdapter is one document context. For iframes rod represents the content
// document as a *rod.Page as well.
type frameAdapter struct {
	page *rod.Page
}

func (f *frameAdapter) Locate(ctx context.Context, selector string, opts output.LocateOptions) (output.ElementPort, error) {
	p := f.page.Context(ctx)
	if opts.Timeout > 0 {
		p = p.Timeout(opts.Timeout)
		defer p.CancelTimeout()
	}

	el, err := p.Element(selector)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrElementNotFound, selector, err)
	}

	if opts.Strict {
		all, err := f.page.Context(ctx).Elements(selector)
		releaseAll(all...)
		if err == nil && len(all) > 1 {
			releaseAll(el)
			return nil, fmt.Errorf("%w: %s matched %d elements", entity.ErrAmbiguousElement, selector, len(all))
		}
	}
	// detach from the lookup timeout
	return &elementAdapter{el: el.Context(ctx)}, nil
}

func (f *frameAdapter) Evaluate(ctx context.Context, js string, out any, args ...any) error {
	return evaluate(ctx, f.page, js, out, args...)
}

func evaluate(ctx context.Context, page *rod.Page, js string, out any, args ...any) error {
	res, err := page.Context(ctx).Evaluate(rod.Eval(js, args...).ByPromise())
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := res.Value.Unmarshal(out); err != nil {
		return fmt.Errorf("decode evaluation result: %w", err)
	}
	return nil
}

var releaseElement = (*rod.Element).Release

func releaseAll(els ...*rod.Element) {
	for _, el := range els {
		_ = releaseElement(el)
	}
}

type elementAdapter struct {
	el *rod.Element
}

func (e *elementAdapter) ContentFrame(ctx context.Context) (output.FramePort, error) {
	frame, err := e.el.Context(ctx).Frame()
	if err != nil {
		return nil, fmt.Errorf("%w: no content frame: %v", entity.ErrElementNotFound, err)
	}
	// rod resolves the frame's execution context through the host element on
	// first evaluation; do it now so releasing the host is safe.
	if _, err := frame.Context(ctx).Evaluate(rod.Eval(`() => 1`)); err != nil {
		return nil, fmt.Errorf("%w: enter content frame: %v", entity.ErrElementNotFound, err)
	}
	return &frameAdapter{page: frame}, nil
}

func (e *elementAdapter) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

func (e *elementAdapter) Click(ctx context.Context) error {
	err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
	if err == nil || ctx.Err() != nil {
		return err
	}
	// covered or zero-size elements still take a dispatched click
	if _, jsErr := e.el.Context(ctx).Eval(`() => this.click()`); jsErr == nil {
		return nil
	}
	return fmt.Errorf("click: %w", err)
}

func (e *elementAdapter) Fill(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	return nil
}

func (e *elementAdapter) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *elementAdapter) Dispose() error {
	return releaseElement(e.el)
}
