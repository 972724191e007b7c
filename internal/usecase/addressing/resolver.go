package addressing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
)

const DefaultResolveTimeout = 30 * time.Second

// Resolver turns a captured descriptor into a live element handle. Selectors are
// synthesized fresh on every call; frame contexts from earlier resolutions are never reused.
type Resolver struct {
	timeout        time.Duration
	includeDynamic bool
	logger         output.LoggerPort
}

func NewResolver(timeout time.Duration, includeDynamic bool, logger output.LoggerPort) *Resolver {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return &Resolver{timeout: timeout, includeDynamic: includeDynamic, logger: logger}
}

// Resolve locates desc starting from root. Misses are reported with
// entity.ErrElementNotFound; an accessibility-ref descriptor on a page that cannot
// resolve refs yields entity.ErrUnsupportedCapability.
func (r *Resolver) Resolve(ctx context.Context, root output.FramePort, desc *entity.ElementDescriptor) (output.ElementPort, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil descriptor", entity.ErrElementNotFound)
	}
	if ref, ok := desc.Attributes["ref"]; ok && desc.XPath == "" {
		return r.resolveRef(ctx, root, ref)
	}

	frame := root
	for _, host := range iframeAncestors(desc) {
		next, err := r.enterFrame(ctx, frame, host)
		if err != nil {
			return nil, err
		}
		frame = next
	}

	selector := CSSSelector(desc, r.includeDynamic)
	el, err := frame.Locate(ctx, selector, output.LocateOptions{Timeout: r.timeout, Strict: true})
	if err != nil {
		return nil, wrapMiss(err, selector)
	}

	if err := el.ScrollIntoView(ctx); err != nil {
		r.logger.Debug("scroll into view failed", "selector", selector, "error", err)
	}
	return el, nil
}

// enterFrame locates the iframe host in frame and returns its content document.
// The host handle is released before returning.
func (r *Resolver) enterFrame(ctx context.Context, frame output.FramePort, host *entity.ElementDescriptor) (output.FramePort, error) {
	selector := CSSSelector(host, r.includeDynamic)
	el, err := frame.Locate(ctx, selector, output.LocateOptions{Timeout: r.timeout})
	if err != nil {
		return nil, fmt.Errorf("iframe host: %w", wrapMiss(err, selector))
	}

	content, err := el.ContentFrame(ctx)
	if err == nil && content != nil {
		// the content document is looked up through its host until first use
		err = content.Evaluate(ctx, "() => 1", nil)
	}
	if disposeErr := el.Dispose(); disposeErr != nil {
		r.logger.Debug("dispose iframe handle", "selector", selector, "error", disposeErr)
	}
	if err != nil {
		return nil, fmt.Errorf("iframe %s has no content frame: %w", selector, wrapMiss(err, selector))
	}
	if content == nil {
		return nil, fmt.Errorf("%w: iframe %s has no content frame", entity.ErrElementNotFound, selector)
	}
	return content, nil
}

func (r *Resolver) resolveRef(ctx context.Context, root output.FramePort, ref string) (output.ElementPort, error) {
	rr, ok := root.(output.RefResolver)
	if !ok {
		return nil, fmt.Errorf("%w: page cannot resolve snapshot ref %s", entity.ErrUnsupportedCapability, ref)
	}
	el, err := rr.ResolveRef(ctx, ref)
	if err != nil {
		return nil, wrapMiss(err, "ref="+ref)
	}
	if err := el.ScrollIntoView(ctx); err != nil {
		r.logger.Debug("scroll into view failed", "ref", ref, "error", err)
	}
	return el, nil
}

// iframeAncestors returns the iframe hosts of desc, outermost first.
func iframeAncestors(desc *entity.ElementDescriptor) []*entity.ElementDescriptor {
	var out []*entity.ElementDescriptor
	for _, a := range desc.Ancestors() {
		if strings.EqualFold(a.Tag, "iframe") {
			out = append(out, a)
		}
	}
	return out
}

// wrapMiss keeps ambiguity and cancellation visible and folds everything else
// into a resolution miss.
func wrapMiss(err error, selector string) error {
	switch {
	case errors.Is(err, entity.ErrElementNotFound),
		errors.Is(err, entity.ErrAmbiguousElement),
		errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %s: %v", entity.ErrElementNotFound, selector, err)
	}
}
