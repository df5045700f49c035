package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

const pollInterval = 250 * time.Millisecond

// tab is one chromedp target. Per-call contexts only cancel; actions always run on the tab's own context.
type tab struct {
	ctx context.Context
}

func (t tab) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	rctx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(rctx, actions...)
}

func (t tab) evalBool(ctx context.Context, js string) (bool, error) {
	var ok bool
	err := t.run(ctx, 10*time.Second, chromedp.Evaluate(js, &ok))
	return ok, err
}

// poll evaluates js until it yields true or timeout passes. Evaluation errors during
// page transitions are retried; only ctx cancellation is returned as an error.
func (t tab) poll(ctx context.Context, timeout time.Duration, js string) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		if ok, err := t.evalBool(ctx, js); err == nil && ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (t tab) navigate(ctx context.Context, timeout time.Duration, url string) error {
	return t.run(ctx, timeout, chromedp.Navigate(url))
}
