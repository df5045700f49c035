package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Page is the claim-site tab.
type Page struct {
	tab
	navTimeout time.Duration
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.navigate(ctx, p.navTimeout, url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *Page) ClickFirstByText(ctx context.Context, substrings []string, tags ...string) (bool, error) {
	return p.evalBool(ctx, clickByTextJS(substrings, tags))
}

type fetchResult struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
	Error  string `json:"error"`
}

// FetchJSON runs fetch() inside the page so the site's session cookies are sent.
func (p *Page) FetchJSON(ctx context.Context, url string) (int, []byte, error) {
	var res fetchResult
	err := p.run(ctx, p.navTimeout, chromedp.Evaluate(fetchJSONJS(url), &res,
		func(ep *runtime.EvaluateParams) *runtime.EvaluateParams { return ep.WithAwaitPromise(true) }))
	if err != nil {
		return 0, nil, err
	}
	if res.Error != "" {
		return 0, nil, errors.New(res.Error)
	}
	return res.Status, []byte(res.Body), nil
}
