package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JumajiCa/ChatDVC/internal/models"
)

// boundedBrowser caps every browser call at limit so a portal page that
// never finishes loading cannot hold the user's session lock forever.
// WaitFor keeps its own timeout.
type boundedBrowser struct {
	Browser
	limit time.Duration
}

// withPageTimeout wraps b; a non-positive limit leaves b unbounded.
func withPageTimeout(b Browser, limit time.Duration) Browser {
	if limit <= 0 {
		return b
	}
	return &boundedBrowser{Browser: b, limit: limit}
}

// bound runs fn under limit and reports an expired limit as ErrTimeout.
// Cancellation of the caller's own context is passed through unchanged.
func bound(ctx context.Context, limit time.Duration, op string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, op, limit)
	}
	return err
}

func (b *boundedBrowser) Navigate(ctx context.Context, url string) error {
	return bound(ctx, b.limit, "navigate "+url, func(ctx context.Context) error {
		return b.Browser.Navigate(ctx, url)
	})
}

func (b *boundedBrowser) Find(ctx context.Context, selector string) (Element, error) {
	var el Element
	err := bound(ctx, b.limit, "find "+selector, func(ctx context.Context) error {
		var err error
		el, err = b.Browser.Find(ctx, selector)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &boundedElement{Element: el, limit: b.limit, selector: selector}, nil
}

func (b *boundedBrowser) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	el, err := b.Browser.WaitFor(ctx, selector, timeout)
	if err != nil {
		return nil, err
	}
	return &boundedElement{Element: el, limit: b.limit, selector: selector}, nil
}

func (b *boundedBrowser) Title(ctx context.Context) (string, error) {
	var title string
	err := bound(ctx, b.limit, "read title", func(ctx context.Context) error {
		var err error
		title, err = b.Browser.Title(ctx)
		return err
	})
	return title, err
}

func (b *boundedBrowser) Source(ctx context.Context) (string, error) {
	var source string
	err := bound(ctx, b.limit, "read source", func(ctx context.Context) error {
		var err error
		source, err = b.Browser.Source(ctx)
		return err
	})
	return source, err
}

func (b *boundedBrowser) Cookies(ctx context.Context) ([]models.PortalCookie, error) {
	var cookies []models.PortalCookie
	err := bound(ctx, b.limit, "read cookies", func(ctx context.Context) error {
		var err error
		cookies, err = b.Browser.Cookies(ctx)
		return err
	})
	return cookies, err
}

func (b *boundedBrowser) SetCookies(ctx context.Context, cookies []models.PortalCookie) error {
	return bound(ctx, b.limit, "set cookies", func(ctx context.Context) error {
		return b.Browser.SetCookies(ctx, cookies)
	})
}

type boundedElement struct {
	Element
	limit    time.Duration
	selector string
}

func (e *boundedElement) Input(ctx context.Context, text string) error {
	return bound(ctx, e.limit, "type into "+e.selector, func(ctx context.Context) error {
		return e.Element.Input(ctx, text)
	})
}

func (e *boundedElement) Click(ctx context.Context) error {
	return bound(ctx, e.limit, "click "+e.selector, func(ctx context.Context) error {
		return e.Element.Click(ctx)
	})
}

func (e *boundedElement) SelectText(ctx context.Context, text string) error {
	return bound(ctx, e.limit, "select "+text+" in "+e.selector, func(ctx context.Context) error {
		return e.Element.SelectText(ctx, text)
	})
}

func (e *boundedElement) Text(ctx context.Context) (string, error) {
	var text string
	err := bound(ctx, e.limit, "read "+e.selector, func(ctx context.Context) error {
		var err error
		text, err = e.Element.Text(ctx)
		return err
	})
	return text, err
}
