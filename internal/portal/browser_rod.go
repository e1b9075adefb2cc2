package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/JumajiCa/ChatDVC/internal/logger"
	"github.com/JumajiCa/ChatDVC/internal/models"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080
)

// RodLauncher starts a local Chromium through go-rod.
type RodLauncher struct {
	Headless bool
	Bin      string // empty lets rod locate or download a browser
}

// Launch ignores ctx past the initial check: the browser outlives the
// request that started it.
func (l *RodLauncher) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lch := launcher.New().
		Headless(l.Headless).
		NoSandbox(true).
		Set("window-size", fmt.Sprintf("%d,%d", viewportWidth, viewportHeight)).
		Set("disable-gpu")
	if l.Bin != "" {
		lch = lch.Bin(l.Bin)
	}

	controlURL, err := lch.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		lch.Kill()
		lch.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		lch.Kill()
		lch.Cleanup()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		logger.Logger.WithError(err).Warn("failed to set browser viewport")
	}

	return &rodBrowser{launcher: lch, browser: browser, page: page}, nil
}

type rodBrowser struct {
	launcher  *launcher.Launcher
	browser   *rod.Browser
	page      *rod.Page
	closeOnce sync.Once
}

func (b *rodBrowser) Navigate(ctx context.Context, url string) error {
	p := b.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait for %s to load: %w", url, err)
	}
	return nil
}

func (b *rodBrowser) Find(ctx context.Context, selector string) (Element, error) {
	has, el, err := b.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", selector, err)
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return &rodElement{el: el}, nil
}

func (b *rodBrowser) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	p := b.page.Context(ctx).Timeout(timeout)
	el, err := p.Element(selector)
	p.CancelTimeout()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, selector, timeout)
		}
		return nil, fmt.Errorf("wait for %s: %w", selector, err)
	}
	return &rodElement{el: el}, nil
}

func (b *rodBrowser) Title(ctx context.Context) (string, error) {
	info, err := b.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("read page title: %w", err)
	}
	return info.Title, nil
}

func (b *rodBrowser) Source(ctx context.Context) (string, error) {
	html, err := b.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read page source: %w", err)
	}
	return html, nil
}

func (b *rodBrowser) Cookies(ctx context.Context) ([]models.PortalCookie, error) {
	raw, err := b.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	cookies := make([]models.PortalCookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, models.PortalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		})
	}
	return cookies, nil
}

func (b *rodBrowser) SetCookies(ctx context.Context, cookies []models.PortalCookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			p.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		if c.SameSite != "" {
			p.SameSite = proto.NetworkCookieSameSite(c.SameSite)
		}
		params = append(params, p)
	}
	if err := b.page.Context(ctx).SetCookies(params); err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	return nil
}

func (b *rodBrowser) Close() {
	b.closeOnce.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Logger.WithField("panic", r).Warn("browser teardown panicked")
			}
		}()
		if err := b.browser.Close(); err != nil {
			logger.Logger.WithError(err).Warn("browser close failed")
		}
		b.launcher.Kill()
		b.launcher.Cleanup()
	})
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Input(ctx context.Context, text string) error {
	return e.el.Context(ctx).Input(text)
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) SelectText(ctx context.Context, text string) error {
	return e.el.Context(ctx).Select([]string{text}, true, rod.SelectorTypeText)
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}
