package portal

import (
	"context"
	"time"

	"github.com/JumajiCa/ChatDVC/internal/models"
)

// Browser is one live, stateful browser process bound to a single user.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	// Find returns ErrElementNotFound when nothing matches selector.
	Find(ctx context.Context, selector string) (Element, error)
	// WaitFor polls for selector up to timeout and returns ErrTimeout when it never shows.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	Title(ctx context.Context) (string, error)
	Source(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]models.PortalCookie, error)
	SetCookies(ctx context.Context, cookies []models.PortalCookie) error
	// Close is idempotent and never fails; teardown problems are logged.
	Close()
}

type Element interface {
	Input(ctx context.Context, text string) error
	Click(ctx context.Context) error
	// SelectText picks the option whose visible text equals text.
	SelectText(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
}

// Launcher starts browser processes.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}
