package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JumajiCa/ChatDVC/internal/logger"
)

// Authenticator drives one browser through the portal's login pages. It
// holds no per-user state; the Manager owns the handles.
type Authenticator struct {
	pages   Pages
	timings Timings
	store   CookieStore
}

func NewAuthenticator(pages Pages, timings Timings, store CookieStore) *Authenticator {
	return &Authenticator{pages: pages, timings: timings, store: store}
}

// CheckLive reports whether an already running browser is still logged in.
func (a *Authenticator) CheckLive(ctx context.Context, b Browser) (bool, error) {
	if err := b.Navigate(ctx, a.pages.Landing); err != nil {
		return false, err
	}
	if err := sleep(ctx, a.timings.CookieSettle); err != nil {
		return false, err
	}
	return a.pastLogin(ctx, b)
}

// Restore injects the user's persisted cookies into a fresh browser and
// reports whether that was enough to get past the login prompt.
func (a *Authenticator) Restore(ctx context.Context, userID string, b Browser) (bool, error) {
	if err := b.Navigate(ctx, a.pages.Landing); err != nil {
		return false, err
	}

	cookies, ok := a.store.Load(ctx, userID)
	if !ok {
		return false, nil
	}
	if err := b.SetCookies(ctx, cookies); err != nil {
		return false, err
	}
	if err := b.Navigate(ctx, a.pages.Landing); err != nil {
		return false, err
	}
	if err := sleep(ctx, a.timings.CookieSettle); err != nil {
		return false, err
	}
	return a.pastLogin(ctx, b)
}

// SubmitCredentials fills the login form. Cookies are persisted only when
// no one-time code is requested.
func (a *Authenticator) SubmitCredentials(ctx context.Context, userID string, b Browser, username, password string) (LoginStatus, error) {
	title, err := b.Title(ctx)
	if err != nil || !strings.Contains(title, loginPromptTitle) {
		if err := b.Navigate(ctx, a.pages.Landing); err != nil {
			return "", err
		}
	}

	userField, err := b.WaitFor(ctx, selUsername, a.timings.LoginFormWait)
	if err != nil {
		return "", err
	}
	if err := userField.Input(ctx, username); err != nil {
		return "", fmt.Errorf("type username: %w", err)
	}

	passField, err := b.Find(ctx, selPassword)
	if err != nil {
		return "", err
	}
	if err := passField.Input(ctx, password); err != nil {
		return "", fmt.Errorf("type password: %w", err)
	}

	button, err := b.Find(ctx, selLoginButton)
	if err != nil {
		return "", err
	}
	if err := button.Click(ctx); err != nil {
		return "", fmt.Errorf("click login: %w", err)
	}

	if err := sleep(ctx, a.timings.LoginSettle); err != nil {
		return "", err
	}

	source, err := b.Source(ctx)
	if err != nil {
		return "", err
	}
	if otpRequested(source) {
		return TwoFactorRequired, nil
	}

	a.persist(ctx, userID, b)
	return LoggedIn, nil
}

// SubmitCode enters a one-time code on the pending OTP form. A code the
// portal rejects yields a non-OK result and leaves the form in place.
func (a *Authenticator) SubmitCode(ctx context.Context, userID string, b Browser, code string) (CodeResult, error) {
	input, err := b.Find(ctx, selOTPInput)
	if err != nil {
		return CodeResult{}, err
	}
	if err := input.Input(ctx, code); err != nil {
		return CodeResult{}, fmt.Errorf("type code: %w", err)
	}

	button, err := b.Find(ctx, selOTPButton)
	if err != nil {
		return CodeResult{}, err
	}
	if err := button.Click(ctx); err != nil {
		return CodeResult{}, fmt.Errorf("click verify: %w", err)
	}

	if err := sleep(ctx, a.timings.OTPSettle); err != nil {
		return CodeResult{}, err
	}

	ok, err := a.pastLogin(ctx, b)
	if err != nil {
		return CodeResult{}, err
	}
	if !ok {
		return CodeResult{OK: false, Message: msgInvalidCode}, nil
	}

	a.persist(ctx, userID, b)
	return CodeResult{OK: true, Message: msgSuccess}, nil
}

func (a *Authenticator) pastLogin(ctx context.Context, b Browser) (bool, error) {
	title, err := b.Title(ctx)
	if err != nil {
		return false, err
	}
	return !strings.Contains(title, loginPromptTitle), nil
}

// persist failures leave the live session usable, so they are only logged.
func (a *Authenticator) persist(ctx context.Context, userID string, b Browser) {
	log := logger.WithUser(userID)

	cookies, err := b.Cookies(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to read portal cookies")
		return
	}
	if err := a.store.Save(ctx, userID, cookies); err != nil {
		log.WithError(err).Warn("failed to persist portal cookies")
		return
	}
	log.WithField("count", len(cookies)).Debug("portal cookies persisted")
}

func otpRequested(source string) bool {
	return strings.Contains(source, otpMarker) || strings.Contains(source, otpTitleMarker)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
