package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JumajiCa/ChatDVC/internal/logger"
	"github.com/JumajiCa/ChatDVC/internal/models"
)

type userSession struct {
	mu       sync.Mutex
	userID   string
	browser  Browser
	state    State
	lastUsed time.Time
}

// Manager owns every live browser, at most one per user id. Operations on
// the same user are serialized; different users run in parallel.
type Manager struct {
	launcher Launcher
	auth     *Authenticator
	extract  *Extractor
	events   EventPublisher
	now      func() time.Time
	pageLoad time.Duration

	mu       sync.Mutex
	sessions map[string]*userSession
	closed   bool
}

type ManagerConfig struct {
	Launcher Launcher
	Store    CookieStore
	Pages    Pages
	Timings  Timings
	Term     string
	Events   EventPublisher // optional
}

func NewManager(cfg ManagerConfig) *Manager {
	events := cfg.Events
	if events == nil {
		events = nopPublisher{}
	}
	return &Manager{
		launcher: cfg.Launcher,
		auth:     NewAuthenticator(cfg.Pages, cfg.Timings, cfg.Store),
		extract:  NewExtractor(cfg.Pages, cfg.Timings, cfg.Term),
		events:   events,
		now:      time.Now,
		pageLoad: cfg.Timings.PageLoad,
		sessions: make(map[string]*userSession),
	}
}

// session returns the user's entry, creating it on first use. Entries are
// never removed before Shutdown so every caller locks the same one.
func (m *Manager) session(userID string) (*userSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	s, ok := m.sessions[userID]
	if !ok {
		s = &userSession{userID: userID, state: StateUnknown}
		m.sessions[userID] = s
	}
	return s, nil
}

// LoginStep1 reuses a live browser, then persisted cookies, and only then
// submits credentials.
func (m *Manager) LoginStep1(ctx context.Context, userID, username, password string) (LoginStatus, error) {
	s, err := m.session(userID)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.isClosed() {
		return "", ErrManagerClosed
	}
	s.lastUsed = m.now()

	log := logger.WithUser(userID)

	if s.browser != nil {
		m.setState(ctx, s, StateCheckingExistingSession, "")
		ok, err := m.auth.CheckLive(ctx, s.browser)
		switch {
		case err != nil:
			log.WithError(err).Info("live portal session unusable, discarding")
			m.discard(s)
		case ok:
			m.setState(ctx, s, StateAuthenticated, "")
			return LoggedIn, nil
		}
	}

	if s.browser == nil {
		b, err := m.launcher.Launch(ctx)
		if err != nil {
			m.setState(ctx, s, StateFailed, "browser launch failed")
			return "", fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		b = withPageTimeout(b, m.pageLoad)
		s.browser = b
		log.Debug("portal browser launched")

		m.setState(ctx, s, StateCheckingExistingSession, "")
		ok, err := m.auth.Restore(ctx, userID, b)
		if err != nil {
			log.WithError(err).Info("cookie restore failed, falling back to credentials")
		} else if ok {
			m.setState(ctx, s, StateAuthenticated, "")
			return LoggedIn, nil
		}
	}

	m.setState(ctx, s, StateNeedsLogin, "")
	status, err := m.auth.SubmitCredentials(ctx, userID, s.browser, username, password)
	if err != nil {
		m.discard(s)
		m.setState(ctx, s, StateFailed, "login failed")
		log.WithError(err).Warn("portal login failed")
		return "", fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	if status == TwoFactorRequired {
		m.setState(ctx, s, StateAwaitingOTP, "")
	} else {
		m.setState(ctx, s, StateAuthenticated, "")
	}
	return status, nil
}

// SubmitCode never returns an error: a missing session, a rejected code and
// a driver failure are all reported in the result. The browser survives.
func (m *Manager) SubmitCode(ctx context.Context, userID, code string) CodeResult {
	s, err := m.session(userID)
	if err != nil {
		return CodeResult{OK: false, Message: msgSessionTimeout}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return CodeResult{OK: false, Message: msgSessionTimeout}
	}
	s.lastUsed = m.now()

	result, err := m.auth.SubmitCode(ctx, userID, s.browser, code)
	if err != nil {
		logger.WithUser(userID).WithError(err).Warn("one-time code submission failed")
		return CodeResult{OK: false, Message: summarize(err)}
	}

	if result.OK {
		m.setState(ctx, s, StateAuthenticated, "")
	} else {
		m.setState(ctx, s, StateAwaitingOTP, result.Message)
	}
	return result
}

// FetchData scrapes both reports through the user's live browser.
func (m *Manager) FetchData(ctx context.Context, userID string) (*PortalData, error) {
	s, err := m.session(userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil, ErrNoActiveSession
	}
	s.lastUsed = m.now()

	return m.extract.Fetch(ctx, userID, s.browser), nil
}

// State reports the user's session state and whether a browser is live.
func (m *Manager) State(userID string) (State, bool) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return StateUnknown, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.browser != nil
}

// Close tears down the user's browser, if any. Persisted cookies are kept.
func (m *Manager) Close(ctx context.Context, userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		return
	}
	m.discard(s)
	m.setState(ctx, s, StateUnknown, "closed")
}

// CloseIdle closes browsers unused for longer than maxIdle and returns how
// many were closed. Sessions busy with an operation are skipped.
func (m *Manager) CloseIdle(ctx context.Context, maxIdle time.Duration) int {
	m.mu.Lock()
	candidates := make([]*userSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	closed := 0
	for _, s := range candidates {
		if !s.mu.TryLock() {
			continue
		}
		if s.browser != nil && s.lastUsed.Before(cutoff) {
			m.discard(s)
			m.setState(ctx, s, StateUnknown, "idle timeout")
			closed++
		}
		s.mu.Unlock()
	}
	return closed
}

// Shutdown closes every browser. Later calls on the manager fail with
// ErrManagerClosed.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*userSession)
	m.mu.Unlock()

	for _, s := range sessions {
		s.mu.Lock()
		m.discard(s)
		s.mu.Unlock()
	}
	logger.Logger.WithField("sessions", len(sessions)).Info("portal sessions shut down")
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) discard(s *userSession) {
	if s.browser == nil {
		return
	}
	s.browser.Close()
	s.browser = nil
}

func (m *Manager) setState(ctx context.Context, s *userSession, state State, detail string) {
	if s.state == state {
		return
	}
	logger.WithUser(s.userID).WithFields(logrus.Fields{
		"from": s.state,
		"to":   state,
	}).Debug("portal session state change")

	s.state = state
	m.events.Publish(context.WithoutCancel(ctx), models.SessionEvent{
		UserID: s.userID,
		State:  string(state),
		Detail: detail,
	})
}

// summarize trims a driver error down to something safe to show a user.
func summarize(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "The portal took too long to respond"
	case errors.Is(err, ErrElementNotFound):
		return "The verification form is no longer available"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled"
	default:
		return "Could not submit the verification code"
	}
}
