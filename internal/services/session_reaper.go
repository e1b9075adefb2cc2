package services

import (
	"context"
	"time"

	"github.com/JumajiCa/ChatDVC/internal/logger"
)

const reaperMinPollInterval = 30 * time.Second

type idleCloser interface {
	CloseIdle(ctx context.Context, maxIdle time.Duration) int
}

// SessionReaper periodically closes portal browsers nobody has used for
// maxIdle. A zero maxIdle disables it.
type SessionReaper struct {
	sessions idleCloser
	maxIdle  time.Duration
	stopChan chan struct{}
}

func NewSessionReaper(sessions idleCloser, maxIdle time.Duration) *SessionReaper {
	return &SessionReaper{
		sessions: sessions,
		maxIdle:  maxIdle,
		stopChan: make(chan struct{}),
	}
}

func (s *SessionReaper) Start() bool {
	if s.sessions == nil || s.maxIdle <= 0 {
		return false
	}

	go s.loop(pollInterval(s.maxIdle))
	return true
}

func (s *SessionReaper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *SessionReaper) loop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.reap(context.Background())
		}
	}
}

func (s *SessionReaper) reap(ctx context.Context) int {
	n := s.sessions.CloseIdle(ctx, s.maxIdle)
	if n > 0 {
		logger.Logger.WithField("closed", n).Info("idle portal sessions closed")
	}
	return n
}

// pollInterval checks a few times per idle window, but not too often.
func pollInterval(maxIdle time.Duration) time.Duration {
	interval := maxIdle / 4
	if interval < reaperMinPollInterval {
		return reaperMinPollInterval
	}
	return interval
}
