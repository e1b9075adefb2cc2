package portal

import "errors"

var (
	// ErrAuthentication wraps every failure of the credential step.
	ErrAuthentication = errors.New("portal authentication failed")

	// ErrTimeout is returned when a bounded wait for a page element expires.
	ErrTimeout = errors.New("timed out waiting for portal element")

	// ErrElementNotFound is returned when an expected control is absent.
	ErrElementNotFound = errors.New("portal element not found")

	// ErrNoActiveSession is returned by FetchData when the user has no live browser.
	ErrNoActiveSession = errors.New("no active portal session")

	// ErrManagerClosed is returned after Shutdown.
	ErrManagerClosed = errors.New("portal manager is shut down")
)
