package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JumajiCa/ChatDVC/internal/models"
)

const (
	testBaseURL  = "https://portal.test"
	testTerm     = "2026SP"
	testUsername = "student"
	testPassword = "hunter2"
	testCode     = "123456"
	testCookie   = "session-token"
)

var testPages = NewPages(testBaseURL)

// fakePortal is the remote site shared by every fake browser it launches.
type fakePortal struct {
	mu sync.Mutex

	requireOTP        bool
	hideLoginForm     bool
	hideTermDropdown  bool
	failLaunch        bool
	hangNavigate      bool
	registrationsHTML string
	scheduleHTML      string

	launches   int
	closes     int
	logins     int
	otpTries   int
	liveBrowse int
}

func newFakePortal() *fakePortal {
	return &fakePortal{
		registrationsHTML: registrationsPage(testTerm, "Nov 12, 2025"),
		scheduleHTML:      schedulePage(courseRow("MATH-193 Pre-Calculus", "01/20/2026 - 05/22/2026", "MW 9:00AM-10:50AM MH-101 Smith, Jane")),
	}
}

func (p *fakePortal) Launch(ctx context.Context) (Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failLaunch {
		return nil, errors.New("chromium not installed")
	}
	p.launches++
	p.liveBrowse++
	return &fakeBrowser{portal: p, fields: map[string]string{}}, nil
}

func (p *fakePortal) counts() (launches, closes, logins, live int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.launches, p.closes, p.logins, p.liveBrowse
}

type fakeBrowser struct {
	portal *fakePortal

	mu           sync.Mutex
	page         string
	loggedIn     bool
	cookies      []models.PortalCookie
	fields       map[string]string
	termSelected bool
	closed       bool
	failNavigate bool
}

func (b *fakeBrowser) hasValidCookie() bool {
	for _, c := range b.cookies {
		if c.Name == "ASP.NET_SessionId" && c.Value == testCookie {
			return true
		}
	}
	return false
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	b.portal.mu.Lock()
	hang := b.portal.hangNavigate
	b.portal.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("browser closed")
	}
	if b.failNavigate {
		return errors.New("net::ERR_CONNECTION_RESET")
	}
	if !b.loggedIn && b.hasValidCookie() {
		b.loggedIn = true
	}
	if !b.loggedIn {
		b.page = "login"
		return nil
	}
	switch url {
	case testPages.RegistrationDates:
		b.page = "registrations"
	case testPages.Schedule:
		b.page = "schedule"
		b.termSelected = false
	default:
		return fmt.Errorf("unexpected url %s", url)
	}
	return nil
}

func (b *fakeBrowser) present(selector string) bool {
	b.portal.mu.Lock()
	defer b.portal.mu.Unlock()

	switch b.page {
	case "login":
		if b.portal.hideLoginForm {
			return false
		}
		return selector == selUsername || selector == selPassword || selector == selLoginButton
	case "otp":
		return selector == selOTPInput || selector == selOTPButton
	case "schedule":
		if selector == selTermDropdown {
			return !b.portal.hideTermDropdown
		}
		return selector == selCoursesGrid && b.termSelected
	}
	return false
}

func (b *fakeBrowser) Find(ctx context.Context, selector string) (Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.present(selector) {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return &fakeElement{b: b, selector: selector}, nil
}

func (b *fakeBrowser) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.present(selector) {
		return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, selector, timeout)
	}
	return &fakeElement{b: b, selector: selector}, nil
}

func (b *fakeBrowser) Title(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.page == "login" || b.page == "otp" {
		return "Portal Access | Contra Costa", nil
	}
	return "Registration Dates", nil
}

func (b *fakeBrowser) Source(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.portal.mu.Lock()
	defer b.portal.mu.Unlock()

	switch b.page {
	case "otp":
		return `<html><body><span id="lblOTPEntryTitle">Enter your code</span><input id="OTPOTPEntry"></body></html>`, nil
	case "registrations":
		return b.portal.registrationsHTML, nil
	case "schedule":
		return b.portal.scheduleHTML, nil
	}
	return `<html><body><form id="frmLogin"></form></body></html>`, nil
}

func (b *fakeBrowser) Cookies(ctx context.Context) ([]models.PortalCookie, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.PortalCookie(nil), b.cookies...), nil
}

func (b *fakeBrowser) SetCookies(ctx context.Context, cookies []models.PortalCookie) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cookies = append(b.cookies, cookies...)
	return nil
}

func (b *fakeBrowser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true

	b.portal.mu.Lock()
	b.portal.closes++
	b.portal.liveBrowse--
	b.portal.mu.Unlock()
}

// click runs with b.mu held.
func (b *fakeBrowser) click(selector string) {
	b.portal.mu.Lock()
	defer b.portal.mu.Unlock()

	switch selector {
	case selLoginButton:
		b.portal.logins++
		if b.fields[selUsername] != testUsername || b.fields[selPassword] != testPassword {
			b.fields = map[string]string{}
			return
		}
		if b.portal.requireOTP {
			b.page = "otp"
			return
		}
		b.grantSession()
	case selOTPButton:
		b.portal.otpTries++
		if b.fields[selOTPInput] != testCode {
			delete(b.fields, selOTPInput)
			return
		}
		b.grantSession()
	}
}

func (b *fakeBrowser) grantSession() {
	b.loggedIn = true
	b.page = "registrations"
	b.cookies = []models.PortalCookie{{
		Name:     "ASP.NET_SessionId",
		Value:    testCookie,
		Domain:   "portal.test",
		Path:     "/",
		HTTPOnly: true,
		Secure:   true,
	}}
}

type fakeElement struct {
	b        *fakeBrowser
	selector string
}

func (e *fakeElement) Input(ctx context.Context, text string) error {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	e.b.fields[e.selector] += text
	return nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	e.b.click(e.selector)
	return nil
}

func (e *fakeElement) SelectText(ctx context.Context, text string) error {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	if text != testTerm {
		return fmt.Errorf("no option %q", text)
	}
	e.b.termSelected = true
	return nil
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	return "", nil
}

// memoryStore is a CookieStore backed by a map.
type memoryStore struct {
	mu    sync.Mutex
	data  map[string][]models.PortalCookie
	saves int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]models.PortalCookie{}}
}

func (s *memoryStore) Load(ctx context.Context, userID string) ([]models.PortalCookie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data[userID]
	return c, ok && len(c) > 0
}

func (s *memoryStore) Save(ctx context.Context, userID string, cookies []models.PortalCookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = cookies
	s.saves++
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event models.SessionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) states() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.State)
	}
	return out
}

func registrationsPage(term, date string) string {
	return `<html><head><title>Registration Dates</title></head><body>
<table id="regDates">
  <tr><th>Term</th><th>Date</th></tr>
  <tr><td>2025FA</td><td>Apr 1, 2025</td></tr>
  <tr><td> ` + term + ` Spring </td><td> ` + date + ` </td></tr>
</table></body></html>`
}

func schedulePage(rows ...string) string {
	return `<html><body>
<select id="ctl00_PlaceHolderMain_ddlTerm"><option>2025FA</option><option>2026SP</option></select>
<table class="courses-grid"><tbody>` + strings.Join(rows, "\n") + `</tbody></table>
</body></html>`
}

func courseRow(title, dates string, meetings ...string) string {
	var details strings.Builder
	for i, m := range meetings {
		fmt.Fprintf(&details, `<tr><td><span id="ctl00_rpt_ctl0%d_lblLocation">%s</span>
<table class="grid-faculty-names"><tr><td></td></tr></table></td></tr>`, i, m)
	}
	return `<tr><td>
<div><span id="ctl00_rpt_ctl01_lblCourse">` + title + `</span></div>
<div><span id="ctl00_rpt_ctl01_lblDates">` + dates + `</span></div>
<table class="course-details-grid"><tbody>` + details.String() + `</tbody></table>
</td></tr>`
}

const spacerRow = `<tr class="spacer"><td>&nbsp;</td></tr>`
