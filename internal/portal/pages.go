package portal

import (
	"strings"
	"time"
)

const (
	loginPromptTitle = "Portal Access"

	selUsername      = "#frmLogin_UserName"
	selPassword      = "#frmLogin_Password"
	selLoginButton   = "#btnLogin"
	selOTPInput      = "#OTPOTPEntry"
	selOTPButton     = "#btnOTPEntryLogin"
	selTermDropdown  = "#ctl00_PlaceHolderMain_ddlTerm"
	selCoursesGrid   = ".courses-grid"
	selCourseTitle   = "span[id*='lblCourse']"
	selCourseDates   = "span[id*='lblDates']"
	selDetailsGrid   = ".course-details-grid"
	otpMarker        = "OTPEntry"
	otpTitleMarker   = "lblOTPEntryTitle"
	registrationPath = "/apps/registrationdates/default.aspx"
	schedulePath     = "/apps/courseschedulesearch/schedule.aspx"
)

// Pages holds the portal URLs. The registration dates report doubles as the
// landing page used to probe whether a session is logged in.
type Pages struct {
	Landing           string
	RegistrationDates string
	Schedule          string
}

func NewPages(baseURL string) Pages {
	base := strings.TrimRight(baseURL, "/")
	return Pages{
		Landing:           base + registrationPath,
		RegistrationDates: base + registrationPath,
		Schedule:          base + schedulePath,
	}
}

// Timings are the settle delays and bounded waits applied between portal
// interactions.
type Timings struct {
	CookieSettle  time.Duration
	LoginSettle   time.Duration
	OTPSettle     time.Duration
	RegDateSettle time.Duration
	LoginFormWait time.Duration
	ScheduleWait  time.Duration
	// PageLoad caps each navigation, read and element action. Zero means no cap.
	PageLoad      time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		CookieSettle:  1 * time.Second,
		LoginSettle:   2 * time.Second,
		OTPSettle:     4 * time.Second,
		RegDateSettle: 1500 * time.Millisecond,
		LoginFormWait: 5 * time.Second,
		ScheduleWait:  10 * time.Second,
		PageLoad:      30 * time.Second,
	}
}
