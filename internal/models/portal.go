package models

// PortalCookie is one persisted browser cookie. Expires is seconds since
// the Unix epoch; zero or negative marks a session cookie.
type PortalCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	SameSite string  `json:"sameSite,omitempty"`
}

type ScheduleEntry struct {
	CourseTitle    string   `json:"course"`
	DateRange      string   `json:"dates"`
	MeetingDetails []string `json:"details"`
}

type PortalLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type PortalLoginResponse struct {
	Status string `json:"status"` // "LOGGED_IN" | "2FA_REQUIRED"
}

type SubmitCodeRequest struct {
	Code string `json:"code"`
}

type SubmitCodeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PortalDataResponse struct {
	Term             string          `json:"term"`
	RegistrationDate string          `json:"registration_date"`
	Courses          []ScheduleEntry `json:"courses"`
	Schedule         string          `json:"schedule"`
}

type PortalStatusResponse struct {
	State  string `json:"state"`
	Active bool   `json:"active"`
}
