package portal

// State is the lifecycle position of one user's portal session.
type State string

const (
	StateUnknown                 State = "UNKNOWN"
	StateCheckingExistingSession State = "CHECKING_EXISTING_SESSION"
	StateNeedsLogin              State = "NEEDS_LOGIN"
	StateAwaitingOTP             State = "AWAITING_OTP"
	StateAuthenticated           State = "AUTHENTICATED"
	StateFailed                  State = "FAILED"
)

// LoginStatus is the outcome of the credential step.
type LoginStatus string

const (
	LoggedIn          LoginStatus = "LOGGED_IN"
	TwoFactorRequired LoginStatus = "2FA_REQUIRED"
)

// CodeResult is the outcome of a one-time code submission. A rejected code
// is a result, not an error.
type CodeResult struct {
	OK      bool
	Message string
}

const (
	msgSessionTimeout = "Session timeout"
	msgInvalidCode    = "Invalid code"
	msgSuccess        = "Success"
)
