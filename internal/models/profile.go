package models

import (
	"time"

	"github.com/google/uuid"
)

// StudentProfile is the academic context the assistant sees. The portal
// password is stored encrypted and never serialized.
type StudentProfile struct {
	UserID             uuid.UUID `json:"user_id"`
	Name               string    `json:"name"`
	Major              string    `json:"major"`
	Discipline         string    `json:"discipline"`
	ExpectedGraduation string    `json:"expected_graduation"`
	Counselor          string    `json:"counselor"`
	PortalUsername     string    `json:"portal_username"`
	PortalPasswordEnc  string    `json:"-"`
	HasPortalPassword  bool      `json:"has_portal_password"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// UpdateProfileRequest carries a plaintext PortalPassword; an empty value
// keeps whatever is stored.
type UpdateProfileRequest struct {
	Name               string `json:"name"`
	Major              string `json:"major"`
	Discipline         string `json:"discipline"`
	ExpectedGraduation string `json:"expected_graduation"`
	Counselor          string `json:"counselor"`
	PortalUsername     string `json:"portal_username"`
	PortalPassword     string `json:"portal_password"`
}
