package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JumajiCa/ChatDVC/internal/middleware"
	"github.com/JumajiCa/ChatDVC/internal/models"
)

const maxProfileFieldLen = 255

type profileRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.StudentProfile, error)
	Upsert(ctx context.Context, p *models.StudentProfile) error
}

type credentialEncrypter interface {
	Encrypt(plaintext string) (string, error)
}

type ProfileHandler struct {
	profiles profileRepository
	cipher   credentialEncrypter
}

func NewProfileHandler(profiles profileRepository, cipher credentialEncrypter) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, cipher: cipher}
}

// Get returns the stored profile, or an empty one for a new account. The
// portal password is never part of the response.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	profile, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			handleServiceError(w, r, err)
			return
		}
		profile = &models.StudentProfile{UserID: userID}
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{
		"name":                req.Name,
		"major":               req.Major,
		"discipline":          req.Discipline,
		"expected_graduation": req.ExpectedGraduation,
		"counselor":           req.Counselor,
		"portal_username":     req.PortalUsername,
	}
	fieldErrors := make(map[string]string)
	for name, value := range fields {
		if len(value) > maxProfileFieldLen {
			fieldErrors[name] = "Must be 255 characters or fewer"
		}
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
		return
	}

	profile := &models.StudentProfile{
		UserID:             userID,
		Name:               strings.TrimSpace(req.Name),
		Major:              strings.TrimSpace(req.Major),
		Discipline:         strings.TrimSpace(req.Discipline),
		ExpectedGraduation: strings.TrimSpace(req.ExpectedGraduation),
		Counselor:          strings.TrimSpace(req.Counselor),
		PortalUsername:     strings.TrimSpace(req.PortalUsername),
	}

	if req.PortalPassword != "" {
		enc, err := h.cipher.Encrypt(req.PortalPassword)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		profile.PortalPasswordEnc = enc
	}

	if err := h.profiles.Upsert(r.Context(), profile); err != nil {
		handleServiceError(w, r, err)
		return
	}
	profile.HasPortalPassword = profile.PortalPasswordEnc != ""

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile saved successfully",
		"profile": profile,
	})
}
