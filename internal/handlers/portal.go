package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JumajiCa/ChatDVC/internal/logger"
	"github.com/JumajiCa/ChatDVC/internal/middleware"
	"github.com/JumajiCa/ChatDVC/internal/models"
	"github.com/JumajiCa/ChatDVC/internal/portal"
)

type portalManager interface {
	LoginStep1(ctx context.Context, userID, username, password string) (portal.LoginStatus, error)
	SubmitCode(ctx context.Context, userID, code string) portal.CodeResult
	FetchData(ctx context.Context, userID string) (*portal.PortalData, error)
	State(userID string) (portal.State, bool)
	Close(ctx context.Context, userID string)
}

type credentialDecrypter interface {
	Decrypt(ciphertext string) (string, error)
}

type PortalHandler struct {
	portal   portalManager
	profiles profileRepository
	cipher   credentialDecrypter
}

func NewPortalHandler(manager portalManager, profiles profileRepository, cipher credentialDecrypter) *PortalHandler {
	return &PortalHandler{portal: manager, profiles: profiles, cipher: cipher}
}

// Login starts or resumes the portal session. Credentials in the body win;
// otherwise the ones saved in the profile are used.
func (h *PortalHandler) Login(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.PortalLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Username == "" || req.Password == "" {
		username, password, err := h.savedCredentials(r.Context(), userID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		if username == "" || password == "" {
			writeJSON(w, http.StatusBadRequest, errorResp("CREDENTIALS_REQUIRED", "Save your InSite username and password in your profile first.", r))
			return
		}
		req.Username, req.Password = username, password
	}

	status, err := h.portal.LoginStep1(r.Context(), userID.String(), req.Username, req.Password)
	if err != nil {
		writePortalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.PortalLoginResponse{Status: string(status)})
}

func (h *PortalHandler) savedCredentials(ctx context.Context, userID uuid.UUID) (string, string, error) {
	profile, err := h.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", nil
		}
		return "", "", err
	}
	password, err := h.cipher.Decrypt(profile.PortalPasswordEnc)
	if err != nil {
		logger.WithUser(userID.String()).WithError(err).Warn("stored portal password could not be decrypted")
		return profile.PortalUsername, "", nil
	}
	return profile.PortalUsername, password, nil
}

// SubmitCode always answers 200 once a code is supplied; success is in the body.
func (h *PortalHandler) SubmitCode(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.SubmitCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"code": "No code provided."}, r))
		return
	}

	result := h.portal.SubmitCode(r.Context(), userID.String(), code)
	if !result.OK {
		writeJSON(w, http.StatusOK, models.SubmitCodeResponse{
			Success: false,
			Message: "Verification failed: " + result.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, models.SubmitCodeResponse{
		Success: true,
		Message: "Verification successful! Login complete. Please ask your question again to see your data.",
	})
}

func (h *PortalHandler) Data(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	data, err := h.portal.FetchData(r.Context(), userID.String())
	if err != nil {
		writePortalError(w, r, err)
		return
	}

	courses := data.Courses
	if courses == nil {
		courses = []models.ScheduleEntry{}
	}
	writeJSON(w, http.StatusOK, models.PortalDataResponse{
		Term:             data.Term,
		RegistrationDate: data.RegistrationDate,
		Courses:          courses,
		Schedule:         data.ScheduleReport(),
	})
}

func (h *PortalHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	state, active := h.portal.State(userID.String())
	writeJSON(w, http.StatusOK, models.PortalStatusResponse{State: string(state), Active: active})
}

func (h *PortalHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	h.portal.Close(r.Context(), userID.String())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Portal session closed"})
}

// writePortalError logs the driver error and answers with a summary only.
func writePortalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.WithUser(middleware.GetUserID(r.Context()).String()).
		WithError(err).
		WithField("request_id", r.Header.Get(middleware.RequestIDHeader)).
		Warn("portal request failed")

	switch {
	case errors.Is(err, portal.ErrNoActiveSession):
		writeJSON(w, http.StatusConflict, errorResp("NO_ACTIVE_SESSION", "No portal session is active. Log in to the portal first.", r))
	case errors.Is(err, portal.ErrManagerClosed):
		writeJSON(w, http.StatusServiceUnavailable, errorResp("UNAVAILABLE", "The server is shutting down. Please try again shortly.", r))
	case errors.Is(err, portal.ErrTimeout):
		writeJSON(w, http.StatusGatewayTimeout, errorResp("PORTAL_TIMEOUT", "The portal took too long to respond. Please try again.", r))
	case errors.Is(err, portal.ErrAuthentication):
		writeJSON(w, http.StatusBadGateway, errorResp("PORTAL_LOGIN_FAILED", "Could not sign in to the portal. Please try again.", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
