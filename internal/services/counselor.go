package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JumajiCa/ChatDVC/internal/logger"
	"github.com/JumajiCa/ChatDVC/internal/models"
	"github.com/JumajiCa/ChatDVC/internal/portal"
)

const (
	msgCredentialsMissing = "I need your InSite username and password saved in your profile to check that."
	msgCheckEmailForCode  = "I am logging into the 4CD Portal. Please check your email for the verification code."
	msgAssistantDown      = "I'm currently having trouble reaching the assistant. Please try again in a moment."

	actionTwoFactorInput = "2fa_input"
)

var portalKeywords = []string{"schedule", "class", "registration", "date", "when can i register", "reg date"}

type portalSessions interface {
	LoginStep1(ctx context.Context, userID, username, password string) (portal.LoginStatus, error)
	FetchData(ctx context.Context, userID string) (*portal.PortalData, error)
}

type answerer interface {
	Ask(ctx context.Context, question string, history []models.ChatMessage, studentContext string) (string, error)
}

type profileReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.StudentProfile, error)
}

type credentialDecrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// CounselorService answers a student's question, pulling live portal data
// into the context when the question is about schedules or registration.
type CounselorService struct {
	profiles  profileReader
	cipher    credentialDecrypter
	portal    portalSessions
	assistant answerer
}

func NewCounselorService(profiles profileReader, cipher credentialDecrypter, sessions portalSessions, assistant answerer) *CounselorService {
	return &CounselorService{
		profiles:  profiles,
		cipher:    cipher,
		portal:    sessions,
		assistant: assistant,
	}
}

func (s *CounselorService) Ask(ctx context.Context, userID uuid.UUID, req models.AskRequest) (*models.AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, &ValidationError{Fields: map[string]string{"question": "Question is required"}}
	}

	log := logger.WithUser(userID.String())

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		profile = nil
	}

	var portalBlock string
	if profile != nil && NeedsPortalData(question) {
		if profile.PortalUsername == "" || profile.PortalPasswordEnc == "" {
			return &models.AskResponse{Answer: msgCredentialsMissing}, nil
		}

		resp, block := s.scrape(ctx, userID, profile)
		if resp != nil {
			return resp, nil
		}
		portalBlock = block
	}

	answer, err := s.assistant.Ask(ctx, question, req.History, BuildStudentContext(profile, portalBlock))
	if err != nil {
		log.WithError(err).Error("assistant failed to answer")
		return &models.AskResponse{Answer: msgAssistantDown}, nil
	}
	return &models.AskResponse{Answer: answer}, nil
}

// scrape returns a response to send straight back when the portal needs a
// one-time code; otherwise the context block to hand the assistant.
func (s *CounselorService) scrape(ctx context.Context, userID uuid.UUID, profile *models.StudentProfile) (*models.AskResponse, string) {
	log := logger.WithUser(userID.String())

	password, err := s.cipher.Decrypt(profile.PortalPasswordEnc)
	if err != nil {
		log.WithError(err).Warn("stored portal password could not be decrypted")
		return nil, portalFailureNote("your saved InSite password could not be read; please re-enter it in your profile")
	}

	status, err := s.portal.LoginStep1(ctx, userID.String(), profile.PortalUsername, password)
	if err != nil {
		log.WithError(err).Warn("portal login failed")
		return nil, portalFailureNote(summarizePortalError(err))
	}

	if status == portal.TwoFactorRequired {
		return &models.AskResponse{Answer: msgCheckEmailForCode, ActionRequired: actionTwoFactorInput}, ""
	}

	data, err := s.portal.FetchData(ctx, userID.String())
	if err != nil {
		log.WithError(err).Warn("portal fetch failed")
		return nil, portalFailureNote(summarizePortalError(err))
	}
	return nil, PortalDataBlock(data)
}

// NeedsPortalData reports whether question asks about live schedule or
// registration information.
func NeedsPortalData(question string) bool {
	q := strings.ToLower(question)
	for _, k := range portalKeywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}

func PortalDataBlock(data *portal.PortalData) string {
	return fmt.Sprintf("\n[Real-time Portal Data]\nRegistration Date: %s\nSchedule: %s\n", data.RegistrationDate, data.ScheduleReport())
}

func portalFailureNote(reason string) string {
	return fmt.Sprintf("\n[System Note: I tried to access InSite but failed: %s]\n", reason)
}

func summarizePortalError(err error) string {
	switch {
	case errors.Is(err, portal.ErrTimeout):
		return "the portal did not respond in time"
	case errors.Is(err, portal.ErrNoActiveSession):
		return "the portal session ended before data could be read"
	case errors.Is(err, portal.ErrManagerClosed):
		return "the server is shutting down"
	case errors.Is(err, portal.ErrAuthentication):
		return "the portal login did not complete"
	default:
		return "an unexpected portal error occurred"
	}
}

// BuildStudentContext renders the profile and any portal block for the
// assistant's system instruction.
func BuildStudentContext(profile *models.StudentProfile, portalBlock string) string {
	if profile == nil {
		return portalBlock
	}
	return fmt.Sprintf("\nStudent Information:\nName: %s\nMajor: %s\nDiscipline: %s\nExpected Grad: %s\nCounselor: %s\n%s",
		profile.Name, profile.Major, profile.Discipline, profile.ExpectedGraduation, profile.Counselor, portalBlock)
}
