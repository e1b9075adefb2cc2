package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/JumajiCa/ChatDVC/internal/models"
)

const assistantPersona = `You are a helpful AI counselor assistant at Diablo Valley College (DVC).
You are NOT the student's specific assigned counselor, but you can refer to them if asked.
If "Real-time Portal Data" is present in the context, use it to answer the student's question accurately.
The schedule, when present, is a JSON list of courses with "course", "dates" and "details" fields; each detail is one meeting pattern as printed by the portal.`

// AssistantService answers student questions through Gemini.
type AssistantService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewAssistantService(apiKey, modelName string, concurrentReqs int) (*AssistantService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.4)
	model.SetTopP(0.95)

	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &AssistantService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *AssistantService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *AssistantService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *AssistantService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Ask sends question with the prior turns and the student's context as the
// system instruction.
func (s *AssistantService) Ask(ctx context.Context, question string, history []models.ChatMessage, studentContext string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	// The model value is shared; each call gets its own copy for the system instruction.
	model := *s.model
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(buildSystemInstruction(studentContext))},
	}

	cs := model.StartChat()
	cs.History = toGenaiHistory(history)

	resp, err := cs.SendMessage(ctx, genai.Text(question))
	if err != nil {
		return "", fmt.Errorf("gemini chat failed: %w", err)
	}

	answer := strings.TrimSpace(extractText(resp))
	if answer == "" {
		return "", fmt.Errorf("gemini returned an empty answer")
	}
	return answer, nil
}

func buildSystemInstruction(studentContext string) string {
	if strings.TrimSpace(studentContext) == "" {
		return assistantPersona
	}
	return assistantPersona + "\n\nStudent Context:\n" + studentContext
}

func toGenaiHistory(history []models.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return out
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
