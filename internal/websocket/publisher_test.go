package websocket

import (
	"encoding/json"
	"testing"

	"github.com/JumajiCa/ChatDVC/internal/models"
)

func TestEncodeSessionEvent(t *testing.T) {
	data, err := encodeSessionEvent(models.SessionEvent{UserID: "u1", State: "AWAITING_OTP"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded struct {
		Type    string              `json:"type"`
		Payload models.SessionEvent `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Type != "portal_session" || decoded.Payload.State != "AWAITING_OTP" || decoded.Payload.UserID != "u1" {
		t.Fatalf("unexpected message %+v", decoded)
	}
}

func TestUserChannel(t *testing.T) {
	if got := userChannel("abc"); got != "user_updates:abc" {
		t.Fatalf("unexpected channel %q", got)
	}
}
