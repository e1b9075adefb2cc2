package websocket

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestHandleWebSocket_RejectsBadTokens(t *testing.T) {
	hub := NewHub(nil, "hub-secret")

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.New().String(),
		"exp":     time.Now().Add(time.Minute).Unix(),
	})
	foreignToken, err := foreign.SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatal(err)
	}

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	noUserToken, err := noUser.SignedString([]byte("hub-secret"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		query string
	}{
		{"missing token", ""},
		{"foreign secret", "?token=" + foreignToken},
		{"no user id", "?token=" + noUserToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ws"+tc.query, nil))
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("Expected status 401, got %d", rr.Code)
			}
		})
	}
}
