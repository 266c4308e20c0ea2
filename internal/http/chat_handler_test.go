package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"heal-engine/internal/email"
	"heal-engine/internal/llm"
	"heal-engine/internal/repository"
	"heal-engine/internal/service"
)

func newTestRouter(t *testing.T, jwtSecret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	sessions := repository.NewMemorySessionRepository()
	messages := repository.NewMemoryMessageRepository()
	responder := service.NewResponder(&llm.MockClient{Response: "I'm listening."}, time.Second, logger)
	chatSvc := service.NewChatService(logger, sessions, messages, responder)

	store := service.NewMemoryUssdStore(time.Minute)
	t.Cleanup(store.Close)
	ussdSvc := service.NewUssdService(logger, store, responder, email.NewDisabledSender(""))

	return NewRouter(logger, jwtSecret, NewChatHandler(logger, chatSvc), NewUssdHandler(logger, ussdSvc))
}

func doJSON(r *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChatEndpointsRequireIdentity(t *testing.T) {
	r := newTestRouter(t, "")

	w := doJSON(r, http.MethodPost, "/chat/message", "", map[string]string{"content": "hello"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", w.Code)
	}
	w = doJSON(r, http.MethodGet, "/chat/sessions", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", w.Code)
	}
}

func TestChatSendMessageAndHistory(t *testing.T) {
	r := newTestRouter(t, "")

	w := doJSON(r, http.MethodPost, "/chat/message", "u1", map[string]string{"content": "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var sent struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sent); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if sent.Session.ID == "" || sent.Response != "I'm listening." {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}

	w = doJSON(r, http.MethodGet, "/chat/history?session_id="+sent.Session.ID, "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var hist struct {
		Messages []struct {
			Sender  string `json:"sender"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &hist); err != nil {
		t.Fatalf("invalid history body: %v", err)
	}
	if len(hist.Messages) != 2 || hist.Messages[0].Sender != "user" || hist.Messages[1].Sender != "ai" {
		t.Fatalf("unexpected history: %s", w.Body.String())
	}
}

func TestChatSendMessageEmptyContent(t *testing.T) {
	r := newTestRouter(t, "")

	w := doJSON(r, http.MethodPost, "/chat/message", "u1", map[string]string{"content": "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty content, got %d", w.Code)
	}
}

func TestChatHistoryRequiresSessionID(t *testing.T) {
	r := newTestRouter(t, "")

	w := doJSON(r, http.MethodGet, "/chat/history", "u1", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without session_id, got %d", w.Code)
	}
}

func TestChatDeleteSessionOwnership(t *testing.T) {
	r := newTestRouter(t, "")

	w := doJSON(r, http.MethodPost, "/chat/message", "u1", map[string]string{"content": "hello"})
	var sent struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sent); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}

	w = doJSON(r, http.MethodDelete, "/chat/session/"+sent.Session.ID, "u2", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign delete, got %d", w.Code)
	}

	w = doJSON(r, http.MethodDelete, "/chat/session/"+sent.Session.ID, "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner delete, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodGet, "/chat/history?session_id="+sent.Session.ID, "u1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestIdentityMiddlewareJWT(t *testing.T) {
	const secret = "test-secret"
	r := newTestRouter(t, secret)

	// Header identity is ignored once a secret is configured.
	w := doJSON(r, http.MethodGet, "/chat/sessions", "u1", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions", nil)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/chat/sessions", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, "")

	w := doJSON(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
