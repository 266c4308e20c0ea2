package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func postForm(r http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUssdHandlerFormRequest(t *testing.T) {
	r := newTestRouter(t, "")

	w := postForm(r, url.Values{
		"sessionId":   {"at-1"},
		"phoneNumber": {"+254700000001"},
		"text":        {""},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected plain text reply, got %q", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "CON Welcome") {
		t.Fatalf("expected welcome prompt, got %q", w.Body.String())
	}

	w = postForm(r, url.Values{
		"sessionId":   {"at-1"},
		"phoneNumber": {"+254700000001"},
		"text":        {"1"},
	})
	if !strings.HasPrefix(w.Body.String(), "CON Main Menu:") {
		t.Fatalf("expected main menu, got %q", w.Body.String())
	}
}

func TestUssdHandlerJSONRequest(t *testing.T) {
	r := newTestRouter(t, "")

	w := doJSON(r, http.MethodPost, "/ussd", "", map[string]string{
		"sessionId":   "at-2",
		"phoneNumber": "+254700000002",
		"text":        "",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "CON Welcome") {
		t.Fatalf("expected welcome prompt, got %q", w.Body.String())
	}
}

func TestUssdHandlerMissingSessionID(t *testing.T) {
	r := newTestRouter(t, "")

	w := postForm(r, url.Values{"phoneNumber": {"+254700000003"}})
	if w.Code != http.StatusOK {
		t.Fatalf("gateway must always get 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "END") {
		t.Fatalf("expected terminal reply, got %q", w.Body.String())
	}
}

func TestUssdHandlerMalformedJSON(t *testing.T) {
	r := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("gateway must always get 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "END") {
		t.Fatalf("expected terminal reply, got %q", w.Body.String())
	}
}
