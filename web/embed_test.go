package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerServesChatWidget(t *testing.T) {
	t.Parallel()

	h := Handler()
	for _, path := range []string{"/", "/chat", "/some/deep/link"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), "Dashboard Genie") {
			t.Fatalf("%s: expected chat page", path)
		}
	}
}
