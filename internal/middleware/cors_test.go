package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name        string
		allowed     []string
		origin      string
		wantOrigin  string
		wantCreds   bool
		method      string
		wantStatus  int
		preflighted bool
	}{
		{name: "explicit origin", allowed: []string{"http://superset.local/"}, origin: "http://superset.local", wantOrigin: "http://superset.local", wantCreds: true, method: http.MethodPost, wantStatus: http.StatusTeapot},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://elsewhere", wantOrigin: "http://elsewhere", method: http.MethodGet, wantStatus: http.StatusTeapot},
		{name: "not allowed", allowed: []string{"http://superset.local"}, origin: "http://evil", method: http.MethodGet, wantStatus: http.StatusTeapot},
		{name: "preflight", allowed: []string{"*"}, origin: "http://a", wantOrigin: "http://a", method: http.MethodOptions, wantStatus: http.StatusNoContent, preflighted: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tt.method, "/message", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflighted {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			CORS(tt.allowed)(next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow-origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tt.wantCreds {
				t.Errorf("credentials = %v, want %v", got, tt.wantCreds)
			}
		})
	}
}
