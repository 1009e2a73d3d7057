package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	preflight := func(origin string) *http.Request {
		req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		return req
	}
	simple := func(origin string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		return req
	}

	tests := []struct {
		name        string
		cfg         CORSConfig
		req         *http.Request
		wantStatus  int
		wantOrigin  string
		wantHeaders string
		wantCreds   string
	}{
		{
			name:        "wildcard preflight",
			cfg:         CORSConfig{Origins: []string{"*"}},
			req:         preflight("https://shop.example"),
			wantStatus:  http.StatusNoContent,
			wantOrigin:  "*",
			wantHeaders: "Content-Type",
		},
		{
			name:        "listed origin any case",
			cfg:         CORSConfig{Origins: []string{"https://Shop.example"}, Headers: []string{"Content-Type", "X-Request-ID"}},
			req:         preflight("https://shop.EXAMPLE"),
			wantStatus:  http.StatusNoContent,
			wantOrigin:  "https://Shop.example",
			wantHeaders: "Content-Type, X-Request-ID",
		},
		{
			name:       "unlisted origin preflight",
			cfg:        CORSConfig{Origins: []string{"https://shop.example"}},
			req:        preflight("https://evil.example"),
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "credentials echo origin",
			cfg:        CORSConfig{AllowCredentials: true},
			req:        simple("https://shop.example"),
			wantStatus: http.StatusOK,
			wantOrigin: "https://shop.example",
			wantCreds:  "true",
		},
		{
			name:       "no origin passes through",
			cfg:        CORSConfig{Origins: []string{"https://shop.example"}},
			req:        simple(""),
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			CORS(tt.cfg)(okHandler()).ServeHTTP(w, tt.req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantHeaders, w.Header().Get("Access-Control-Allow-Headers"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestCORS_VaryOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://shop.example")
	w := httptest.NewRecorder()
	CORS(CORSConfig{Origins: []string{"https://shop.example"}})(okHandler()).ServeHTTP(w, req)
	assert.Contains(t, w.Header().Values("Vary"), "Origin")

	w = httptest.NewRecorder()
	CORS(CORSConfig{})(okHandler()).ServeHTTP(w, req)
	assert.Empty(t, w.Header().Values("Vary"))
}
