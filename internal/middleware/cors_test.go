package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorsMiddleware(t *testing.T) {
	testCases := []struct {
		name           string
		origin         string
		path           string
		expectedOrigin string
		expectedStatus int
	}{
		{
			name:           "AllowedOrigin",
			origin:         "http://localhost:8080",
			path:           "/stats/dashboard",
			expectedOrigin: "http://localhost:8080",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "NotAllowedOrigin",
			origin:         "https://www.notallowed.com",
			path:           "/workouts",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "NoOrigin",
			path:           "/workouts",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "ChromeExtension",
			origin:         "chrome-extension://abcdef",
			path:           "/workouts",
			expectedOrigin: "chrome-extension://abcdef",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "MCPWithoutOrigin",
			path:           "/mcp",
			expectedOrigin: "*",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "MCPForeignOrigin",
			origin:         "https://cursor.example",
			path:           "/mcp",
			expectedOrigin: "https://cursor.example",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req, err := http.NewRequest("GET", tc.path, nil)
			require.NoError(t, err)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}

			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
			handler := Cors()(nextHandler)

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code, "Unexpected status code")
			assert.Equal(t, tc.expectedOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
