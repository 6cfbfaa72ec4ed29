package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func securityTestRouter(config SecurityHeadersConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(config))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestSecurityHeaders_APIConfig(t *testing.T) {
	r := securityTestRouter(APISecurityHeadersConfig())
	w := performRequest(r, httptest.NewRequest(http.MethodGet, "/", nil))

	wantHeaders := map[string]string{
		"Strict-Transport-Security":    "max-age=31536000; includeSubDomains",
		"X-Frame-Options":              "DENY",
		"X-Content-Type-Options":       "nosniff",
		"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":              "no-referrer",
		"Cross-Origin-Opener-Policy":   "same-origin",
		"Cross-Origin-Resource-Policy": "same-origin",
	}
	for name, want := range wantHeaders {
		if got := w.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestSecurityHeaders_HSTSDisabled(t *testing.T) {
	config := APISecurityHeadersConfig()
	config.EnableHSTS = false
	r := securityTestRouter(config)
	w := performRequest(r, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("Strict-Transport-Security = %q, want unset", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff regardless of config", got)
	}
}

func TestSecurityHeaders_HSTSWithoutSubdomains(t *testing.T) {
	config := APISecurityHeadersConfig()
	config.HSTSIncludeSubdomains = false
	config.HSTSMaxAge = 3600
	r := securityTestRouter(config)
	w := performRequest(r, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=3600" {
		t.Errorf("Strict-Transport-Security = %q, want %q", got, "max-age=3600")
	}
}
