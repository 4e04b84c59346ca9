package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/quickkart/authserver/config"
	"github.com/quickkart/authserver/internal/services"
)

func newOAuthTestEnv(t *testing.T) (*chi.Mux, *services.TokenService) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"s1","email":"a@x.com","name":"A"}`))
	})
	provider := httptest.NewServer(mux)
	t.Cleanup(provider.Close)

	tokens := services.NewTokenService("test-secret")
	svc := services.NewOAuthService(config.GoogleOAuthConfig{
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
		PublicBaseURL: "http://localhost:8080",
		AuthURL:       provider.URL + "/auth",
		TokenURL:      provider.URL + "/token",
		UserinfoURL:   provider.URL + "/userinfo",
	}, "http://frontend.local", newFakeUserRepo(), tokens, nil, nil, nil)

	router := chi.NewRouter()
	OAuthRouter(router, NewOAuthHandler(svc))
	return router, tokens
}

func TestOAuthStartRedirects(t *testing.T) {
	t.Parallel()

	router, tokens := newOAuthTestEnv(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/start", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("status: got %d", rec.Code)
	}

	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if err := tokens.VerifyState(location.Query().Get("state")); err != nil {
		t.Fatalf("redirect state does not verify: %v", err)
	}
}

func TestOAuthStartUnconfigured(t *testing.T) {
	t.Parallel()

	svc := services.NewOAuthService(config.GoogleOAuthConfig{}, "http://frontend.local",
		newFakeUserRepo(), services.NewTokenService("s"), nil, nil, nil)
	router := chi.NewRouter()
	OAuthRouter(router, NewOAuthHandler(svc))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/start", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestOAuthCallback(t *testing.T) {
	t.Parallel()

	router, tokens := newOAuthTestEnv(t)

	state, err := tokens.IssueState()
	if err != nil {
		t.Fatalf("IssueState error: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/auth/google/callback?code=code-1&state="+url.QueryEscape(state), nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}

	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "http://frontend.local/?token=") {
		t.Fatalf("location: got %q", location)
	}

	dest, err := url.Parse(location)
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	identity, err := tokens.Verify(dest.Query().Get("token"))
	if err != nil {
		t.Fatalf("redirect token does not verify: %v", err)
	}
	if identity.Role != services.RoleUser {
		t.Fatalf("role: got %q", identity.Role)
	}
}

func TestOAuthCallbackMissingCode(t *testing.T) {
	t.Parallel()

	router, tokens := newOAuthTestEnv(t)

	state, err := tokens.IssueState()
	if err != nil {
		t.Fatalf("IssueState error: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/auth/google/callback?state="+url.QueryEscape(state), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestOAuthCallbackBadState(t *testing.T) {
	t.Parallel()

	router, _ := newOAuthTestEnv(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/auth/google/callback?code=code-1&state=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", rec.Code)
	}
}
