package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quickkart/authserver/config"
	"github.com/quickkart/authserver/internal/avatars"
	"github.com/quickkart/authserver/internal/events"
	"github.com/quickkart/authserver/types"
	"golang.org/x/oauth2"
)

// Provider-call timeout. An expired timeout on the code exchange is terminal
// for the flow: authorization codes are single-use, so there is no retry.
const providerTimeout = 10 * time.Second

var (
	// ErrProviderNotConfigured is returned when the OAuth client id is missing.
	ErrProviderNotConfigured = errors.New("oauth client id not configured")

	// ErrInvalidState is returned when the callback's CSRF state is missing,
	// expired, or not one we minted.
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrNoEmail is returned when the provider profile carries no email; the
	// email is the sole join key for local accounts.
	ErrNoEmail = errors.New("provider profile has no email")
)

// profile is the subset of the provider's userinfo response we consume.
type profile struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// OAuthService drives the authorization-code flow against the identity
// provider and provisions local accounts from the fetched profile.
type OAuthService struct {
	oauth       *oauth2.Config
	userinfoURL string
	frontendURL string
	users       UserRepository
	tokens      *TokenService
	events      *events.Events
	avatars     *avatars.Mirror
	client      *http.Client
	logger      *slog.Logger
}

func NewOAuthService(
	cfg config.GoogleOAuthConfig,
	frontendURL string,
	users UserRepository,
	tokens *TokenService,
	ev *events.Events,
	mirror *avatars.Mirror,
	logger *slog.Logger,
) *OAuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OAuthService{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  strings.TrimRight(cfg.PublicBaseURL, "/") + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userinfoURL: cfg.UserinfoURL,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		users:       users,
		tokens:      tokens,
		events:      ev,
		avatars:     mirror,
		client:      &http.Client{Timeout: providerTimeout},
		logger:      logger,
	}
}

// AuthURL mints a CSRF state and returns the provider's consent-screen URL
// for the browser redirect.
func (s *OAuthService) AuthURL() (string, error) {
	if strings.TrimSpace(s.oauth.ClientID) == "" {
		return "", ErrProviderNotConfigured
	}
	state, err := s.tokens.IssueState()
	if err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// Complete runs the callback half of the flow: state check, code exchange,
// profile fetch, account upsert, token issue. It returns the frontend URL
// the browser is redirected to with the bearer token attached.
//
// Provider calls run on a detached, deadline-bounded context: a client that
// disconnects mid-exchange does not abort them, and there is nothing to roll
// back because the account is only written after both calls succeed.
func (s *OAuthService) Complete(ctx context.Context, code, state string) (string, error) {
	if err := s.tokens.VerifyState(state); err != nil {
		return "", ErrInvalidState
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), providerTimeout)
	defer cancel()

	callCtx = context.WithValue(callCtx, oauth2.HTTPClient, s.client)
	token, err := s.oauth.Exchange(callCtx, code)
	if err != nil {
		s.logger.Error("oauth code exchange failed", "err", err)
		return "", fmt.Errorf("exchange code: %w", err)
	}

	prof, err := s.fetchProfile(callCtx, token.AccessToken)
	if err != nil {
		s.logger.Error("oauth profile fetch failed", "err", err)
		return "", fmt.Errorf("fetch profile: %w", err)
	}
	if strings.TrimSpace(prof.Email) == "" {
		return "", ErrNoEmail
	}

	name := prof.Name
	if name == "" {
		name, _, _ = strings.Cut(prof.Email, "@")
	}
	meta := map[string]string{}
	if prof.Picture != "" {
		meta["picture"] = prof.Picture
	}
	if prof.Sub != "" {
		meta["sub"] = prof.Sub
	}

	user, created, err := s.users.FindOrCreateByEmail(ctx, prof.Email, name, meta)
	if err != nil {
		return "", fmt.Errorf("resolve user: %w", err)
	}

	bearer, err := s.tokens.Issue(strconv.Itoa(user.ID), RoleUser, UserTokenTTL)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	if created {
		s.provisioned(ctx, user)
	}

	return s.frontendURL + "/?token=" + url.QueryEscape(bearer), nil
}

func (s *OAuthService) fetchProfile(ctx context.Context, accessToken string) (profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userinfoURL, nil)
	if err != nil {
		return profile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return profile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Provider error bodies are logged here, never relayed to the browser.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Error("userinfo request rejected", "status", resp.StatusCode, "body", string(body))
		return profile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var prof profile
	if err := json.NewDecoder(resp.Body).Decode(&prof); err != nil {
		return profile{}, err
	}
	return prof, nil
}

func (s *OAuthService) provisioned(ctx context.Context, user types.User) {
	s.events.Emit(ctx, events.UserProvisioned(strconv.Itoa(user.ID), user.Email))

	if picture := user.ProfileMeta["picture"]; picture != "" && s.avatars != nil {
		mirrorCtx := context.WithoutCancel(ctx)
		go s.avatars.MirrorProfilePicture(mirrorCtx, user.ID, picture)
	}
}
