package services

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the authorization level carried inside a bearer token.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Admin sessions are short-lived privileged sessions; end-user sessions last
// a week.
const (
	AdminTokenTTL = 12 * time.Hour
	UserTokenTTL  = 7 * 24 * time.Hour

	stateTokenTTL = 10 * time.Minute
)

var (
	// ErrTokenExpired is returned when a token's signature is valid but its
	// expiry has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenMalformed is returned when a token's structure or signature is
	// invalid. No claim from such a token is ever trusted.
	ErrTokenMalformed = errors.New("token malformed")
)

// Identity is the verified result of a bearer token check.
type Identity struct {
	Subject string
	Role    Role
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

const stateAudience = "oauth_state"

// TokenService issues and verifies HS256-signed bearer tokens. Verification
// is stateless: signature plus expiry, no server-side session record.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Issue signs a bearer token for the subject with the given role and TTL.
func (s *TokenService) Issue(subject string, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the token's identity.
// It fails with ErrTokenExpired or ErrTokenMalformed; a token whose signature
// does not verify is rejected regardless of its claim content.
func (s *TokenService) Verify(tokenString string) (Identity, error) {
	claims := tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrTokenMalformed
	}
	if !token.Valid {
		return Identity{}, ErrTokenMalformed
	}

	role := Role(claims.Role)
	if role != RoleAdmin && role != RoleUser {
		return Identity{}, ErrTokenMalformed
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, ErrTokenMalformed
	}
	return Identity{Subject: claims.Subject, Role: role}, nil
}

// IssueState mints the short-lived CSRF state for the OAuth flow. The state
// is a signed claim set so the callback can prove the flow was initiated
// here without any server-side session.
func (s *TokenService) IssueState() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyState checks a callback's state parameter. Anything but a fresh,
// correctly signed state minted by IssueState fails.
func (s *TokenService) VerifyState(state string) error {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(state, &claims, s.keyFunc,
		jwt.WithAudience(stateAudience))
	if err != nil || !token.Valid {
		return ErrTokenMalformed
	}
	return nil
}

func (s *TokenService) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("invalid signing method")
	}
	return s.secret, nil
}
