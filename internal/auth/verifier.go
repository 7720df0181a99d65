package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"snapscreen/internal/config"
	"snapscreen/internal/errors"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/hashicorp/go-retryablehttp"
)

// minKeyRefresh limits JWKS refetches triggered by unknown key ids
const minKeyRefresh = time.Minute

// Claims are the verified facts of an ID token
type Claims struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	Admin         bool      `json:"admin"`
	IssuedAt      time.Time `json:"issuedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// firebaseClaims are the non-registered claims of a Firebase ID token
type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Admin         bool   `json:"admin"`
}

// TokenVerifier verifies Firebase ID tokens against the secure token JWKS
type TokenVerifier struct {
	projectID string
	jwksURL   string
	clockSkew time.Duration
	client    *retryablehttp.Client
	logger    *errors.Logger
	now       func() time.Time

	mu        sync.RWMutex
	keys      jose.JSONWebKeySet
	fetchedAt time.Time
}

// NewTokenVerifier creates a verifier for the configured project
func NewTokenVerifier(cfg config.AuthConfig, logger *errors.Logger) (*TokenVerifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "auth.projectId is required to verify tokens", nil)
	}
	return &TokenVerifier{
		projectID: cfg.ProjectID,
		jwksURL:   cfg.JWKSURL,
		clockSkew: cfg.ClockSkew,
		client:    newHTTPClient(cfg, logger),
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Issuer is the expected iss claim.
func (v *TokenVerifier) Issuer() string {
	return "https://securetoken.google.com/" + v.projectID
}

// Verify checks the signature and claims of raw and returns its claims.
func (v *TokenVerifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, invalidToken("token is empty", nil)
	}

	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.RS256})
	if err != nil {
		return nil, invalidToken("token is malformed", err)
	}
	if len(tok.Headers) == 0 || tok.Headers[0].KeyID == "" {
		return nil, invalidToken("token has no key id", nil)
	}
	kid := tok.Headers[0].KeyID

	key, err := v.key(ctx, kid)
	if err != nil {
		return nil, err
	}

	var registered jwt.Claims
	var custom firebaseClaims
	if err := tok.Claims(key.Key, &registered, &custom); err != nil {
		return nil, errors.NewAuthError(errors.ErrCodeInvalidSignature, "token signature is invalid", err)
	}

	expected := jwt.Expected{
		Issuer:      v.Issuer(),
		AnyAudience: jwt.Audience{v.projectID},
		Time:        v.now(),
	}
	if err := registered.ValidateWithLeeway(expected, v.clockSkew); err != nil {
		return nil, invalidToken("token claims are invalid", err)
	}
	if registered.Expiry == nil {
		return nil, invalidToken("token has no expiry", nil)
	}
	if registered.Subject == "" {
		return nil, invalidToken("token has no subject", nil)
	}

	claims := &Claims{
		UID:           registered.Subject,
		Email:         custom.Email,
		EmailVerified: custom.EmailVerified,
		Admin:         custom.Admin,
		ExpiresAt:     registered.Expiry.Time(),
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time()
	}
	return claims, nil
}

// key finds the signing key for kid, refetching the key set when it is unknown.
func (v *TokenVerifier) key(ctx context.Context, kid string) (*jose.JSONWebKey, error) {
	v.mu.RLock()
	found := v.keys.Key(kid)
	stale := v.now().Sub(v.fetchedAt) >= minKeyRefresh
	v.mu.RUnlock()

	if len(found) == 0 && stale {
		if err := v.refresh(ctx); err != nil {
			return nil, err
		}
		v.mu.RLock()
		found = v.keys.Key(kid)
		v.mu.RUnlock()
	}
	if len(found) == 0 {
		return nil, invalidToken(fmt.Sprintf("unknown signing key %q", kid), nil)
	}
	return &found[0], nil
}

func (v *TokenVerifier) refresh(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidConfig, "invalid JWKS URL", err)
	}
	res, err := v.client.Do(req)
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeAuthProviderError, "failed to fetch signing keys", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return errors.NewNetworkError(errors.ErrCodeAuthProviderError,
			fmt.Sprintf("signing key endpoint returned %d", res.StatusCode), nil)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseSize)).Decode(&set); err != nil {
		return errors.NewNetworkError(errors.ErrCodeAuthProviderError, "malformed signing key set", err)
	}

	v.mu.Lock()
	v.keys = set
	v.fetchedAt = v.now()
	v.mu.Unlock()

	if v.logger != nil {
		v.logger.Debug("Refreshed token signing keys", "keys", len(set.Keys))
	}
	return nil
}

func invalidToken(message string, cause error) error {
	return errors.NewAuthError(errors.ErrCodeInvalidToken, message, cause)
}
