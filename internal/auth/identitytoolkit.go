package auth

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"snapscreen/internal/breaker"
	"snapscreen/internal/config"
	"snapscreen/internal/errors"

	"github.com/hashicorp/go-retryablehttp"
)

// maxResponseSize caps identity service responses
const maxResponseSize = 1 << 20

// IdentityToolkitProvider talks to the Firebase Identity Toolkit REST API
type IdentityToolkitProvider struct {
	apiKey  string
	baseURL string
	client  *retryablehttp.Client
	breaker *breaker.Breaker[accountOutcome]
	logger  *errors.Logger
}

// accountResponse is the common shape of signUp, signInWithPassword and signInWithIdp replies
type accountResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// providerError is a rejection reported by the identity service. It does not
// count as a breaker failure since the service itself is healthy.
type providerError struct {
	status int
	code   string
}

func (e *providerError) Error() string {
	return fmt.Sprintf("identity service rejected request (%d): %s", e.status, e.code)
}

// NewIdentityToolkitProvider creates a provider from configuration
func NewIdentityToolkitProvider(cfg config.AuthConfig, logger *errors.Logger) (*IdentityToolkitProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"auth API key is required (set SNAPSCREEN_AUTH_APIKEY or FIREBASE_API_KEY)", nil)
	}
	return &IdentityToolkitProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  newHTTPClient(cfg, logger),
		breaker: breaker.New[accountOutcome]("identity-toolkit", cfg.CircuitBreaker, logger),
		logger:  logger,
	}, nil
}

func (p *IdentityToolkitProvider) CreateAccount(ctx context.Context, email, password string) Result {
	if msg, ok := validateCredentials(email, password); !ok {
		return failure(msg)
	}
	return p.account(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (p *IdentityToolkitProvider) SignInWithEmail(ctx context.Context, email, password string) Result {
	if msg, ok := validateCredentials(email, password); !ok {
		return failure(msg)
	}
	return p.account(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (p *IdentityToolkitProvider) SignInWithProvider(ctx context.Context, cred ProviderCredential) Result {
	if cred.IDToken == "" && cred.AccessToken == "" {
		return failure("A provider ID token or access token is required.")
	}
	providerID := cred.ProviderID
	if providerID == "" {
		providerID = DefaultProviderID
	}
	requestURI := cred.RequestURI
	if requestURI == "" {
		requestURI = "http://localhost"
	}

	post := url.Values{}
	post.Set("providerId", providerID)
	if cred.IDToken != "" {
		post.Set("id_token", cred.IDToken)
	}
	if cred.AccessToken != "" {
		post.Set("access_token", cred.AccessToken)
	}

	return p.account(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            post.Encode(),
		"requestUri":          requestURI,
		"returnIdpCredential": true,
		"returnSecureToken":   true,
	})
}

// SignOut has no server-side counterpart: ID tokens expire on their own and
// the session drops its user.
func (p *IdentityToolkitProvider) SignOut(_ context.Context, user *User) Result {
	if user != nil {
		p.logger.Debug("User signed out", "uid", user.UID)
	}
	return Result{}
}

// Stats returns circuit breaker statistics
func (p *IdentityToolkitProvider) Stats() map[string]any {
	return p.breaker.Stats()
}

// accountOutcome is either a signed-in account or the provider's rejection code
type accountOutcome struct {
	account   *accountResponse
	rejection string
}

func (p *IdentityToolkitProvider) account(ctx context.Context, endpoint string, body map[string]any) Result {
	outcome, err := p.breaker.Execute(func() (accountOutcome, error) {
		resp, err := p.post(ctx, endpoint, body)
		var rejected *providerError
		if stderrors.As(err, &rejected) {
			return accountOutcome{rejection: rejected.code}, nil
		}
		return accountOutcome{account: resp}, err
	})
	if err != nil {
		p.logger.LogError(err, "Identity service request failed", "endpoint", endpoint)
		if breaker.IsRejected(err) {
			return failure("The sign-in service is temporarily unavailable. Try again later.")
		}
		return failure("Could not reach the sign-in service. Check your connection and try again.")
	}
	if outcome.account == nil {
		p.logger.Debug("Identity service rejected request", "endpoint", endpoint, "code", outcome.rejection)
		return failure(MessageFor(outcome.rejection))
	}

	resp := outcome.account
	return Result{User: &User{
		UID:          resp.LocalID,
		DisplayName:  resp.DisplayName,
		Email:        resp.Email,
		PhotoURL:     resp.PhotoURL,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
	}}
}

func (p *IdentityToolkitProvider) post(ctx context.Context, endpoint string, body map[string]any) (*accountResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	target := fmt.Sprintf("%s/%s?key=%s", p.baseURL, endpoint, url.QueryEscape(p.apiKey))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeAuthProviderError, "identity service unreachable", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeAuthProviderError, "failed to read identity service response", err)
	}

	if res.StatusCode >= 500 {
		return nil, errors.NewNetworkError(errors.ErrCodeAuthProviderError,
			fmt.Sprintf("identity service returned %d", res.StatusCode), nil)
	}
	if res.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Error.Message == "" {
			return nil, &providerError{status: res.StatusCode, code: fmt.Sprintf("HTTP_%d", res.StatusCode)}
		}
		return nil, &providerError{status: res.StatusCode, code: apiErr.Error.Message}
	}

	var out accountResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeAuthProviderError, "malformed identity service response", err)
	}
	if out.LocalID == "" {
		return nil, errors.NewNetworkError(errors.ErrCodeAuthProviderError, "identity service response has no user id", nil)
	}
	return &out, nil
}
