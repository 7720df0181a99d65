// Package auth is the boundary to the external identity provider. Every
// operation reports failure as a readable message inside Result instead of
// returning an error.
package auth

import (
	"context"
	"strings"
)

// User is a signed-in account
type User struct {
	UID          string `json:"uid"`
	DisplayName  string `json:"displayName,omitempty"`
	Email        string `json:"email,omitempty"`
	PhotoURL     string `json:"photoURL,omitempty"`
	IDToken      string `json:"idToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Result is the outcome of an auth operation. Exactly one of User and Error
// is set, except for sign-out, which sets neither on success.
type Result struct {
	User  *User  `json:"user"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Error == ""
}

func failure(message string) Result {
	return Result{Error: message}
}

// ProviderCredential is a third-party sign-in credential, e.g. a Google ID token
type ProviderCredential struct {
	ProviderID  string `json:"providerId"`
	IDToken     string `json:"idToken,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
	RequestURI  string `json:"requestUri,omitempty"`
}

// DefaultProviderID is used when a credential names no provider.
const DefaultProviderID = "google.com"

// Provider is the identity provider contract
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) Result
	SignInWithEmail(ctx context.Context, email, password string) Result
	SignInWithProvider(ctx context.Context, cred ProviderCredential) Result
	SignOut(ctx context.Context, user *User) Result
}

// Readable messages for provider error codes
var errorMessages = map[string]string{
	"EMAIL_EXISTS":                "The email address is already in use by another account.",
	"OPERATION_NOT_ALLOWED":       "This sign-in method is disabled for this project.",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Access has been temporarily disabled due to many failed attempts. Try again later.",
	"EMAIL_NOT_FOUND":             "There is no account with this email address.",
	"INVALID_PASSWORD":            "The password is invalid.",
	"INVALID_LOGIN_CREDENTIALS":   "Invalid email or password.",
	"USER_DISABLED":               "This account has been disabled by an administrator.",
	"WEAK_PASSWORD":               "Password should be at least 6 characters.",
	"INVALID_EMAIL":               "The email address is badly formatted.",
	"MISSING_PASSWORD":            "A password is required.",
	"MISSING_EMAIL":               "An email address is required.",
	"INVALID_IDP_RESPONSE":        "The provider credential is malformed or has expired.",
	"INVALID_API_KEY":             "The identity service is misconfigured (invalid API key).",
}

// MessageFor turns a provider error code such as "WEAK_PASSWORD : Password
// should be at least 6 characters" into a readable message.
func MessageFor(code string) string {
	key := strings.TrimSpace(code)
	if i := strings.Index(key, " "); i > 0 {
		key = key[:i]
	}
	if msg, ok := errorMessages[key]; ok {
		return msg
	}
	if key == "" {
		return "Authentication failed."
	}
	return "Authentication failed: " + key
}

func validateCredentials(email, password string) (string, bool) {
	switch {
	case strings.TrimSpace(email) == "":
		return errorMessages["MISSING_EMAIL"], false
	case password == "":
		return errorMessages["MISSING_PASSWORD"], false
	default:
		return "", true
	}
}
