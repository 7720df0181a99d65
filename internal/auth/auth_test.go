package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"snapscreen/internal/config"
	"snapscreen/internal/errors"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *errors.Logger {
	t.Helper()
	logger, err := errors.New("error")
	require.NoError(t, err)
	return logger
}

func TestMessageFor(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"EMAIL_EXISTS", "The email address is already in use by another account."},
		{"WEAK_PASSWORD : Password should be at least 6 characters", "Password should be at least 6 characters."},
		{"INVALID_LOGIN_CREDENTIALS", "Invalid email or password."},
		{"SOMETHING_NEW", "Authentication failed: SOMETHING_NEW"},
		{"", "Authentication failed."},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, MessageFor(tt.code))
		})
	}
}

func newToolkitServer(t *testing.T, handler http.HandlerFunc) (*IdentityToolkitProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewIdentityToolkitProvider(config.AuthConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/v1/",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	}, testLogger(t))
	require.NoError(t, err)
	return p, srv
}

func TestIdentityToolkitSignUp(t *testing.T) {
	var gotBody map[string]any
	p, _ := newToolkitServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:signUp", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"localId":"uid-1","email":"ada@example.com","idToken":"tok","refreshToken":"ref"}`))
	})

	res := p.CreateAccount(context.Background(), "ada@example.com", "s3cret!")
	require.True(t, res.OK(), res.Error)
	require.NotNil(t, res.User)
	assert.Equal(t, "uid-1", res.User.UID)
	assert.Equal(t, "tok", res.User.IDToken)
	assert.Equal(t, "ada@example.com", gotBody["email"])
	assert.Equal(t, true, gotBody["returnSecureToken"])
}

func TestIdentityToolkitRejection(t *testing.T) {
	p, _ := newToolkitServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"EMAIL_EXISTS"}}`))
	})

	res := p.CreateAccount(context.Background(), "ada@example.com", "s3cret!")
	assert.Nil(t, res.User)
	assert.Equal(t, "The email address is already in use by another account.", res.Error)
}

func TestIdentityToolkitValidatesBeforeCalling(t *testing.T) {
	var calls int32
	p, _ := newToolkitServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	res := p.SignInWithEmail(context.Background(), " ", "pw")
	assert.Equal(t, "An email address is required.", res.Error)
	res = p.SignInWithEmail(context.Background(), "a@b.c", "")
	assert.Equal(t, "A password is required.", res.Error)
	res = p.SignInWithProvider(context.Background(), ProviderCredential{})
	assert.NotEmpty(t, res.Error)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestIdentityToolkitRetriesServerErrors(t *testing.T) {
	var calls int32
	p, _ := newToolkitServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	res := p.SignInWithEmail(context.Background(), "ada@example.com", "pw")
	assert.Nil(t, res.User)
	assert.Contains(t, res.Error, "Could not reach the sign-in service")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "one attempt plus one retry")
}

func TestIdentityToolkitSignInWithProvider(t *testing.T) {
	p, _ := newToolkitServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:signInWithIdp", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body["postBody"], "providerId=google.com")
		assert.Contains(t, body["postBody"], "id_token=google-token")
		_, _ = w.Write([]byte(`{"localId":"uid-g","email":"g@example.com","displayName":"Grace","photoUrl":"https://p/x.png"}`))
	})

	res := p.SignInWithProvider(context.Background(), ProviderCredential{IDToken: "google-token"})
	require.True(t, res.OK(), res.Error)
	assert.Equal(t, "Grace", res.User.DisplayName)
	assert.Equal(t, "https://p/x.png", res.User.PhotoURL)
}

func TestNewIdentityToolkitProviderRequiresKey(t *testing.T) {
	_, err := NewIdentityToolkitProvider(config.AuthConfig{}, testLogger(t))
	assert.Equal(t, errors.ErrorTypeConfig, errors.TypeOf(err))
}

// fakeProvider answers from fixed results
type fakeProvider struct {
	signIn  Result
	signOut Result
}

func (f *fakeProvider) CreateAccount(context.Context, string, string) Result   { return f.signIn }
func (f *fakeProvider) SignInWithEmail(context.Context, string, string) Result { return f.signIn }
func (f *fakeProvider) SignInWithProvider(context.Context, ProviderCredential) Result {
	return f.signIn
}
func (f *fakeProvider) SignOut(context.Context, *User) Result { return f.signOut }

func receive(t *testing.T, ch <-chan *User) *User {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for auth state")
		return nil
	}
}

func TestSessionNotifiesSubscribers(t *testing.T) {
	provider := &fakeProvider{signIn: Result{User: &User{UID: "u1", Email: "ada@example.com"}}}
	session := NewSession(provider)

	states := make(chan *User, 10)
	unsubscribe := session.OnAuthStateChanged(func(u *User) { states <- u })

	assert.Nil(t, receive(t, states), "initial state is delivered")

	res := session.SignInWithEmail(context.Background(), "ada@example.com", "pw")
	require.True(t, res.OK())
	u := receive(t, states)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.UID)
	assert.Equal(t, "u1", session.CurrentUser().UID)

	require.True(t, session.SignOut(context.Background()).OK())
	assert.Nil(t, receive(t, states))
	assert.Nil(t, session.CurrentUser())

	unsubscribe()
	unsubscribe()
	assert.Zero(t, session.Subscribers())

	session.SignInWithEmail(context.Background(), "ada@example.com", "pw")
	select {
	case <-states:
		t.Fatal("unsubscribed callback was called")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionFailedSignInKeepsState(t *testing.T) {
	session := NewSession(&fakeProvider{signIn: Result{Error: "Invalid email or password."}})

	res := session.SignInWithEmail(context.Background(), "a@b.c", "wrong")
	assert.Equal(t, "Invalid email or password.", res.Error)
	assert.Nil(t, session.CurrentUser())
}

func TestSessionCoalescesSlowSubscriber(t *testing.T) {
	session := NewSession(&fakeProvider{signIn: Result{User: &User{UID: "last"}}, signOut: Result{}})

	entered := make(chan struct{}, 10)
	release := make(chan struct{})
	var mu sync.Mutex
	var seen []string
	done := make(chan struct{}, 10)
	session.OnAuthStateChanged(func(u *User) {
		entered <- struct{}{}
		<-release
		mu.Lock()
		if u == nil {
			seen = append(seen, "signed-out")
		} else {
			seen = append(seen, u.UID)
		}
		mu.Unlock()
		done <- struct{}{}
	})

	// The first delivery is blocked; the following changes collapse into the last one.
	<-entered
	session.SignInWithEmail(context.Background(), "a@b.c", "pw")
	session.SignOut(context.Background())
	session.SignInWithEmail(context.Background(), "a@b.c", "pw")
	close(release)

	<-done
	<-done
	select {
	case <-done:
		t.Fatal("intermediate states should have been coalesced")
	case <-time.After(50 * time.Millisecond):
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"signed-out", "last"}, seen)
}

func TestViewSubscriptionHoldsOneSubscription(t *testing.T) {
	session := NewSession(&fakeProvider{})
	view := NewViewSubscription(session)

	view.Mount(func(*User) {})
	view.Mount(func(*User) {})
	assert.Equal(t, 1, session.Subscribers())
	assert.True(t, view.Active())

	view.Unmount()
	view.Unmount()
	assert.Zero(t, session.Subscribers())
	assert.False(t, view.Active())
}

// jwksFixture serves a key set and signs tokens with its key
type jwksFixture struct {
	key     *rsa.PrivateKey
	kid     string
	fetches int32
	server  *httptest.Server
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &jwksFixture{key: key, kid: "key-1"}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.fetches, 1)
		set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
			Key: &key.PublicKey, KeyID: f.kid, Algorithm: string(jose.RS256), Use: "sig",
		}}}
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *jwksFixture) sign(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.Claims, custom map[string]any) string {
	t.Helper()
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", kid),
	)
	require.NoError(t, err)
	builder := jwt.Signed(signer).Claims(claims)
	if custom != nil {
		builder = builder.Claims(custom)
	}
	raw, err := builder.Serialize()
	require.NoError(t, err)
	return raw
}

func TestTokenVerifier(t *testing.T) {
	fx := newJWKSFixture(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	v, err := NewTokenVerifier(config.AuthConfig{
		ProjectID: "snapscreen-test",
		JWKSURL:   fx.server.URL,
		Timeout:   5 * time.Second,
		ClockSkew: time.Minute,
	}, testLogger(t))
	require.NoError(t, err)
	v.now = func() time.Time { return now }

	valid := jwt.Claims{
		Issuer:   "https://securetoken.google.com/snapscreen-test",
		Audience: jwt.Audience{"snapscreen-test"},
		Subject:  "uid-42",
		IssuedAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		Expiry:   jwt.NewNumericDate(now.Add(time.Hour)),
	}

	t.Run("valid token", func(t *testing.T) {
		raw := fx.sign(t, fx.key, fx.kid, valid, map[string]any{"email": "ada@example.com", "admin": true})
		claims, err := v.Verify(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, "uid-42", claims.UID)
		assert.Equal(t, "ada@example.com", claims.Email)
		assert.True(t, claims.Admin)
		assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	})

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  func() string
		errMsg string
	}{
		{
			name:   "empty",
			token:  func() string { return "" },
			errMsg: "token is empty",
		},
		{
			name:   "garbage",
			token:  func() string { return "not.a.jwt" },
			errMsg: "token is malformed",
		},
		{
			name: "wrong audience",
			token: func() string {
				c := valid
				c.Audience = jwt.Audience{"other-project"}
				return fx.sign(t, fx.key, fx.kid, c, nil)
			},
			errMsg: "token claims are invalid",
		},
		{
			name: "wrong issuer",
			token: func() string {
				c := valid
				c.Issuer = "https://accounts.example.com"
				return fx.sign(t, fx.key, fx.kid, c, nil)
			},
			errMsg: "token claims are invalid",
		},
		{
			name: "expired",
			token: func() string {
				c := valid
				c.Expiry = jwt.NewNumericDate(now.Add(-time.Hour))
				return fx.sign(t, fx.key, fx.kid, c, nil)
			},
			errMsg: "token claims are invalid",
		},
		{
			name: "missing subject",
			token: func() string {
				c := valid
				c.Subject = ""
				return fx.sign(t, fx.key, fx.kid, c, nil)
			},
			errMsg: "token has no subject",
		},
		{
			name:   "signed by another key",
			token:  func() string { return fx.sign(t, otherKey, fx.kid, valid, nil) },
			errMsg: "token signature is invalid",
		},
		{
			name:   "unknown key id",
			token:  func() string { return fx.sign(t, fx.key, "rotated-away", valid, nil) },
			errMsg: "unknown signing key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, errors.ErrorTypeAuth, errors.TypeOf(err))
		})
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&fx.fetches), "the key set is cached")
}

func TestNewTokenVerifierRequiresProject(t *testing.T) {
	_, err := NewTokenVerifier(config.AuthConfig{}, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "projectId"))
}
