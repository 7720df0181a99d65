package resumes

import (
	"crypto/rand"
	"crypto/sha256"
	"net/url"
	"strings"
	"time"

	"snapscreen/internal/config"
	"snapscreen/internal/errors"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const (
	DownloadPath     = "/api/resumes/download"
	downloadIssuer   = "snapscreen"
	downloadAudience = "resume-download"
)

// URLSigner issues and checks expiring download links for stored resumes
type URLSigner struct {
	key     []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

// SignedURL is a download link and the time it stops working
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewURLSigner creates a signer from cfg. Without a signing key a random one
// is generated, so links do not survive a restart.
func NewURLSigner(cfg config.ResumesConfig, logger *errors.Logger) (*URLSigner, error) {
	secret := []byte(cfg.SigningKey)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, errors.NewInternalError("KEY_GENERATION_FAILED", "cannot generate URL signing key", err)
		}
		if logger != nil {
			logger.Warn("No resumes.signingKey configured, download links will not survive a restart")
		}
	}
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}

	// HS256 needs a 256-bit key regardless of how long the configured secret is
	key := sha256.Sum256(secret)
	return &URLSigner{
		key:     key[:],
		ttl:     ttl,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:     time.Now,
	}, nil
}

// Sign returns a download link for objectKey valid for the configured TTL.
func (s *URLSigner) Sign(objectKey string) (*SignedURL, error) {
	if _, err := ParseObjectKey(objectKey); err != nil {
		return nil, err
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: s.key},
		(&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return nil, errors.NewInternalError("URL_SIGN_FAILED", "cannot create URL signer", err)
	}

	now := s.now()
	expires := now.Add(s.ttl)
	token, err := jwt.Signed(signer).Claims(jwt.Claims{
		Issuer:   downloadIssuer,
		Subject:  objectKey,
		Audience: jwt.Audience{downloadAudience},
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(expires),
	}).Serialize()
	if err != nil {
		return nil, errors.NewInternalError("URL_SIGN_FAILED", "cannot sign download URL", err)
	}

	return &SignedURL{
		URL:       s.baseURL + DownloadPath + "?token=" + url.QueryEscape(token),
		ExpiresAt: expires.Truncate(time.Second),
	}, nil
}

// Verify checks a download token and returns the object key it grants.
func (s *URLSigner) Verify(token string) (string, error) {
	tok, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return "", errors.NewAuthError(errors.ErrCodeInvalidToken, "malformed download token", err)
	}

	var claims jwt.Claims
	if err := tok.Claims(s.key, &claims); err != nil {
		return "", errors.NewAuthError(errors.ErrCodeInvalidSignature, "download token signature is invalid", err)
	}
	if err := claims.ValidateWithLeeway(jwt.Expected{
		Issuer:      downloadIssuer,
		AnyAudience: jwt.Audience{downloadAudience},
		Time:        s.now(),
	}, 0); err != nil {
		return "", errors.NewAuthError(errors.ErrCodeInvalidToken, "download link expired or invalid", err)
	}
	if _, err := ParseObjectKey(claims.Subject); err != nil {
		return "", errors.NewAuthError(errors.ErrCodeInvalidToken, "download token names an invalid object", err)
	}
	return claims.Subject, nil
}
