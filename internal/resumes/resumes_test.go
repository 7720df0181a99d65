package resumes

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"snapscreen/internal/config"
	"snapscreen/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxSize int64) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), maxSize, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestUploadAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)

	info, err := s.Upload(ctx, "user1", "Jane_Doe_Resume.PDF", strings.NewReader("%PDF-1.4 resume"))
	require.NoError(t, err)
	assert.Equal(t, "resumes/user1/resume.pdf", info.ObjectKey)
	assert.Equal(t, "Jane_Doe_Resume.PDF", info.FileName)
	assert.Equal(t, "application/pdf", info.ContentType)
	assert.Equal(t, int64(15), info.Size)

	got, err := s.Get(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, info, got)

	exists, err := s.Exists(ctx, "user1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUploadReplacesPreviousResume(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)

	_, err := s.Upload(ctx, "user1", "old.pdf", strings.NewReader("old"))
	require.NoError(t, err)
	info, err := s.Upload(ctx, "user1", "new.docx", strings.NewReader("new resume"))
	require.NoError(t, err)
	assert.Equal(t, "resumes/user1/resume.docx", info.ObjectKey)

	entries, err := os.ReadDir(filepath.Join(s.root, Prefix, "user1"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"resume.docx", metaFile}, names)

	got, err := s.Get(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, "new.docx", got.FileName)
}

func TestUploadRejects(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 8)

	tests := []struct {
		name     string
		uid      string
		fileName string
		content  string
		code     string
	}{
		{"unsupported type", "user1", "photo.png", "png", errors.ErrCodeUnsupportedFile},
		{"no extension", "user1", "resume", "text", errors.ErrCodeUnsupportedFile},
		{"empty file", "user1", "resume.pdf", "", errors.ErrCodeInvalidRequest},
		{"too large", "user1", "resume.txt", "123456789", errors.ErrCodeInvalidRequest},
		{"bad uid", "../etc", "resume.pdf", "x", errors.ErrCodeInvalidRequest},
		{"empty uid", "", "resume.pdf", "x", errors.ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Upload(ctx, tt.uid, tt.fileName, strings.NewReader(tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.NewValidationError(tt.code, "", nil))
		})
	}

	exists, err := s.Exists(ctx, "user1")
	require.NoError(t, err)
	assert.False(t, exists, "rejected uploads leave nothing behind")
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t, 0)
	_, err := s.Get(context.Background(), "nobody")
	assert.Equal(t, errors.ErrorTypeNotFound, errors.TypeOf(err))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)

	_, err := s.Upload(ctx, "user1", "cv.txt", strings.NewReader("Jane"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "user1"))

	exists, err := s.Exists(ctx, "user1")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, s.Delete(ctx, "user1"), "deleting twice succeeds")
	assert.NoError(t, s.Delete(ctx, "never-uploaded"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)

	_, err := s.Upload(ctx, "user1", "cv.txt", strings.NewReader("Jane Doe"))
	require.NoError(t, err)

	rc, info, err := s.Open(ctx, "resumes/user1/resume.txt")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", string(data))
	assert.Equal(t, "cv.txt", info.FileName)

	_, _, err = s.Open(ctx, "resumes/user1/resume.pdf")
	assert.Equal(t, errors.ErrorTypeNotFound, errors.TypeOf(err))

	_, _, err = s.Open(ctx, "resumes/../../etc/passwd")
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
}

func TestParseObjectKey(t *testing.T) {
	tests := []struct {
		key   string
		uid   string
		valid bool
	}{
		{"resumes/abc123/resume.pdf", "abc123", true},
		{"resumes/abc123/resume.docx", "abc123", true},
		{"resumes/abc123/other.pdf", "", false},
		{"resumes/abc123/resume.exe", "", false},
		{"resumes/../resume.pdf", "", false},
		{"uploads/abc123/resume.pdf", "", false},
		{"resumes/abc123/sub/resume.pdf", "", false},
	}
	for _, tt := range tests {
		uid, err := ParseObjectKey(tt.key)
		if tt.valid {
			assert.NoError(t, err, tt.key)
			assert.Equal(t, tt.uid, uid)
		} else {
			assert.Error(t, err, tt.key)
		}
	}
}

func newTestSigner(t *testing.T, key string, now time.Time) *URLSigner {
	t.Helper()
	s, err := NewURLSigner(config.ResumesConfig{
		SigningKey:    key,
		URLTTL:        time.Hour,
		PublicBaseURL: "https://api.snapscreen.test/",
	}, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s
}

func tokenOf(t *testing.T, signed *SignedURL) string {
	t.Helper()
	u, err := url.Parse(signed.URL)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestURLSigner(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newTestSigner(t, "secret", now)

	signed, err := s.Sign("resumes/user1/resume.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed.URL, "https://api.snapscreen.test/api/resumes/download?token="))
	assert.Equal(t, now.Add(time.Hour), signed.ExpiresAt)

	key, err := s.Verify(tokenOf(t, signed))
	require.NoError(t, err)
	assert.Equal(t, "resumes/user1/resume.pdf", key)

	s.now = func() time.Time { return now.Add(61 * time.Minute) }
	_, err = s.Verify(tokenOf(t, signed))
	assert.ErrorIs(t, err, errors.NewAuthError(errors.ErrCodeInvalidToken, "", nil))

	other := newTestSigner(t, "another-secret", now)
	_, err = other.Verify(tokenOf(t, signed))
	assert.ErrorIs(t, err, errors.NewAuthError(errors.ErrCodeInvalidSignature, "", nil))

	_, err = s.Verify("not-a-token")
	assert.Equal(t, errors.ErrorTypeAuth, errors.TypeOf(err))

	_, err = s.Sign("../../etc/passwd")
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
}

func TestURLSignerGeneratesKey(t *testing.T) {
	s, err := NewURLSigner(config.ResumesConfig{}, nil)
	require.NoError(t, err)
	assert.Len(t, s.key, 32)
	assert.Equal(t, 60*time.Minute, s.ttl)

	signed, err := s.Sign("resumes/u/resume.txt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed.URL, DownloadPath+"?token="))
}
