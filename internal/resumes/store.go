// Package resumes keeps one uploaded resume file per user.
package resumes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"snapscreen/internal/errors"
	"snapscreen/internal/utils"
)

const (
	// Prefix is the first segment of every object key
	Prefix   = "resumes"
	baseName = "resume"
	metaFile = "meta.json"
)

var uidPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Info describes a stored resume
type Info struct {
	ObjectKey   string    `json:"objectKey"`
	FileName    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Store keeps resumes on disk at <root>/resumes/<uid>/resume<ext>
type Store struct {
	root    string
	maxSize int64
	logger  *errors.Logger
	now     func() time.Time

	mu sync.Mutex
}

// NewStore creates a store rooted at root. maxSize <= 0 means no limit.
func NewStore(root string, maxSize int64, logger *errors.Logger) (*Store, error) {
	if root == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "resumes.root is required", nil)
	}
	if err := os.MkdirAll(filepath.Join(root, Prefix), 0750); err != nil {
		return nil, errors.NewIOError("DIRECTORY_CREATE_FAILED", "cannot create resume directory", err).
			WithContext("root", root)
	}
	return &Store{root: root, maxSize: maxSize, logger: logger, now: time.Now}, nil
}

// ObjectKey returns the key a resume named fileName is stored under for uid.
func ObjectKey(uid, fileName string) string {
	return path.Join(Prefix, uid, baseName+utils.GetFileExtension(fileName))
}

// Upload stores r as the resume of uid, replacing any previous resume.
func (s *Store) Upload(ctx context.Context, uid, fileName string, r io.Reader) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkUID(uid); err != nil {
		return nil, err
	}
	fileName = filepath.Base(strings.TrimSpace(fileName))
	if !utils.IsResumeFile(fileName) {
		return nil, errors.NewValidationError(errors.ErrCodeUnsupportedFile,
			"Invalid file type. Supported types: PDF, DOC, DOCX, TXT", nil).WithContext("filename", fileName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.userDir(uid)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.NewIOError("DIRECTORY_CREATE_FAILED", "cannot create resume directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, errors.NewIOError("FILE_WRITE_FAILED", "cannot stage upload", err)
	}
	defer func() {
		// no-op once the temp file has been renamed
		_ = os.Remove(tmp.Name())
	}()

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, errors.NewIOError("FILE_WRITE_FAILED", "failed to write upload", err)
	}
	if n == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "File is empty", nil)
	}
	if s.maxSize > 0 && n > s.maxSize {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("File exceeds the %s limit", utils.FormatFileSize(s.maxSize)), nil)
	}

	if err := s.removeResume(uid); err != nil {
		return nil, err
	}

	key := ObjectKey(uid, fileName)
	if err := os.Rename(tmp.Name(), s.pathFor(key)); err != nil {
		return nil, errors.NewIOError("FILE_WRITE_FAILED", "failed to store upload", err)
	}

	info := &Info{
		ObjectKey:   key,
		FileName:    fileName,
		ContentType: utils.ContentType(fileName),
		Size:        n,
		UploadedAt:  s.now().UTC(),
	}
	if err := writeMeta(filepath.Join(dir, metaFile), info); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("Resume uploaded", "uid", uid, "object_key", key, "size", n)
	}
	return info, nil
}

// Get returns the resume of uid.
func (s *Store) Get(ctx context.Context, uid string) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkUID(uid); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(uid)
}

// Exists reports whether uid has a resume.
func (s *Store) Exists(ctx context.Context, uid string) (bool, error) {
	_, err := s.Get(ctx, uid)
	if err == nil {
		return true, nil
	}
	if errors.TypeOf(err) == errors.ErrorTypeNotFound {
		return false, nil
	}
	return false, err
}

// Delete removes the resume of uid. Deleting a missing resume succeeds.
func (s *Store) Delete(ctx context.Context, uid string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkUID(uid); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.removeResume(uid); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.userDir(uid), metaFile)); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError("FILE_DELETE_FAILED", "failed to delete resume metadata", err)
	}
	return nil
}

// Open returns the content of the resume stored under objectKey. The caller closes it.
func (s *Store) Open(ctx context.Context, objectKey string) (io.ReadCloser, *Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	uid, err := ParseObjectKey(objectKey)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.lookup(uid)
	if err != nil {
		return nil, nil, err
	}
	if info.ObjectKey != objectKey {
		return nil, nil, notFound(objectKey)
	}
	f, err := os.Open(s.pathFor(objectKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, notFound(objectKey)
		}
		return nil, nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "cannot open resume", err)
	}
	return f, info, nil
}

// ParseObjectKey validates a key of the form resumes/<uid>/resume<ext> and returns the uid.
func ParseObjectKey(objectKey string) (string, error) {
	parts := strings.Split(objectKey, "/")
	if len(parts) != 3 || parts[0] != Prefix || checkUID(parts[1]) != nil ||
		!strings.HasPrefix(parts[2], baseName+".") || !utils.IsResumeFile(parts[2]) {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid object key", nil).
			WithContext("object_key", objectKey)
	}
	return parts[1], nil
}

func (s *Store) lookup(uid string) (*Info, error) {
	file, err := s.resumeFile(uid)
	if err != nil {
		return nil, err
	}
	if file == "" {
		return nil, notFound(path.Join(Prefix, uid))
	}

	stat, err := os.Stat(filepath.Join(s.userDir(uid), file))
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "cannot stat resume", err)
	}
	info := &Info{
		ObjectKey:   path.Join(Prefix, uid, file),
		FileName:    file,
		ContentType: utils.ContentType(file),
		Size:        stat.Size(),
		UploadedAt:  stat.ModTime().UTC(),
	}

	if meta, err := readMeta(filepath.Join(s.userDir(uid), metaFile)); err == nil && meta.ObjectKey == info.ObjectKey {
		info.FileName = meta.FileName
		info.UploadedAt = meta.UploadedAt
	}
	return info, nil
}

// resumeFile returns the name of the stored resume of uid, or "" when there is none.
func (s *Store) resumeFile(uid string) (string, error) {
	entries, err := os.ReadDir(s.userDir(uid))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "cannot list resumes", err)
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, baseName+".") && utils.IsResumeFile(name) {
			return name, nil
		}
	}
	return "", nil
}

func (s *Store) removeResume(uid string) error {
	for {
		file, err := s.resumeFile(uid)
		if err != nil || file == "" {
			return err
		}
		if err := os.Remove(filepath.Join(s.userDir(uid), file)); err != nil && !os.IsNotExist(err) {
			return errors.NewIOError("FILE_DELETE_FAILED", "failed to delete previous resume", err)
		}
	}
}

func (s *Store) userDir(uid string) string {
	return filepath.Join(s.root, Prefix, uid)
}

func (s *Store) pathFor(objectKey string) string {
	return filepath.Join(s.root, filepath.FromSlash(objectKey))
}

func checkUID(uid string) error {
	if !uidPattern.MatchString(uid) {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid user id", nil)
	}
	return nil
}

func notFound(key string) error {
	return errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "no resume found", nil).WithContext("object_key", key)
}

func writeMeta(file string, info *Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return errors.NewInternalError("META_ENCODE_FAILED", "failed to encode resume metadata", err)
	}
	if err := os.WriteFile(file, data, 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED", "failed to write resume metadata", err)
	}
	return nil
}

func readMeta(file string) (*Info, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
