package common

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"snapscreen/internal/errors"
	"snapscreen/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile returns the text of filename. Missing and unreadable files are IO
// errors with distinct codes.
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return "", errors.NewIOError(errors.ErrCodeFileNotFound, "File not found: "+filename, err)
	case err != nil:
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "Cannot read file: "+filename, err)
	}
	return string(data), nil
}

// WriteFile writes content to filename, creating missing parent directories.
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED", "Cannot create directory: "+dir, err)
		}
	}
	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED", "Cannot write file: "+filename, err)
	}
	fp.logger.Debug("Wrote output file", "filename", filename, "size", utils.FormatFileSize(int64(len(content))))
	return nil
}

// ValidateAndReadFiles reads every named file in order. Blank files are
// rejected because nothing can be scanned from them.
func (fp *FileProcessor) ValidateAndReadFiles(filenames ...string) ([]string, error) {
	contents := make([]string, 0, len(filenames))
	for _, filename := range filenames {
		if err := utils.ValidateInputFile(filename); err != nil {
			return nil, errors.NewValidationError("INVALID_INPUT_FILE", "Invalid file "+filename, err)
		}
		if !utils.IsTextFile(filename) {
			fp.logger.Warn("File may not be plain text, scan quality may suffer", "filename", filename)
		}

		text, err := fp.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "File is empty: "+filename, nil).
				WithContext("filename", filename)
		}
		contents = append(contents, text)
	}
	return contents, nil
}

// ReadResume reads a resume file, rejecting types other than PDF, DOC, DOCX
// and TXT and files larger than maxSize bytes.
func (fp *FileProcessor) ReadResume(filename string, maxSize int64) ([]byte, error) {
	if !utils.IsResumeFile(filename) {
		return nil, errors.NewValidationError(errors.ErrCodeUnsupportedFile,
			"Invalid file type. Supported types: PDF, DOC, DOCX, TXT", nil)
	}
	if err := utils.ValidateInputFile(filename); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("Invalid file %s", filename), err)
	}
	info, err := os.Stat(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot stat file: %s", filename), err)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("File is too large (%s, limit %s)",
				utils.FormatFileSize(info.Size()), utils.FormatFileSize(maxSize)), nil)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	return data, nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
