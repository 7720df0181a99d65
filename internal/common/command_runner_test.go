package common

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snapscreen/internal/analyzer"
	"snapscreen/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = errors.NewLogger(slog.LevelError)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRunFileCommand(t *testing.T) {
	resume := writeTemp(t, "resume.txt", "Jane Doe")
	job := writeTemp(t, "job.txt", "Engineer")

	var out bytes.Buffer
	var gotFiles []string
	err := RunFileCommand(context.Background(), testLogger,
		CommandConfig{OutputFormat: "json", Out: &out},
		[]string{resume, job},
		func(files, contents []string) (string, error) {
			gotFiles = files
			return strings.Join(contents, "|"), nil
		},
		func(_ context.Context, in string) (map[string]string, *analyzer.TokenUsage, error) {
			return map[string]string{"input": in}, &analyzer.TokenUsage{TotalTokens: 3}, nil
		},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{resume, job}, gotFiles)
	assert.JSONEq(t, `{"input": "Jane Doe|Engineer"}`, out.String())
}

func TestRunFileCommandMissingFile(t *testing.T) {
	err := RunFileCommand(context.Background(), testLogger, CommandConfig{OutputFormat: "json"},
		[]string{filepath.Join(t.TempDir(), "missing.txt")},
		func(_, contents []string) (string, error) { return contents[0], nil },
		func(_ context.Context, in string) (string, *analyzer.TokenUsage, error) { return in, nil, nil },
		nil,
	)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
}

func TestHandleOutputToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "out.json")
	h := NewOutputHandler(testLogger)
	require.NoError(t, h.HandleOutput([]int{1, 2}, CommandConfig{OutputFile: target, OutputFormat: "json"}))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2]`, string(data))

	err = h.HandleOutput([]int{1}, CommandConfig{OutputFormat: "yaml", Out: &bytes.Buffer{}})
	assert.ErrorIs(t, err, errors.NewValidationError(errors.ErrCodeInvalidFormat, "", nil))
}

func TestReadResume(t *testing.T) {
	fp := NewFileProcessor(testLogger)

	data, err := fp.ReadResume(writeTemp(t, "cv.txt", "Jane Doe"), 1024)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", string(data))

	_, err = fp.ReadResume(writeTemp(t, "cv.png", "x"), 1024)
	assert.ErrorIs(t, err, errors.NewValidationError(errors.ErrCodeUnsupportedFile, "", nil))

	_, err = fp.ReadResume(writeTemp(t, "big.pdf", strings.Repeat("x", 2048)), 1024)
	assert.ErrorIs(t, err, errors.NewValidationError(errors.ErrCodeInvalidRequest, "", nil))

	_, err = fp.ReadResume(filepath.Join(t.TempDir(), "gone.pdf"), 1024)
	assert.Equal(t, errors.ErrorTypeIO, errors.TypeOf(err))
}

func TestValidateAndReadFilesRejectsBlank(t *testing.T) {
	fp := NewFileProcessor(testLogger)

	_, err := fp.ValidateAndReadFiles(writeTemp(t, "resume.txt", "Jane Doe"), writeTemp(t, "job.txt", " \n\t"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.NewValidationError(errors.ErrCodeInvalidRequest, "", nil))

	contents, err := fp.ValidateAndReadFiles(writeTemp(t, "resume.md", "# Jane"))
	require.NoError(t, err)
	assert.Equal(t, []string{"# Jane"}, contents)
}
