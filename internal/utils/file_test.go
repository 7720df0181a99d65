package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsResumeFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"resume.pdf", true},
		{"Resume.PDF", true},
		{"cv.docx", true},
		{"cv.doc", true},
		{"notes.txt", true},
		{"photo.png", false},
		{"resume", false},
		{"archive.pdf.zip", false},
	}
	for _, tt := range tests {
		if got := IsResumeFile(tt.name); got != tt.want {
			t.Errorf("IsResumeFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a.pdf":  "application/pdf",
		"a.DOCX": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"a.txt":  "text/plain",
		"a.bin":  "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatFileSize(tt.size); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "resume.txt")
	if err := os.WriteFile(file, []byte("Jane Doe"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := ValidateInputFile(file); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateInputFile(""); err == nil {
		t.Error("expected error for empty name")
	}
	if err := ValidateInputFile(dir); err == nil {
		t.Error("expected error for directory")
	}
	if err := ValidateInputFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateOutputFileCreatesDirectory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports", "scan.json")
	if err := ValidateOutputFile(out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(out)); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}
